package normalizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Multi-character markers go first so "NT$" is not left as "NT" after "$" is removed.
var currencyMarkers = []string{
	"NT$", "US$", "HK$", "A$", "C$", "S$",
	"$", "€", "£", "¥", "￥", "₩", "R",
}

var thousandsSeparators = []string{",", "，"}

// CoerceValue converts one cell to a number. Numbers pass through unchanged. Text has
// currency markers, thousands separators and whitespace removed from anywhere in the
// string before parsing. Anything that still does not parse, and any other type,
// becomes 0 with ok=false. Blank text is 0 with ok=true.
func CoerceValue(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		return parseAmount(n.String())
	case string:
		return parseAmount(n)
	default:
		return 0, false
	}
}

func parseAmount(raw string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return 0, true
	}

	for _, marker := range currencyMarkers {
		cleaned = strings.ReplaceAll(cleaned, marker, "")
	}
	for _, sep := range thousandsSeparators {
		cleaned = strings.ReplaceAll(cleaned, sep, "")
	}

	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, false
	}
	return val, true
}

// Coercer applies CoerceValue and counts the cells that degraded to zero.
// The zero value is ready to use.
type Coercer struct {
	degraded int
	samples  []string
}

const maxDegradedSamples = 5

// Coerce converts v, recording it when it could not be parsed.
func (c *Coercer) Coerce(v any) float64 {
	val, ok := CoerceValue(v)
	if !ok {
		c.degraded++
		if len(c.samples) < maxDegradedSamples {
			c.samples = append(c.samples, sampleText(v))
		}
	}
	return val
}

// Degraded returns how many values fell back to zero.
func (c *Coercer) Degraded() int {
	return c.degraded
}

// Samples returns up to five of the raw values that fell back to zero.
func (c *Coercer) Samples() []string {
	return append([]string(nil), c.samples...)
}

func sampleText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return "<nil>"
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return "<unprintable>"
		}
		return string(b)
	}
}

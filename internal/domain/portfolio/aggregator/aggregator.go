// Package aggregator turns a normalized summary tab into typed holdings and
// per-currency totals.
package aggregator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/normalizer"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/repository"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/sniffer"
)

// Record maps a normalized header to the cell value of one data row.
type Record map[string]any

// BuildRecords normalizes the header row of sheet and returns one Record per data row.
// Short rows are padded with empty text, cells beyond the header are dropped and rows
// with no content at all are skipped.
func BuildRecords(sheet repository.RawSheet) ([]string, []Record) {
	headers := normalizer.NormalizeHeaders(sheet.Header())

	var records []Record
	for _, row := range sheet.Rows() {
		if isBlankRow(row) {
			continue
		}
		rec := make(Record, len(headers))
		for i, h := range headers {
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		records = append(records, rec)
	}
	return headers, records
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Holding is the typed view of one record.
type Holding struct {
	Row         int // position in the input record list
	Name        string
	Value       float64
	Profit      float64
	Currency    string
	ReturnRatio float64
}

// CurrencyGroup aggregates the holdings sharing one currency code.
type CurrencyGroup struct {
	Currency    string
	TotalValue  float64
	TotalProfit float64
	ReturnRatio float64
	MemberCount int
}

// Summary is the result of Aggregate.
type Summary struct {
	Roles      sniffer.FieldRoles
	Records    []Record
	Holdings   []Holding
	Currencies []string
	Groups     []CurrencyGroup
	Ranking    []Holding

	// Grand totals add up every holding regardless of currency; no conversion is applied.
	TotalValue       float64
	TotalProfit      float64
	TotalReturnRatio float64

	Degraded int
}

// Group returns the group for a canonical currency code.
func (s Summary) Group(currency string) (CurrencyGroup, bool) {
	for _, g := range s.Groups {
		if g.Currency == currency {
			return g, true
		}
	}
	return CurrencyGroup{}, false
}

// Aggregate coerces the value and profit columns, canonicalizes currency codes, groups
// by currency in first-seen order and ranks holdings by profit, highest first, keeping
// row order among equal profits. c may be nil.
func Aggregate(records []Record, roles sniffer.FieldRoles, c *normalizer.Coercer) Summary {
	if c == nil {
		c = &normalizer.Coercer{}
	}
	before := c.Degraded()

	summary := Summary{
		Roles:    roles,
		Records:  make([]Record, 0, len(records)),
		Holdings: make([]Holding, 0, len(records)),
	}
	groupIndex := make(map[string]int)

	for i, rec := range records {
		h := Holding{
			Row:      i,
			Name:     normalizer.CleanText(cellText(rec[roles.Name.Header])),
			Value:    c.Coerce(rec[roles.Value.Header]),
			Profit:   c.Coerce(rec[roles.Profit.Header]),
			Currency: CanonicalCurrency(cellText(rec[roles.Currency.Header])),
		}
		h.ReturnRatio = ReturnRatio(h.Value, h.Profit)

		normalized := make(Record, len(rec))
		for k, v := range rec {
			normalized[k] = v
		}
		// A currency column shared with a numeric role keeps the number.
		if roles.Currency.Header != roles.Value.Header && roles.Currency.Header != roles.Profit.Header {
			normalized[roles.Currency.Header] = h.Currency
		}
		normalized[roles.Value.Header] = h.Value
		normalized[roles.Profit.Header] = h.Profit

		summary.Records = append(summary.Records, normalized)
		summary.Holdings = append(summary.Holdings, h)

		idx, ok := groupIndex[h.Currency]
		if !ok {
			idx = len(summary.Groups)
			groupIndex[h.Currency] = idx
			summary.Currencies = append(summary.Currencies, h.Currency)
			summary.Groups = append(summary.Groups, CurrencyGroup{Currency: h.Currency})
		}
		g := &summary.Groups[idx]
		g.TotalValue += h.Value
		g.TotalProfit += h.Profit
		g.MemberCount++

		summary.TotalValue += h.Value
		summary.TotalProfit += h.Profit
	}

	for i := range summary.Groups {
		g := &summary.Groups[i]
		g.ReturnRatio = ReturnRatio(g.TotalValue, g.TotalProfit)
	}
	summary.TotalReturnRatio = ReturnRatio(summary.TotalValue, summary.TotalProfit)

	summary.Ranking = make([]Holding, len(summary.Holdings))
	copy(summary.Ranking, summary.Holdings)
	sort.SliceStable(summary.Ranking, func(i, j int) bool {
		return summary.Ranking[i].Profit > summary.Ranking[j].Profit
	})

	summary.Degraded = c.Degraded() - before
	return summary
}

// ReturnRatio is profit over cost, where cost = value - profit. Zero cost yields 0.
func ReturnRatio(value, profit float64) float64 {
	cost := value - profit
	if cost == 0 {
		return 0
	}
	return profit / cost
}

// CanonicalCurrency trims and upper-cases a currency code.
func CanonicalCurrency(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func cellText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

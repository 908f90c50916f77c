package aggregator

import (
	"strconv"

	"github.com/Rhymond/go-money"
)

// DisplayAmount formats v in the notation of currency, e.g. "$1,234.50" for USD.
// Codes unknown to the currency table are shown as a plain two-decimal number
// followed by the code.
func DisplayAmount(v float64, currency string) string {
	if currency == "" || money.GetCurrency(currency) == nil {
		text := strconv.FormatFloat(v, 'f', 2, 64)
		if currency == "" {
			return text
		}
		return text + " " + currency
	}
	return money.NewFromFloat(v, currency).Display()
}

// DisplayRatio formats a return ratio as a percentage with two decimals.
func DisplayRatio(r float64) string {
	return strconv.FormatFloat(r*100, 'f', 2, 64) + "%"
}

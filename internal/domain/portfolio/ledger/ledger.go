// Package ledger builds the positional rows appended to a fund tab when a new
// transaction is entered.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/normalizer"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/repository"
)

var ErrInvalidTransaction = errors.New("invalid transaction")

// Category is the kind of a transaction.
type Category string

const (
	Buy              Category = "Buy"
	Sell             Category = "Sell"
	DividendReinvest Category = "DividendReinvest"
	TransferIn       Category = "TransferIn"
	TransferOut      Category = "TransferOut"
)

// Categories in the order they are offered to users.
var Categories = []Category{Buy, Sell, DividendReinvest, TransferIn, TransferOut}

// Labels used in the category column of existing fund tabs.
var categoryLabels = map[Category]string{
	Buy:              "買入",
	Sell:             "賣出",
	DividendReinvest: "配息再投資",
	TransferIn:       "轉換入",
	TransferOut:      "轉換出",
}

// Label returns the text written to the sheet for c.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ParseCategory accepts a category name ("Buy", case-insensitive) or its sheet label ("買入").
func ParseCategory(raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	for _, c := range Categories {
		if strings.EqualFold(raw, string(c)) || raw == c.Label() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidTransaction, raw)
}

// TransactionInput is a transaction as entered by the user.
type TransactionInput struct {
	Date     time.Time
	Category Category
	Price    float64
	Amount   float64
	Fee      float64
}

// Validate checks the input ranges. BuildRow does not call it.
func (in TransactionInput) Validate() error {
	var problems []string
	if in.Date.IsZero() {
		problems = append(problems, "date is required")
	}
	if !in.Category.Valid() {
		problems = append(problems, fmt.Sprintf("unknown category %q", in.Category))
	}
	if in.Price < 0 {
		problems = append(problems, "price must not be negative")
	}
	if in.Amount < 0 {
		problems = append(problems, "amount must not be negative")
	}
	if in.Fee < 0 {
		problems = append(problems, "fee must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTransaction, strings.Join(problems, "; "))
	}
	return nil
}

// UnitCount derives the number of units: the fee reduces units bought but not
// units sold or transferred. A zero price yields zero units.
func (in TransactionInput) UnitCount() float64 {
	if in.Price <= 0 {
		return 0
	}
	if in.Category == Buy {
		return (in.Amount - in.Fee) / in.Price
	}
	return in.Amount / in.Price
}

// BuildRow lays out in as the ten-column row stored in fund tabs:
// date, settlement date, category, amount, price, FX rate, fee, two reserved
// columns and the unit count. Settlement date, FX rate and reserved columns are empty.
func BuildRow(in TransactionInput) repository.OutputRow {
	var row repository.OutputRow
	row[repository.ColDate] = in.Date.Format(normalizer.TradeDateLayout)
	row[repository.ColSettlementDate] = ""
	row[repository.ColCategory] = in.Category.Label()
	row[repository.ColAmount] = in.Amount
	row[repository.ColPrice] = in.Price
	row[repository.ColFXRate] = ""
	row[repository.ColFee] = in.Fee
	row[repository.ColReserved1] = ""
	row[repository.ColReserved2] = ""
	row[repository.ColUnits] = in.UnitCount()
	return row
}

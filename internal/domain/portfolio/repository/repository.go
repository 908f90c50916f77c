// Package repository defines the spreadsheet collaborators used by the portfolio
// pipeline and the data access for the append journal.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTabNotFound is returned by stores when the requested tab does not exist.
var ErrTabNotFound = errors.New("tab not found")

// RawSheet is a row-major grid of text cells. The first row holds the raw headers.
type RawSheet [][]string

// Header returns the first row, or nil for an empty sheet.
func (s RawSheet) Header() []string {
	if len(s) == 0 {
		return nil
	}
	return s[0]
}

// Rows returns the data rows below the header.
func (s RawSheet) Rows() [][]string {
	if len(s) < 2 {
		return nil
	}
	return s[1:]
}

// OutputRowWidth is the fixed number of positional fields in an appended transaction row.
const OutputRowWidth = 10

// Positions inside an OutputRow. Settlement date, FX rate and the two columns after
// the fee are always written empty.
const (
	ColDate = iota
	ColSettlementDate
	ColCategory
	ColAmount
	ColPrice
	ColFXRate
	ColFee
	ColReserved1
	ColReserved2
	ColUnits
)

// OutputRow is the positional row appended to a fund tab. Text fields hold string,
// numeric fields hold float64.
type OutputRow [OutputRowWidth]any

// Values returns the row as a slice, the shape expected by the stores.
func (r OutputRow) Values() []any {
	out := make([]any, OutputRowWidth)
	copy(out, r[:])
	return out
}

// SheetReader reads tabs from the remote tabular store.
type SheetReader interface {
	ListTabs(ctx context.Context) ([]string, error)
	ReadTab(ctx context.Context, name string) (RawSheet, error)
}

// SheetWriter appends rows to a tab of the remote tabular store.
type SheetWriter interface {
	AppendRow(ctx context.Context, tab string, row OutputRow) error
}

// Spreadsheet is a store that can be both read and appended to.
type Spreadsheet interface {
	SheetReader
	SheetWriter
}

// JournalEntry records one transaction row appended through the service
type JournalEntry struct {
	ID        uuid.UUID `db:"id"`
	Tab       string    `db:"tab"`
	TradeDate string    `db:"trade_date"`
	Category  string    `db:"category"`
	Amount    float64   `db:"amount"`
	Price     float64   `db:"price"`
	Fee       float64   `db:"fee"`
	Units     float64   `db:"units"`
	RowValues []any     `db:"row_values"`
	CreatedAt time.Time `db:"created_at"`
}

// JournalRepository defines data access for the append journal
type JournalRepository interface {
	RecordAppend(ctx context.Context, entry *JournalEntry) error
	ListAppends(ctx context.Context, tab string, limit int) ([]*JournalEntry, error)
}

// Package gsheets reads and appends fund tabs in a Google Sheets spreadsheet.
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/repository"
)

var ErrMissingSpreadsheetID = errors.New("spreadsheet id is required")

// Rows are appended exactly as given; Sheets does not reinterpret the text.
const valueInputOption = "RAW"

// Store implements repository.Spreadsheet on top of the Sheets v4 API.
type Store struct {
	svc           *sheets.Service
	spreadsheetID string
}

var _ repository.Spreadsheet = (*Store)(nil)

// New creates a store for one spreadsheet. Callers pass the credentials option,
// e.g. option.WithCredentialsFile for a service account key.
func New(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Store, error) {
	if spreadsheetID == "" {
		return nil, ErrMissingSpreadsheetID
	}

	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return &Store{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// NewWithCredentialsFile creates a store authenticated with a service account key file.
// An empty path falls back to application default credentials.
func NewWithCredentialsFile(ctx context.Context, spreadsheetID, credentialsFile string) (*Store, error) {
	if credentialsFile == "" {
		return New(ctx, spreadsheetID)
	}
	return New(ctx, spreadsheetID, option.WithCredentialsFile(credentialsFile))
}

// ListTabs returns the tab titles in spreadsheet order.
func (s *Store) ListTabs(ctx context.Context) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets(properties(title))").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}

	tabs := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties == nil {
			continue
		}
		tabs = append(tabs, sh.Properties.Title)
	}
	return tabs, nil
}

// ReadTab returns every formatted cell of a tab.
func (s *Store) ReadTab(ctx context.Context, name string) (repository.RawSheet, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, tabRange(name)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapTabError("failed to read tab", name, err)
	}

	sheet := make(repository.RawSheet, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellText(v)
		}
		sheet = append(sheet, cells)
	}
	return sheet, nil
}

// AppendRow appends row after the last row of tab.
func (s *Store) AppendRow(ctx context.Context, tab string, row repository.OutputRow) error {
	vr := &sheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         [][]interface{}{row.Values()},
	}

	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, tabRange(tab), vr).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return wrapTabError("failed to append row", tab, err)
	}
	return nil
}

// tabRange quotes a tab title as an A1 range covering the whole tab.
func tabRange(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func wrapTabError(msg, tab string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusNotFound ||
			(apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "Unable to parse range")) {
			return fmt.Errorf("%s %q: %w: %w", msg, tab, repository.ErrTabNotFound, err)
		}
	}
	return fmt.Errorf("%s %q: %w", msg, tab, err)
}

func cellText(v interface{}) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	default:
		return fmt.Sprint(c)
	}
}

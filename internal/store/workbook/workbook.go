// Package workbook reads and appends fund tabs in a local .xlsx file.
package workbook

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/repository"
)

var ErrMissingPath = errors.New("workbook path is required")

// Store implements repository.Spreadsheet on an .xlsx file. The file is opened on
// every call so edits made in a spreadsheet application are picked up.
type Store struct {
	path string
}

var _ repository.Spreadsheet = (*Store)(nil)

// New creates a store backed by the workbook at path.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, ErrMissingPath
	}
	return &Store{path: path}, nil
}

// ListTabs returns the sheet names in workbook order.
func (s *Store) ListTabs(ctx context.Context) ([]string, error) {
	f, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// ReadTab returns the raw cell text of a sheet. Numbers come back in the shortest
// form that parses to the stored value, not in the cell's display format.
func (s *Store) ReadTab(ctx context.Context, name string) (repository.RawSheet, error) {
	f, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
		return nil, fmt.Errorf("failed to read tab %q: %w", name, repository.ErrTabNotFound)
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read tab %q: %w", name, err)
	}
	return repository.RawSheet(rows), nil
}

// AppendRow writes row below the last used row of tab and saves the workbook.
func (s *Store) AppendRow(ctx context.Context, tab string, row repository.OutputRow) error {
	f, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(tab); err != nil || idx < 0 {
		return fmt.Errorf("failed to append row to %q: %w", tab, repository.ErrTabNotFound)
	}

	rows, err := f.GetRows(tab)
	if err != nil {
		return fmt.Errorf("failed to append row to %q: %w", tab, err)
	}

	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return fmt.Errorf("failed to append row to %q: %w", tab, err)
	}

	values := row.Values()
	if err := f.SetSheetRow(tab, cell, &values); err != nil {
		return fmt.Errorf("failed to append row to %q: %w", tab, err)
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (s *Store) open(ctx context.Context) (*excelize.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return f, nil
}

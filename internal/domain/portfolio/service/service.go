// Package service runs the portfolio pipeline: read a tab, normalize it, resolve
// the summary columns, aggregate, and append new transactions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/fund-tracker/internal/domain/common"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/aggregator"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/ledger"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/normalizer"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/repository"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/sniffer"
	"github.com/FACorreiaa/fund-tracker/pkg/observability"
)

var (
	ErrTabNotWritable  = fmt.Errorf("%w: tab does not accept transactions", common.ErrBadRequest)
	ErrEmptyTab        = fmt.Errorf("%w: tab has no rows", common.ErrNotFound)
	ErrJournalDisabled = fmt.Errorf("%w: journal is not configured", common.ErrUnavailable)
	ErrJournalQuery    = errors.New("journal query failed")
)

const (
	tabsCacheKey     = "tabs"
	tabCacheKeyStem  = "tab:"
	previewRowLimit  = 5
	defaultSummary   = "總和"
	tracerName       = "fundtracker/service"
	journalListLimit = 50
)

// Options configures the service. Zero values fall back to the workbook defaults.
type Options struct {
	SummaryTab       string
	ViewIgnoreTabs   []string
	AppendIgnoreTabs []string
	RoleTable        sniffer.RoleTable
	CacheTTL         time.Duration
}

// Overview is the aggregated summary tab.
type Overview struct {
	Tab             string
	Headers         []string
	Fingerprint     string
	Summary         aggregator.Summary
	DegradedSamples []string
}

// OverviewError is returned when the summary tab cannot be aggregated. It carries the
// first rows of the tab so the caller can show what was actually read.
type OverviewError struct {
	Tab     string
	Headers []string
	Preview [][]string
	Err     error
}

func (e *OverviewError) Error() string {
	return fmt.Sprintf("failed to aggregate tab %q: %v", e.Tab, e.Err)
}

func (e *OverviewError) Unwrap() error {
	return e.Err
}

// FundTable is one fund tab with unique headers and rows padded to the header width.
type FundTable struct {
	Tab     string
	Headers []string
	Rows    [][]string
}

// AppendResult describes a row written to a fund tab.
type AppendResult struct {
	Tab   string
	Row   repository.OutputRow
	Units float64
}

// PortfolioService orchestrates reads and appends against the spreadsheet.
type PortfolioService struct {
	store   repository.Spreadsheet
	journal repository.JournalRepository
	cache   *cache.Cache
	opts    Options
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewPortfolioService creates the service. journal may be nil.
func NewPortfolioService(store repository.Spreadsheet, journal repository.JournalRepository, opts Options, logger *slog.Logger) *PortfolioService {
	if opts.SummaryTab == "" {
		opts.SummaryTab = defaultSummary
	}
	if opts.RoleTable == nil {
		opts.RoleTable = sniffer.DefaultRoleTable
	}

	cleanup := time.Duration(0)
	if opts.CacheTTL > 0 {
		cleanup = 2 * opts.CacheTTL
	}

	return &PortfolioService{
		store:   store,
		journal: journal,
		cache:   cache.New(opts.CacheTTL, cleanup),
		opts:    opts,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// Overview reads the summary tab and aggregates it by currency.
func (s *PortfolioService) Overview(ctx context.Context) (*Overview, error) {
	tab := s.opts.SummaryTab
	ctx, span := s.tracer.Start(ctx, "PortfolioService.Overview", trace.WithAttributes(attribute.String("tab", tab)))
	defer span.End()

	l := s.logger.With(slog.String("method", "Overview"), slog.String("tab", tab))
	l.DebugContext(ctx, "Building overview")

	sheet, err := s.readTab(ctx, tab)
	if err != nil {
		recordSpanError(span, err)
		l.ErrorContext(ctx, "Failed to read summary tab", slog.Any("error", err))
		return nil, err
	}

	headers, records := aggregator.BuildRecords(sheet)
	fingerprint := sniffer.Fingerprint(headers)

	roles, err := sniffer.Resolve(headers, s.opts.RoleTable)
	if err != nil {
		recordSpanError(span, err)
		l.WarnContext(ctx, "Summary columns could not be resolved",
			slog.Any("error", err), slog.String("fingerprint", fingerprint))
		return nil, &OverviewError{
			Tab:     tab,
			Headers: headers,
			Preview: preview(sheet.Rows(), previewRowLimit),
			Err:     err,
		}
	}

	resolved := make([]any, 0, len(sniffer.Roles))
	for _, role := range sniffer.Roles {
		if col, ok := roles.Get(role); ok {
			resolved = append(resolved, slog.String(string(role), col.Header))
		}
	}
	l.DebugContext(ctx, "Summary columns resolved", slog.Group("columns", resolved...))

	var coercer normalizer.Coercer
	summary := aggregator.Aggregate(records, roles, &coercer)
	if summary.Degraded > 0 {
		observability.CoercionDegraded.WithLabelValues(tab).Add(float64(summary.Degraded))
		l.WarnContext(ctx, "Some numeric cells read as zero",
			slog.Int("degraded", summary.Degraded), slog.Any("samples", coercer.Samples()))
	}

	span.SetAttributes(
		attribute.Int("holdings", len(summary.Holdings)),
		attribute.Int("currencies", len(summary.Currencies)),
	)
	l.InfoContext(ctx, "Overview built",
		slog.Int("holdings", len(summary.Holdings)), slog.String("fingerprint", fingerprint))

	return &Overview{
		Tab:             tab,
		Headers:         headers,
		Fingerprint:     fingerprint,
		Summary:         summary,
		DegradedSamples: coercer.Samples(),
	}, nil
}

// ListFundTabs returns the tabs that hold fund transactions, in spreadsheet order.
func (s *PortfolioService) ListFundTabs(ctx context.Context) ([]string, error) {
	return s.filteredTabs(ctx, s.opts.ViewIgnoreTabs)
}

// ListWritableTabs returns the tabs that accept new transactions.
func (s *PortfolioService) ListWritableTabs(ctx context.Context) ([]string, error) {
	return s.filteredTabs(ctx, s.opts.AppendIgnoreTabs)
}

func (s *PortfolioService) filteredTabs(ctx context.Context, ignore []string) ([]string, error) {
	tabs, err := s.listTabs(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(tabs))
	for _, tab := range tabs {
		if !slices.Contains(ignore, tab) {
			out = append(out, tab)
		}
	}
	return out, nil
}

// FundTab returns one tab with normalized headers.
func (s *PortfolioService) FundTab(ctx context.Context, tab string) (*FundTable, error) {
	ctx, span := s.tracer.Start(ctx, "PortfolioService.FundTab", trace.WithAttributes(attribute.String("tab", tab)))
	defer span.End()

	l := s.logger.With(slog.String("method", "FundTab"), slog.String("tab", tab))

	sheet, err := s.readTab(ctx, tab)
	if err != nil {
		recordSpanError(span, err)
		l.ErrorContext(ctx, "Failed to read fund tab", slog.Any("error", err))
		return nil, err
	}
	if len(sheet) == 0 {
		l.InfoContext(ctx, "Fund tab is empty")
		return nil, fmt.Errorf("%w: %q", ErrEmptyTab, tab)
	}

	headers := normalizer.NormalizeHeaders(sheet.Header())
	rows := make([][]string, 0, len(sheet.Rows()))
	for _, row := range sheet.Rows() {
		cells := make([]string, len(headers))
		copy(cells, row)
		rows = append(rows, cells)
	}

	return &FundTable{Tab: tab, Headers: headers, Rows: rows}, nil
}

// PreviewTransaction validates in against tab and returns the row AppendTransaction
// would write, without touching the spreadsheet.
func (s *PortfolioService) PreviewTransaction(ctx context.Context, tab string, in ledger.TransactionInput) (*AppendResult, error) {
	if err := s.checkTransaction(tab, in); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "Transaction previewed", slog.String("tab", tab), slog.Float64("units", in.UnitCount()))
	return &AppendResult{Tab: tab, Row: ledger.BuildRow(in), Units: in.UnitCount()}, nil
}

func (s *PortfolioService) checkTransaction(tab string, in ledger.TransactionInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if slices.Contains(s.opts.AppendIgnoreTabs, tab) {
		return fmt.Errorf("%w: %q", ErrTabNotWritable, tab)
	}
	return nil
}

// AppendTransaction validates in, writes it as a new row of tab and returns the row.
// The cached rows of tab and of the summary tab are dropped so the next reads see the
// new row and the totals derived from it.
func (s *PortfolioService) AppendTransaction(ctx context.Context, tab string, in ledger.TransactionInput) (*AppendResult, error) {
	ctx, span := s.tracer.Start(ctx, "PortfolioService.AppendTransaction", trace.WithAttributes(
		attribute.String("tab", tab),
		attribute.String("category", string(in.Category)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "AppendTransaction"), slog.String("tab", tab))

	if err := s.checkTransaction(tab, in); err != nil {
		recordSpanError(span, err)
		observability.RowsAppended.WithLabelValues("invalid").Inc()
		return nil, err
	}

	tabs, err := s.listTabs(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if !slices.Contains(tabs, tab) {
		observability.RowsAppended.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %q", repository.ErrTabNotFound, tab)
	}

	row := ledger.BuildRow(in)
	if err := s.store.AppendRow(ctx, tab, row); err != nil {
		recordSpanError(span, err)
		observability.RowsAppended.WithLabelValues("failed").Inc()
		l.ErrorContext(ctx, "Failed to append transaction row", slog.Any("error", err))
		return nil, err
	}
	s.cache.Delete(tabCacheKeyStem + tab)
	s.cache.Delete(tabCacheKeyStem + s.opts.SummaryTab)
	observability.RowsAppended.WithLabelValues("ok").Inc()

	units := in.UnitCount()
	if s.journal != nil {
		entry := &repository.JournalEntry{
			Tab:       tab,
			TradeDate: in.Date.Format(normalizer.TradeDateLayout),
			Category:  in.Category.Label(),
			Amount:    in.Amount,
			Price:     in.Price,
			Fee:       in.Fee,
			Units:     units,
			RowValues: row.Values(),
		}
		if err := s.journal.RecordAppend(ctx, entry); err != nil {
			l.WarnContext(ctx, "Row appended but journal entry failed", slog.Any("error", err))
		}
	}

	l.InfoContext(ctx, "Transaction appended",
		slog.String("category", string(in.Category)), slog.Float64("units", units))
	return &AppendResult{Tab: tab, Row: row, Units: units}, nil
}

// ListJournal returns recently appended rows, newest first. An empty tab lists all tabs.
func (s *PortfolioService) ListJournal(ctx context.Context, tab string, limit int) ([]*repository.JournalEntry, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	if limit <= 0 {
		limit = journalListLimit
	}

	entries, err := s.journal.ListAppends(ctx, tab, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list journal", slog.String("tab", tab), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrJournalQuery, err)
	}
	return entries, nil
}

// Refresh drops every cached tab so the next read goes to the store.
func (s *PortfolioService) Refresh(ctx context.Context) {
	s.cache.Flush()
	s.logger.InfoContext(ctx, "Sheet cache cleared")
}

// readTab returns the cached rows of a tab or fetches them. Store errors are returned as is.
func (s *PortfolioService) readTab(ctx context.Context, tab string) (repository.RawSheet, error) {
	key := tabCacheKeyStem + tab
	if cached, ok := s.cache.Get(key); ok {
		observability.SheetReads.WithLabelValues("cache").Inc()
		return cached.(repository.RawSheet), nil
	}

	sheet, err := s.store.ReadTab(ctx, tab)
	if err != nil {
		return nil, err
	}
	observability.SheetReads.WithLabelValues("remote").Inc()
	s.cache.Set(key, sheet, cache.DefaultExpiration)
	return sheet, nil
}

func (s *PortfolioService) listTabs(ctx context.Context) ([]string, error) {
	if cached, ok := s.cache.Get(tabsCacheKey); ok {
		return cached.([]string), nil
	}

	tabs, err := s.store.ListTabs(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list tabs", slog.Any("error", err))
		return nil, err
	}
	s.cache.Set(tabsCacheKey, tabs, cache.DefaultExpiration)
	return tabs, nil
}

func preview(rows [][]string, limit int) [][]string {
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// IsFieldResolution reports whether err is a column resolution failure.
func IsFieldResolution(err error) bool {
	return errors.Is(err, sniffer.ErrFieldUnresolved)
}

// Package handler implements the DashboardService Connect RPC handlers.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/FACorreiaa/fund-tracker/internal/domain/common"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/aggregator"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/ledger"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/normalizer"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/repository"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/service"
)

const DashboardServiceName = "fundtracker.v1.DashboardService"

const (
	GetOverviewProcedure        = "/" + DashboardServiceName + "/GetOverview"
	ListFundTabsProcedure       = "/" + DashboardServiceName + "/ListFundTabs"
	GetFundTabProcedure         = "/" + DashboardServiceName + "/GetFundTab"
	AppendTransactionProcedure  = "/" + DashboardServiceName + "/AppendTransaction"
	PreviewTransactionProcedure = "/" + DashboardServiceName + "/PreviewTransaction"
	RefreshProcedure            = "/" + DashboardServiceName + "/Refresh"
	ListJournalProcedure        = "/" + DashboardServiceName + "/ListJournal"
)

// previewMetaKey carries the first summary rows on a FailedPrecondition error.
const previewMetaKey = "Fundtracker-Preview-Bin"

// PortfolioService is the part of the service the handler exposes.
type PortfolioService interface {
	Overview(ctx context.Context) (*service.Overview, error)
	ListFundTabs(ctx context.Context) ([]string, error)
	ListWritableTabs(ctx context.Context) ([]string, error)
	FundTab(ctx context.Context, tab string) (*service.FundTable, error)
	AppendTransaction(ctx context.Context, tab string, in ledger.TransactionInput) (*service.AppendResult, error)
	PreviewTransaction(ctx context.Context, tab string, in ledger.TransactionInput) (*service.AppendResult, error)
	ListJournal(ctx context.Context, tab string, limit int) ([]*repository.JournalEntry, error)
	Refresh(ctx context.Context)
}

var _ PortfolioService = (*service.PortfolioService)(nil)

// DashboardHandler implements the DashboardService Connect handlers.
type DashboardHandler struct {
	svc    PortfolioService
	logger *slog.Logger
}

// NewDashboardHandler constructs a new handler.
func NewDashboardHandler(svc PortfolioService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, logger: logger}
}

// NewDashboardServiceHandler builds an HTTP handler serving every DashboardService
// procedure and returns the path to mount it on.
func NewDashboardServiceHandler(h *DashboardHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetOverviewProcedure, connect.NewUnaryHandler(GetOverviewProcedure, h.GetOverview, opts...))
	mux.Handle(ListFundTabsProcedure, connect.NewUnaryHandler(ListFundTabsProcedure, h.ListFundTabs, opts...))
	mux.Handle(GetFundTabProcedure, connect.NewUnaryHandler(GetFundTabProcedure, h.GetFundTab, opts...))
	mux.Handle(AppendTransactionProcedure, connect.NewUnaryHandler(AppendTransactionProcedure, h.AppendTransaction, opts...))
	mux.Handle(PreviewTransactionProcedure, connect.NewUnaryHandler(PreviewTransactionProcedure, h.PreviewTransaction, opts...))
	mux.Handle(RefreshProcedure, connect.NewUnaryHandler(RefreshProcedure, h.Refresh, opts...))
	mux.Handle(ListJournalProcedure, connect.NewUnaryHandler(ListJournalProcedure, h.ListJournal, opts...))
	return "/" + DashboardServiceName + "/", mux
}

// GetOverview returns the summary tab aggregated by currency.
func (h *DashboardHandler) GetOverview(
	ctx context.Context,
	_ *connect.Request[GetOverviewRequest],
) (*connect.Response[GetOverviewResponse], error) {
	overview, err := h.svc.Overview(ctx)
	if err != nil {
		return nil, h.toConnectError(ctx, err)
	}

	summary := overview.Summary
	resp := &GetOverviewResponse{
		Tab:              overview.Tab,
		Headers:          overview.Headers,
		Fingerprint:      overview.Fingerprint,
		Holdings:         holdingViews(summary.Holdings),
		Ranking:          holdingViews(summary.Ranking),
		TotalValue:       summary.TotalValue,
		TotalProfit:      summary.TotalProfit,
		TotalReturnRatio: summary.TotalReturnRatio,
		Degraded:         summary.Degraded,
		DegradedSamples:  overview.DegradedSamples,
	}
	for _, g := range summary.Groups {
		resp.Currencies = append(resp.Currencies, CurrencyView{
			Currency:     g.Currency,
			TotalValue:   g.TotalValue,
			TotalProfit:  g.TotalProfit,
			ReturnRatio:  g.ReturnRatio,
			MemberCount:  g.MemberCount,
			DisplayValue: aggregator.DisplayAmount(g.TotalValue, g.Currency),
		})
	}

	return connect.NewResponse(resp), nil
}

// ListFundTabs lists viewable fund tabs, or writable ones when asked.
func (h *DashboardHandler) ListFundTabs(
	ctx context.Context,
	req *connect.Request[ListFundTabsRequest],
) (*connect.Response[ListFundTabsResponse], error) {
	list := h.svc.ListFundTabs
	if req.Msg.Writable {
		list = h.svc.ListWritableTabs
	}

	tabs, err := list(ctx)
	if err != nil {
		return nil, h.toConnectError(ctx, err)
	}
	if tabs == nil {
		tabs = []string{}
	}
	return connect.NewResponse(&ListFundTabsResponse{Tabs: tabs}), nil
}

// GetFundTab returns the rows of one fund tab.
func (h *DashboardHandler) GetFundTab(
	ctx context.Context,
	req *connect.Request[GetFundTabRequest],
) (*connect.Response[GetFundTabResponse], error) {
	if req.Msg.Tab == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("tab is required"))
	}

	table, err := h.svc.FundTab(ctx, req.Msg.Tab)
	if err != nil {
		return nil, h.toConnectError(ctx, err)
	}

	return connect.NewResponse(&GetFundTabResponse{
		Tab:     table.Tab,
		Headers: table.Headers,
		Rows:    table.Rows,
	}), nil
}

// AppendTransaction writes one transaction row to a fund tab.
func (h *DashboardHandler) AppendTransaction(
	ctx context.Context,
	req *connect.Request[AppendTransactionRequest],
) (*connect.Response[AppendTransactionResponse], error) {
	in, err := transactionInput(req.Msg)
	if err != nil {
		return nil, err
	}

	result, err := h.svc.AppendTransaction(ctx, req.Msg.Tab, in)
	if err != nil {
		return nil, h.toConnectError(ctx, err)
	}
	return connect.NewResponse(appendResponse(result)), nil
}

// PreviewTransaction returns the row and unit count AppendTransaction would write.
func (h *DashboardHandler) PreviewTransaction(
	ctx context.Context,
	req *connect.Request[AppendTransactionRequest],
) (*connect.Response[AppendTransactionResponse], error) {
	in, err := transactionInput(req.Msg)
	if err != nil {
		return nil, err
	}

	result, err := h.svc.PreviewTransaction(ctx, req.Msg.Tab, in)
	if err != nil {
		return nil, h.toConnectError(ctx, err)
	}
	return connect.NewResponse(appendResponse(result)), nil
}

func transactionInput(msg *AppendTransactionRequest) (ledger.TransactionInput, error) {
	if msg.Tab == "" {
		return ledger.TransactionInput{}, connect.NewError(connect.CodeInvalidArgument, errors.New("tab is required"))
	}

	date, err := normalizer.ParseTradeDate(msg.Date)
	if err != nil {
		return ledger.TransactionInput{}, connect.NewError(connect.CodeInvalidArgument, err)
	}
	category, err := ledger.ParseCategory(msg.Category)
	if err != nil {
		return ledger.TransactionInput{}, connect.NewError(connect.CodeInvalidArgument, err)
	}

	return ledger.TransactionInput{
		Date:     date,
		Category: category,
		Price:    msg.Price,
		Amount:   msg.Amount,
		Fee:      msg.Fee,
	}, nil
}

func appendResponse(result *service.AppendResult) *AppendTransactionResponse {
	return &AppendTransactionResponse{
		Tab:   result.Tab,
		Row:   result.Row.Values(),
		Units: result.Units,
	}
}

// Refresh drops cached sheet data.
func (h *DashboardHandler) Refresh(
	ctx context.Context,
	_ *connect.Request[RefreshRequest],
) (*connect.Response[RefreshResponse], error) {
	h.svc.Refresh(ctx)
	return connect.NewResponse(&RefreshResponse{}), nil
}

// ListJournal returns recently appended transactions.
func (h *DashboardHandler) ListJournal(
	ctx context.Context,
	req *connect.Request[ListJournalRequest],
) (*connect.Response[ListJournalResponse], error) {
	if req.Msg.Limit < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("limit must not be negative"))
	}

	entries, err := h.svc.ListJournal(ctx, req.Msg.Tab, req.Msg.Limit)
	if err != nil {
		return nil, h.toConnectError(ctx, err)
	}

	resp := &ListJournalResponse{Entries: make([]JournalEntryView, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, JournalEntryView{
			ID:        e.ID.String(),
			Tab:       e.Tab,
			TradeDate: e.TradeDate,
			Category:  e.Category,
			Amount:    e.Amount,
			Price:     e.Price,
			Fee:       e.Fee,
			Units:     e.Units,
			CreatedAt: e.CreatedAt,
		})
	}
	return connect.NewResponse(resp), nil
}

func holdingViews(holdings []aggregator.Holding) []HoldingView {
	out := make([]HoldingView, 0, len(holdings))
	for _, hd := range holdings {
		out = append(out, HoldingView{
			Name:         hd.Name,
			Currency:     hd.Currency,
			Value:        hd.Value,
			Profit:       hd.Profit,
			ReturnRatio:  hd.ReturnRatio,
			DisplayValue: aggregator.DisplayAmount(hd.Value, hd.Currency),
		})
	}
	return out
}

// toConnectError maps service errors onto Connect codes. Errors without a known
// sentinel come from the spreadsheet store and are reported as Unavailable.
func (h *DashboardHandler) toConnectError(ctx context.Context, err error) error {
	var overviewErr *service.OverviewError

	switch {
	case errors.As(err, &overviewErr):
		connectErr := connect.NewError(connect.CodeFailedPrecondition, err)
		if preview, marshalErr := json.Marshal(overviewErr.Preview); marshalErr == nil {
			connectErr.Meta().Set(previewMetaKey, connect.EncodeBinaryHeader(preview))
		}
		return connectErr
	case service.IsFieldResolution(err):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, ledger.ErrInvalidTransaction),
		errors.Is(err, normalizer.ErrInvalidDate),
		errors.Is(err, common.ErrBadRequest):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, repository.ErrTabNotFound), errors.Is(err, common.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, common.ErrUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, service.ErrJournalQuery):
		h.logger.ErrorContext(ctx, "journal query failed", slog.Any("error", err))
		return connect.NewError(connect.CodeInternal, errors.New("journal query failed"))
	default:
		h.logger.WarnContext(ctx, "spreadsheet store failed", slog.Any("error", err))
		return connect.NewError(connect.CodeUnavailable, err)
	}
}

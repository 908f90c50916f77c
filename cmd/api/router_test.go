package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/handler"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/repository"
	"github.com/FACorreiaa/fund-tracker/internal/domain/portfolio/service"
	"github.com/FACorreiaa/fund-tracker/pkg/config"
)

type stubSpreadsheet struct {
	err error
}

func (s *stubSpreadsheet) ListTabs(context.Context) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []string{"總和", "Fund A"}, nil
}

func (s *stubSpreadsheet) ReadTab(context.Context, string) (repository.RawSheet, error) {
	return nil, s.err
}

func (s *stubSpreadsheet) AppendRow(context.Context, string, repository.OutputRow) error {
	return s.err
}

func newTestDeps(store repository.Spreadsheet, metrics bool) *Dependencies {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{}
	cfg.Observability.MetricsEnabled = metrics
	svc := service.NewPortfolioService(store, nil, service.Options{ViewIgnoreTabs: config.DefaultViewIgnoreTabs}, logger)
	return &Dependencies{
		Config:           cfg,
		Logger:           logger,
		Spreadsheet:      store,
		PortfolioService: svc,
		DashboardHandler: handler.NewDashboardHandler(svc, logger),
	}
}

func TestSetupRouter_Health(t *testing.T) {
	router := SetupRouter(newTestDeps(&stubSpreadsheet{}, false))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSetupRouter_Ready(t *testing.T) {
	t.Run("sheet reachable", func(t *testing.T) {
		router := SetupRouter(newTestDeps(&stubSpreadsheet{}, false))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["sheet"]["status"])
		assert.Equal(t, "disabled", body["db"]["status"])
	})

	t.Run("outage after a successful check", func(t *testing.T) {
		store := &stubSpreadsheet{}
		router := SetupRouter(newTestDeps(store, false))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		store.err = errors.New("backend down")
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("sheet unreachable", func(t *testing.T) {
		router := SetupRouter(newTestDeps(&stubSpreadsheet{err: errors.New("forbidden")}, false))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestSetupRouter_Metrics(t *testing.T) {
	rec := httptest.NewRecorder()
	SetupRouter(newTestDeps(&stubSpreadsheet{}, true)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	SetupRouter(newTestDeps(&stubSpreadsheet{}, false)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetupRouter_ConnectRoute(t *testing.T) {
	router := SetupRouter(newTestDeps(&stubSpreadsheet{}, false))

	req := httptest.NewRequest(http.MethodPost, handler.ListFundTabsProcedure, nil)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body handler.ListFundTabsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"Fund A"}, body.Tabs)
}

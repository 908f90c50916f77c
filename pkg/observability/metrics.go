package observability

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total number of RPC requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundtracker_rpc_requests_total",
			Help: "Total number of RPC requests",
		},
		[]string{"procedure", "code"},
	)

	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fundtracker_rpc_duration_seconds",
			Help:    "RPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"procedure"},
	)

	// SheetReads counts tab reads by where the rows came from (cache or remote)
	SheetReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundtracker_sheet_reads_total",
			Help: "Tab reads served from the cache or the remote store",
		},
		[]string{"source"},
	)

	// CoercionDegraded counts numeric cells that could not be parsed and read as zero
	CoercionDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundtracker_coercion_degraded_total",
			Help: "Numeric cells that fell back to zero",
		},
		[]string{"tab"},
	)

	// RowsAppended counts transaction appends by result
	RowsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fundtracker_rows_appended_total",
			Help: "Transaction rows appended to fund tabs",
		},
		[]string{"result"},
	)
)

// NewMetricsInterceptor creates an interceptor that collects Prometheus metrics
func NewMetricsInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure

			start := time.Now()
			defer func() {
				RequestDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			}()

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					code = connectErr.Code().String()
				} else {
					code = "unknown"
				}
			}
			RequestsTotal.WithLabelValues(procedure, code).Inc()

			return resp, err
		}
	}
}

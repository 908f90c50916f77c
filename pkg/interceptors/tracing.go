package interceptors

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingInterceptor instruments unary RPCs with OpenTelemetry spans.
type TracingInterceptor struct {
	tracer trace.Tracer
}

// NewTracingInterceptor creates a tracing interceptor.
func NewTracingInterceptor(tracer trace.Tracer) connect.UnaryInterceptorFunc {
	if tracer == nil {
		tracer = otel.Tracer("fundtracker/interceptors")
	}
	i := &TracingInterceptor{tracer: tracer}
	return i.wrapUnary
}

func (i *TracingInterceptor) wrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		procedure := req.Spec().Procedure
		ctx, span := i.tracer.Start(ctx, procedure, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(
			attribute.String("rpc.system", "connect"),
			attribute.String("rpc.service", serviceFromProcedure(procedure)),
			attribute.String("rpc.method", methodFromProcedure(procedure)),
		)
		if id, ok := RequestIDFromContext(ctx); ok {
			span.SetAttributes(attribute.String("request.id", id))
		}

		resp, err := next(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "ok")
		}
		return resp, err
	}
}

// serviceFromProcedure turns "/pkg.Service/Method" into "pkg.Service".
func serviceFromProcedure(procedure string) string {
	p := strings.TrimPrefix(procedure, "/")
	if i := strings.LastIndex(p, "/"); i > 0 {
		return p[:i]
	}
	return p
}

func methodFromProcedure(procedure string) string {
	if i := strings.LastIndex(procedure, "/"); i >= 0 {
		return procedure[i+1:]
	}
	return procedure
}

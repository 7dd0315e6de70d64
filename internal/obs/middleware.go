package obs

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// StatusRecorder wraps ResponseWriter to capture status code and bytes written.
type StatusRecorder struct {
	http.ResponseWriter
	status       int
	bytesWritten int64
}

// NewStatusRecorder constructs a status recorder with default 200 status.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader stores the status code before delegating.
func (sr *StatusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Write records the number of bytes written.
func (sr *StatusRecorder) Write(p []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(p)
	sr.bytesWritten += int64(n)
	return n, err
}

// Status returns the response status code.
func (sr *StatusRecorder) Status() int { return sr.status }

// BytesWritten returns the number of bytes written to the client.
func (sr *StatusRecorder) BytesWritten() int64 { return sr.bytesWritten }

// HTTPObs instruments HTTP handlers with metrics.
type HTTPObs struct {
	Metrics *HTTPMetrics
}

// Middleware counts requests by route, status and quote result and records
// their latency.
func (o HTTPObs) Middleware(next http.Handler) http.Handler {
	if o.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, info := WithRequestInfo(r.Context())
		recorder := NewStatusRecorder(w)
		o.Metrics.InFlight.Inc()
		start := time.Now()
		next.ServeHTTP(recorder, r.WithContext(ctx))
		o.Metrics.InFlight.Dec()

		route := resolveRoute(ctx, info)
		if route == "" {
			route = "unknown"
		}
		o.Metrics.Observe(r.Method, route, recorder.Status(), info.quoteResult(), time.Since(start))
	})
}

// RoutePatternMiddleware attaches a RequestInfo to the request. chi matches
// the route after router-level middleware runs, so the pattern is resolved
// once the handler returns.
func RoutePatternMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, info := WithRequestInfo(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
		resolveRoute(ctx, info)
	})
}

// resolveRoute fills info.Route from chi's routing context when unset.
func resolveRoute(ctx context.Context, info *RequestInfo) string {
	if info.Route == "" {
		if rc := chi.RouteContext(ctx); rc != nil {
			info.Route = rc.RoutePattern()
		}
	}
	return info.Route
}

// TracingMiddleware starts an OpenTelemetry server span for each incoming
// request. The span is renamed after the matched route and tagged with the
// quote outcome once the handler returns.
func TracingMiddleware(next http.Handler) http.Handler {
	annotated := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, info := WithRequestInfo(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))

		span := trace.SpanFromContext(ctx)
		if route := resolveRoute(ctx, info); route != "" {
			span.SetName(fmt.Sprintf("%s %s", r.Method, route))
			span.SetAttributes(semconv.HTTPRouteKey.String(route))
		}
		if info.QuoteResult != "" {
			span.SetAttributes(
				attribute.String("quote.id", info.QuoteID),
				attribute.String("quote.result", info.QuoteResult),
			)
		}
	})
	return otelhttp.NewHandler(annotated, "http.server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics"
		}),
	)
}

package obs

import "context"

type requestInfoKey struct{}

// RequestInfo collects what handlers learn about a request so the metrics,
// logging and tracing middleware can report it once the handler returns.
type RequestInfo struct {
	// Route is the matched chi pattern, filled in after routing.
	Route string
	// QuoteID and QuoteResult are set by the quote handler.
	QuoteID     string
	QuoteResult string
}

// WithRequestInfo attaches a fresh RequestInfo to ctx. An existing one is
// reused so nested middleware share the same record.
func WithRequestInfo(ctx context.Context) (context.Context, *RequestInfo) {
	if info := RequestInfoFromContext(ctx); info != nil {
		return ctx, info
	}
	info := &RequestInfo{}
	return context.WithValue(ctx, requestInfoKey{}, info), info
}

// RequestInfoFromContext returns the request's RequestInfo, or nil.
func RequestInfoFromContext(ctx context.Context) *RequestInfo {
	if ctx == nil {
		return nil
	}
	info, _ := ctx.Value(requestInfoKey{}).(*RequestInfo)
	return info
}

// WithRoutePattern records pattern as the request's route.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, info := WithRequestInfo(ctx)
	info.Route = pattern
	return ctx
}

// RoutePatternFromContext returns the recorded route, or "".
func RoutePatternFromContext(ctx context.Context) string {
	if info := RequestInfoFromContext(ctx); info != nil {
		return info.Route
	}
	return ""
}

// RecordQuote notes the outcome of a quote request. It is a no-op outside
// the observability middleware.
func RecordQuote(ctx context.Context, quoteID, result string) {
	if info := RequestInfoFromContext(ctx); info != nil {
		info.QuoteID = quoteID
		info.QuoteResult = result
	}
}

// quoteResult labels requests that did not compute a quote.
func (i *RequestInfo) quoteResult() string {
	if i == nil || i.QuoteResult == "" {
		return "none"
	}
	return i.QuoteResult
}

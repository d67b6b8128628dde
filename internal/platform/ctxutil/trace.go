package ctxutil

import "context"

type traceDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceDataKey{})
	if td, ok := val.(*TraceData); ok {
		return td
	}
	return nil
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Detached keeps the trace data of ctx but drops its deadline and
// cancellation, for background work that must outlive the request.
func Detached(ctx context.Context) context.Context {
	out := context.Background()
	if ctx == nil {
		return out
	}
	if td := GetTraceData(ctx); td != nil {
		out = WithTraceData(out, td)
	}
	if rd := GetRequestData(ctx); rd != nil {
		out = WithRequestData(out, rd)
	}
	return out
}

package logger

import (
	"context"
)

type ctxKey struct{}

var traceIDKey ctxKey

// WithTraceID 把 traceId 注入 context，贯穿一次请求或一轮巡检
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID 取出 context 中的 traceId，没有则返回空串
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// TraceIDOr 取出 traceId，没有时返回 fallback
func TraceIDOr(ctx context.Context, fallback string) string {
	if id := GetTraceID(ctx); id != "" {
		return id
	}
	return fallback
}

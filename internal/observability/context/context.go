package obscontext

import (
	"context"
	"strings"
)

type (
	requestIDKey  struct{}
	userIDKey     struct{}
	activityIDKey struct{}
	batchIDKey    struct{}
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return valueOf(ctx, requestIDKey{})
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, userIDKey{}, userID)
}

func UserIDFromContext(ctx context.Context) string {
	return valueOf(ctx, userIDKey{})
}

// WithActivityID tags the request with the activity it draws from.
func WithActivityID(ctx context.Context, activityID string) context.Context {
	return withValue(ctx, activityIDKey{}, activityID)
}

func ActivityIDFromContext(ctx context.Context) string {
	return valueOf(ctx, activityIDKey{})
}

// WithBatchID tags the request with the batch it produced or looked up.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return withValue(ctx, batchIDKey{}, batchID)
}

func BatchIDFromContext(ctx context.Context) string {
	return valueOf(ctx, batchIDKey{})
}

func withValue(ctx context.Context, key any, value string) context.Context {
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueOf(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

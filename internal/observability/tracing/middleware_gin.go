package tracing

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/lottery/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens the server span for a request. Handlers tag the request
// context with the activity and batch they touched; those tags land on the
// span once the handler returns. The caller's user id is never recorded.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("lottery/http")
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+strings.ToUpper(c.Request.Method), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		span.SetName("HTTP " + strings.ToUpper(c.Request.Method) + " " + route)
		span.SetAttributes(SafeAttributes(requestAttributes(c, route, time.Since(start))...)...)

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(SafeError(lastErr.Err))
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func requestAttributes(c *gin.Context, route string, elapsed time.Duration) []attribute.KeyValue {
	ctx := c.Request.Context()
	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", c.Writer.Status()),
		attribute.Int64("http.server_duration_ms", elapsed.Milliseconds()),
	}
	for _, tag := range []struct {
		key   string
		value string
	}{
		{"request_id", obscontext.RequestIDFromContext(ctx)},
		{"lottery.activity_id", obscontext.ActivityIDFromContext(ctx)},
		{"lottery.batch_id", obscontext.BatchIDFromContext(ctx)},
	} {
		if tag.value != "" {
			attrs = append(attrs, attribute.String(tag.key, tag.value))
		}
	}
	return attrs
}

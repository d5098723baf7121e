package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics records request latency for the gin engine.
type HTTPMetrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
}

func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "lottery"
	}
	meter := provider.Meter(name + "/http")

	duration, err := meter.Float64Histogram("lottery_http_server_duration_seconds",
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	requests, err := meter.Int64Counter("lottery_http_server_requests_total")
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{duration: duration, requests: requests}, nil
}

// GinMiddleware records one sample per request keyed by route template.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		attrs := FilterAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
		ctx := c.Request.Context()
		m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
		m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

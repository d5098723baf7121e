package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/lottery/pkg/db"
)

const (
	DrawErrorReasonDeadlineExceeded     = "deadline_exceeded"
	DrawErrorReasonDBLockTimeout        = "db_lock_timeout"
	DrawErrorReasonSerializationFailure = "serialization_failure"
	DrawErrorReasonDeadlock             = "deadlock"
	DrawErrorReasonUniqueViolation      = "unique_violation"
	DrawErrorReasonConnection           = "connection"
	DrawErrorReasonUnknown              = "unknown"
)

const (
	LockResourcePrizeStock = "prize_stock"
	LockResourceUserQuota  = "user_quota"
)

// DrawMetrics captures draw engine health signals scraped from /metrics.
type DrawMetrics struct {
	batchDuration *prometheus.HistogramVec
	lockWait      *prometheus.HistogramVec
	lockBusy      *prometheus.CounterVec
	storageErrors *prometheus.CounterVec
	dbLockWait    *prometheus.HistogramVec
}

var (
	drawMetricsOnce sync.Once
	drawMetrics     *DrawMetrics
)

// Draw returns the singleton draw metrics registry.
func Draw() *DrawMetrics {
	return DrawWithConfig(Config{})
}

// DrawWithConfig returns the singleton draw metrics registry using config labels.
func DrawWithConfig(cfg Config) *DrawMetrics {
	drawMetricsOnce.Do(func() {
		drawMetrics = newDrawMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return drawMetrics
}

// ResetDrawMetricsForTest resets the draw metrics singleton for tests.
func ResetDrawMetricsForTest() {
	drawMetricsOnce = sync.Once{}
	drawMetrics = nil
}

func newDrawMetrics(registerer prometheus.Registerer, cfg Config) *DrawMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "lottery"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &DrawMetrics{
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "lottery_draw_batch_duration_seconds",
			Help:        "Draw batch latency from lock request to commit.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			ConstLabels: constLabels,
		}, []string{"result"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "lottery_draw_lock_wait_seconds",
			Help:        "Time spent waiting for the per user activity draw lock.",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		}, []string{"backend"}),
		lockBusy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "lottery_draw_lock_busy_total",
			Help:        "Draw lock acquisitions that timed out.",
			ConstLabels: constLabels,
		}, []string{"backend"}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "lottery_draw_storage_errors_total",
			Help:        "Draw batches aborted by storage errors, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		dbLockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "lottery_db_lock_wait_seconds",
			Help:        "Row lock wait for stock and quota rows.",
			Buckets:     []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			ConstLabels: constLabels,
		}, []string{"resource"}),
	}

	m.batchDuration = registerHistogramVec(registerer, m.batchDuration)
	m.lockWait = registerHistogramVec(registerer, m.lockWait)
	m.lockBusy = registerCounterVec(registerer, m.lockBusy)
	m.storageErrors = registerCounterVec(registerer, m.storageErrors)
	m.dbLockWait = registerHistogramVec(registerer, m.dbLockWait)
	return m
}

func (m *DrawMetrics) ObserveBatch(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

func (m *DrawMetrics) ObserveLockWait(backend string, duration time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(normalizeLabel(backend)).Observe(duration.Seconds())
}

func (m *DrawMetrics) IncLockBusy(backend string) {
	if m == nil {
		return
	}
	m.lockBusy.WithLabelValues(normalizeLabel(backend)).Inc()
}

func (m *DrawMetrics) IncStorageError(err error) {
	if m == nil || err == nil {
		return
	}
	m.storageErrors.WithLabelValues(ClassifyDrawErrorReason(err)).Inc()
}

func (m *DrawMetrics) ObserveDBLockWait(resource string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbLockWait.WithLabelValues(normalizeLabel(resource)).Observe(duration.Seconds())
}

// ClassifyDrawErrorReason returns a low-cardinality reason for a storage failure.
func ClassifyDrawErrorReason(err error) string {
	switch {
	case err == nil:
		return DrawErrorReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return DrawErrorReasonDeadlineExceeded
	case db.IsLockTimeout(err):
		return DrawErrorReasonDBLockTimeout
	case db.IsSerializationFailure(err):
		return DrawErrorReasonSerializationFailure
	case db.IsDeadlock(err):
		return DrawErrorReasonDeadlock
	case db.IsDuplicateKeyErr(err):
		return DrawErrorReasonUniqueViolation
	case db.IsConnectionError(err):
		return DrawErrorReasonConnection
	default:
		return DrawErrorReasonUnknown
	}
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}

func registerHistogramVec(registerer prometheus.Registerer, vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
	}
	return vec
}

func registerCounterVec(registerer prometheus.Registerer, vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return vec
}

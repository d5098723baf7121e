package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("prize_type", "PHYSICAL"),
		attribute.String("user_id", "456"),
		attribute.String("outcome", "win"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "user_id" {
			t.Fatalf("expected user_id to be dropped")
		}
	}
}

func TestClassifyDrawErrorReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: DrawErrorReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: DrawErrorReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: DrawErrorReasonSerializationFailure},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: DrawErrorReasonDeadlock},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: DrawErrorReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: DrawErrorReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyDrawErrorReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestDrawMetricsCountsLockBusy(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newDrawMetrics(registry, Config{ServiceName: "lottery-test", Environment: "test"})

	m.IncLockBusy("memory")
	m.IncLockBusy("memory")
	m.ObserveLockWait("memory", 20*time.Millisecond)

	if got := testutil.ToFloat64(m.lockBusy.WithLabelValues("memory")); got != 2 {
		t.Fatalf("expected 2 busy locks, got %v", got)
	}
	if count := testutil.CollectAndCount(m.lockWait); count != 1 {
		t.Fatalf("expected 1 lock wait series, got %d", count)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordDrawBatch(context.Background(), "TOTAL")
	m.RecordDrawOutcome(context.Background(), "PHYSICAL", true)
	m.RecordDrawError(context.Background(), "internal")

	var dm *DrawMetrics
	dm.ObserveBatch("ok", time.Second)
	dm.IncStorageError(errors.New("boom"))
}

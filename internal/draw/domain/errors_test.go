package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelByKind(t *testing.T) {
	err := fmt.Errorf("draw: %w", InsufficientAllowance(3, 1))

	assert.True(t, errors.Is(err, ErrInsufficientAllowance))
	assert.False(t, errors.Is(err, ErrSystemBusy))

	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *Error")
	}
	assert.Equal(t, 3, de.Requested)
	assert.Equal(t, 1, de.Remaining)
	assert.False(t, de.Retryable())
}

func TestKindOf(t *testing.T) {
	cause := errors.New("connection reset")
	assert.Equal(t, KindTransient, KindOf(NewError(KindTransient, "storage unavailable", cause)))
	assert.Equal(t, KindInternal, KindOf(cause))
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.ErrorIs(t, NewError(KindTransient, "storage unavailable", cause), cause)
}

func TestRetryable(t *testing.T) {
	assert.True(t, NewError(KindSystemBusy, "", nil).Retryable())
	assert.True(t, NewError(KindTransient, "", nil).Retryable())
	assert.False(t, NewError(KindInternal, "", nil).Retryable())
	assert.Equal(t, "system_busy", NewError(KindSystemBusy, "", nil).Error())
}

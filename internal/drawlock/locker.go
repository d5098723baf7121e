// Package drawlock serializes draw batches per (user, activity).
//
// The lock is advisory. It is acquired with a bounded wait and expires on its
// own after a lease, so a crashed holder cannot block a user forever. It does
// not protect prize stock; the stock ledger holds its own row lock.
package drawlock

//go:generate mockgen -source=locker.go -destination=mock/mock_locker.go -package=mock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ErrNotAcquired means the wait elapsed while someone else held the key.
var ErrNotAcquired = errors.New("lock_not_acquired")

// Unlock releases a held key. It is safe to call after the lease expired.
type Unlock func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, key string, wait, lease time.Duration) (Unlock, error)
	Backend() string
}

// Key builds "<prefix>:<user>:<activity>".
func Key(prefix string, userID, activityID snowflake.ID) string {
	if prefix == "" {
		prefix = "lottery:draw"
	}
	return fmt.Sprintf("%s:%d:%d", prefix, userID, activityID)
}

func validate(key string, wait, lease time.Duration) error {
	if key == "" {
		return errors.New("lock key is empty")
	}
	if wait < 0 {
		return errors.New("lock wait must not be negative")
	}
	if lease <= 0 {
		return errors.New("lock lease must be positive")
	}
	return nil
}

// waitFailed maps an expired wait to ErrNotAcquired, keeping caller cancellation visible.
func waitFailed(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return ErrNotAcquired
}

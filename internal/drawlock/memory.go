package drawlock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
	released  chan struct{}
}

// MemoryLocker is a keyed mutex map for single instance deployments and tests.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*memoryEntry
	now   func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]*memoryEntry),
		now:   time.Now,
	}
}

func (l *MemoryLocker) Backend() string { return "memory" }

func (l *MemoryLocker) Acquire(ctx context.Context, key string, wait, lease time.Duration) (Unlock, error) {
	if err := validate(key, wait, lease); err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	for {
		l.mu.Lock()
		now := l.now()
		current, held := l.locks[key]
		if !held || !now.Before(current.expiresAt) {
			if held {
				// Lease expired: wake anyone still waiting on the stale holder.
				close(current.released)
			}
			entry := &memoryEntry{
				token:     uuid.NewString(),
				expiresAt: now.Add(lease),
				released:  make(chan struct{}),
			}
			l.locks[key] = entry
			l.mu.Unlock()
			return l.unlock(key, entry), nil
		}
		released := current.released
		untilExpiry := current.expiresAt.Sub(now)
		l.mu.Unlock()

		timer := time.NewTimer(untilExpiry)
		select {
		case <-released:
		case <-timer.C:
		case <-waitCtx.Done():
			timer.Stop()
			return nil, waitFailed(ctx)
		}
		timer.Stop()
	}
}

func (l *MemoryLocker) unlock(key string, entry *memoryEntry) Unlock {
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if current, ok := l.locks[key]; ok && current.token == entry.token {
				delete(l.locks, key)
				close(entry.released)
			}
		})
		return nil
	}
}

// Held reports whether key currently has a live holder.
func (l *MemoryLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.locks[key]
	return ok && l.now().Before(current.expiresAt)
}

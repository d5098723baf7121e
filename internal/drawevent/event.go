package drawevent

import (
	"context"
	"time"
)

// BatchCompleted is published once per committed draw batch.
type BatchCompleted struct {
	BatchID        string    `json:"batch_id"`
	UserID         string    `json:"user_id"`
	ActivityID     string    `json:"activity_id"`
	DrawCount      int       `json:"draw_count"`
	WinningCount   int       `json:"winning_count"`
	RemainingDraws int       `json:"remaining_draws"`
	Outcomes       []Outcome `json:"outcomes"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Outcome struct {
	RecordID  string    `json:"record_id"`
	PrizeID   string    `json:"prize_id,omitempty"`
	PrizeName string    `json:"prize_name"`
	PrizeType string    `json:"prize_type,omitempty"`
	IsWinning bool      `json:"is_winning"`
	DrawTime  time.Time `json:"draw_time"`
}

// Publisher delivers events after commit. Failures never undo a draw.
type Publisher interface {
	PublishBatch(ctx context.Context, event BatchCompleted) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) PublishBatch(context.Context, BatchCompleted) error { return nil }
func (NopPublisher) Close() error                                       { return nil }

package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Record is one executed single draw. Rows are never updated.
type Record struct {
	ID         snowflake.ID  `json:"id" gorm:"primaryKey"`
	BatchID    string        `json:"batch_id" gorm:"type:text;not null;index:ix_draw_records_batch"`
	ActivityID snowflake.ID  `json:"activity_id" gorm:"not null;index:ix_draw_records_user_activity,priority:2"`
	UserID     snowflake.ID  `json:"user_id" gorm:"not null;index:ix_draw_records_user_activity,priority:1"`
	PrizeID    *snowflake.ID `json:"prize_id"`
	PrizeName  string        `json:"prize_name" gorm:"type:text;not null"`
	PrizeType  string        `json:"prize_type" gorm:"type:text"`
	IsWinning  bool          `json:"is_winning" gorm:"not null"`
	Status     Status        `json:"status" gorm:"type:text;not null"`
	DrawTime   time.Time     `json:"draw_time" gorm:"not null;index:ix_draw_records_user_activity,priority:3"`
	CreatedAt  time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Record) TableName() string { return "draw_records" }

// HistoryFilter narrows a user's history. A nil ActivityID means all activities.
type HistoryFilter struct {
	UserID     snowflake.ID
	ActivityID *snowflake.ID
	Limit      int
}

type Repository interface {
	Append(ctx context.Context, db *gorm.DB, record *Record) error
	// History returns most recent first.
	History(ctx context.Context, db *gorm.DB, filter HistoryFilter) ([]Record, error)
	ListByBatch(ctx context.Context, db *gorm.DB, batchID string) ([]Record, error)
}

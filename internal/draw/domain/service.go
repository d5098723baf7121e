package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Draw(ctx context.Context, req DrawRequest) (*DrawBatchResult, error)
	Remaining(ctx context.Context, userID, activityID snowflake.ID) (*RemainingResponse, error)
	History(ctx context.Context, req HistoryRequest) ([]HistoryItem, error)
	Batch(ctx context.Context, userID snowflake.ID, batchID string) ([]HistoryItem, error)
}

type DrawRequest struct {
	UserID     snowflake.ID
	ActivityID snowflake.ID
	DrawCount  int
}

type DrawResult struct {
	RecordID         string    `json:"record_id"`
	IsWinning        bool      `json:"is_winning"`
	PrizeID          string    `json:"prize_id,omitempty"`
	PrizeName        string    `json:"prize_name"`
	PrizeType        string    `json:"prize_type,omitempty"`
	PrizeDescription string    `json:"prize_description,omitempty"`
	ImageURL         string    `json:"image_url,omitempty"`
	DrawTime         time.Time `json:"draw_time"`
}

type DrawBatchResult struct {
	BatchID        string       `json:"batch_id"`
	Results        []DrawResult `json:"results"`
	DrawCount      int          `json:"draw_count"`
	RemainingDraws int          `json:"remaining_draws"`
}

type RemainingResponse struct {
	ActivityID     string `json:"activity_id"`
	LimitType      string `json:"limit_type"`
	MaxDraws       int    `json:"max_draws"`
	RemainingDraws int    `json:"remaining_draws"`
}

type HistoryRequest struct {
	UserID     snowflake.ID
	ActivityID *snowflake.ID
	Limit      int
}

type HistoryItem struct {
	RecordID   string    `json:"record_id"`
	BatchID    string    `json:"batch_id"`
	ActivityID string    `json:"activity_id"`
	PrizeID    string    `json:"prize_id,omitempty"`
	PrizeName  string    `json:"prize_name"`
	PrizeType  string    `json:"prize_type,omitempty"`
	IsWinning  bool      `json:"is_winning"`
	Status     string    `json:"status"`
	DrawTime   time.Time `json:"draw_time"`
}

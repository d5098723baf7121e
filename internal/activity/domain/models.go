package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusEnded    Status = "ENDED"
)

// LimitType selects how a user's draw allowance is counted.
type LimitType string

const (
	LimitTotal LimitType = "TOTAL"
	LimitDaily LimitType = "DAILY"
)

type PrizeType string

const (
	PrizePhysical PrizeType = "PHYSICAL"
	PrizeVirtual  PrizeType = "VIRTUAL"
	PrizeNone     PrizeType = "NO_PRIZE"
)

// Activity is a time boxed lottery. Draws are allowed in [StartTime, EndTime).
type Activity struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	Code            string       `json:"code" gorm:"type:text;not null;uniqueIndex:ux_activities_code"`
	Name            string       `json:"name" gorm:"type:text;not null"`
	Description     string       `json:"description" gorm:"type:text"`
	StartTime       time.Time    `json:"start_time" gorm:"not null"`
	EndTime         time.Time    `json:"end_time" gorm:"not null"`
	Status          Status       `json:"status" gorm:"type:text;not null;default:INACTIVE"`
	LimitType       LimitType    `json:"limit_type" gorm:"type:text;not null;default:TOTAL"`
	MaxDrawsPerUser int          `json:"max_draws_per_user" gorm:"not null"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Prizes []Prize `json:"prizes,omitempty" gorm:"-"`
}

func (Activity) TableName() string { return "activities" }

// AvailableAt reports whether draws are permitted at t.
func (a *Activity) AvailableAt(t time.Time) bool {
	if a == nil || a.Status != StatusActive {
		return false
	}
	return !t.Before(a.StartTime) && t.Before(a.EndTime)
}

type Prize struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	ActivityID     snowflake.ID `json:"activity_id" gorm:"not null;index:ix_prizes_activity_sort,priority:1"`
	Name           string       `json:"name" gorm:"type:text;not null"`
	Description    string       `json:"description" gorm:"type:text"`
	ImageURL       string       `json:"image_url" gorm:"type:text"`
	PrizeType      PrizeType    `json:"prize_type" gorm:"type:text;not null"`
	TotalStock     int          `json:"total_stock" gorm:"not null;default:0"`
	RemainingStock int          `json:"remaining_stock" gorm:"not null;default:0"`
	Probability    float64      `json:"probability" gorm:"not null;default:0"`
	SortOrder      int          `json:"sort_order" gorm:"not null;default:0;index:ix_prizes_activity_sort,priority:2"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Prize) TableName() string { return "prizes" }

// IsNoPrize reports the unlimited "no win" sentinel.
func (p *Prize) IsNoPrize() bool {
	return p != nil && p.PrizeType == PrizeNone
}

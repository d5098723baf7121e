package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// TotalState counts draws over an activity's lifetime.
type TotalState struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID       snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:ux_user_draw_statistics_user_activity,priority:1"`
	ActivityID   snowflake.ID `json:"activity_id" gorm:"not null;uniqueIndex:ux_user_draw_statistics_user_activity,priority:2"`
	TotalDraws   int          `json:"total_draws" gorm:"not null;default:0"`
	WinningDraws int          `json:"winning_draws" gorm:"not null;default:0"`
	LastDrawTime *time.Time   `json:"last_draw_time"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TotalState) TableName() string { return "user_draw_statistics" }

// DailyState counts draws on one calendar day of the draw time zone.
type DailyState struct {
	ID                snowflake.ID   `json:"id" gorm:"primaryKey"`
	UserID            snowflake.ID   `json:"user_id" gorm:"not null;uniqueIndex:ux_user_daily_draw_statistics_user_day,priority:1"`
	ActivityID        snowflake.ID   `json:"activity_id" gorm:"not null;uniqueIndex:ux_user_daily_draw_statistics_user_day,priority:2"`
	DrawDate          datatypes.Date `json:"draw_date" gorm:"not null;uniqueIndex:ux_user_daily_draw_statistics_user_day,priority:3"`
	DailyDraws        int            `json:"daily_draws" gorm:"not null;default:0"`
	DailyWinningDraws int            `json:"daily_winning_draws" gorm:"not null;default:0"`
	LastDrawTime      *time.Time     `json:"last_draw_time"`
	CreatedAt         time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DailyState) TableName() string { return "user_daily_draw_statistics" }

// Usage is what one batch adds to a quota row.
type Usage struct {
	Draws        int
	WinningDraws int
}

// DrawDate maps an instant to its calendar day in loc, stored as UTC midnight.
func DrawDate(at time.Time, loc *time.Location) datatypes.Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := at.In(loc).Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

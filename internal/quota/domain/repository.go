package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Repository reads and updates quota rows. With forUpdate the row is held for
// the rest of the enclosing transaction where the dialect supports it.
//
// Ensure* inserts an empty row when none exists and leaves an existing row
// alone. Add* increments only while the counter stays within limit and
// reports whether a row was changed.
type Repository interface {
	FindTotal(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, forUpdate bool) (*TotalState, error)
	EnsureTotal(ctx context.Context, db *gorm.DB, state *TotalState) error
	AddTotal(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, usage Usage, limit int, at time.Time) (bool, error)

	FindDaily(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, date datatypes.Date, forUpdate bool) (*DailyState, error)
	EnsureDaily(ctx context.Context, db *gorm.DB, state *DailyState) error
	AddDaily(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, date datatypes.Date, usage Usage, limit int, at time.Time) (bool, error)
}

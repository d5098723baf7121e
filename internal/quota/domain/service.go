package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/lottery/internal/activity/domain"
	"gorm.io/gorm"
)

// ErrAllowanceExceeded means an increment would push a counter past the
// activity's ceiling. The counter is left untouched.
var ErrAllowanceExceeded = errors.New("allowance_exceeded")

// Tracker owns per user draw allowance. Callers pass the transaction handle so
// Hold and Consume join the draw batch.
type Tracker interface {
	// Remaining treats a missing row as nothing consumed.
	Remaining(ctx context.Context, db *gorm.DB, userID snowflake.ID, activity *activitydomain.Activity, at time.Time) (int, error)
	// Hold is Remaining with the quota row held exclusively until the
	// transaction ends. A missing row is inserted empty first so there is
	// always a row to lock.
	Hold(ctx context.Context, db *gorm.DB, userID snowflake.ID, activity *activitydomain.Activity, at time.Time) (int, error)
	// Consume records usage and returns the allowance left afterwards. It
	// fails with ErrAllowanceExceeded instead of exceeding the ceiling.
	Consume(ctx context.Context, db *gorm.DB, userID snowflake.ID, activity *activitydomain.Activity, usage Usage, at time.Time) (int, error)
}

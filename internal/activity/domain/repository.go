package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, activity *Activity) error
	InsertPrize(ctx context.Context, db *gorm.DB, prize *Prize) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Activity, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Activity, error)
	ListAvailable(ctx context.Context, db *gorm.DB, at time.Time) ([]Activity, error)
	// ListPrizes returns prizes in selection order (sort_order, then id).
	ListPrizes(ctx context.Context, db *gorm.DB, activityID snowflake.ID) ([]Prize, error)
}

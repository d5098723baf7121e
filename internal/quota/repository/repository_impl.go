package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lottery/internal/observability/metrics"
	quotadomain "github.com/smallbiznis/lottery/internal/quota/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() quotadomain.Repository {
	return &repo{}
}

func (r *repo) FindTotal(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, forUpdate bool) (*quotadomain.TotalState, error) {
	var state quotadomain.TotalState
	query := db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		defer observeQuotaLock(time.Now())
	}
	err := query.
		Where("user_id = ? AND activity_id = ?", userID, activityID).
		Limit(1).
		Find(&state).Error
	if err != nil {
		return nil, err
	}
	if state.ID == 0 {
		return nil, nil
	}
	return &state, nil
}

func (r *repo) EnsureTotal(ctx context.Context, db *gorm.DB, state *quotadomain.TotalState) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "activity_id"}},
		DoNothing: true,
	}).Create(state).Error
}

// AddTotal increments the lifetime counter unless that would pass limit.
func (r *repo) AddTotal(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, usage quotadomain.Usage, limit int, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&quotadomain.TotalState{}).
		Where("user_id = ? AND activity_id = ?", userID, activityID).
		Where("total_draws + ? <= ?", usage.Draws, limit).
		Updates(map[string]any{
			"total_draws":    gorm.Expr("total_draws + ?", usage.Draws),
			"winning_draws":  gorm.Expr("winning_draws + ?", usage.WinningDraws),
			"last_draw_time": at,
			"updated_at":     at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindDaily(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, date datatypes.Date, forUpdate bool) (*quotadomain.DailyState, error) {
	var state quotadomain.DailyState
	query := db.WithContext(ctx)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		defer observeQuotaLock(time.Now())
	}
	err := query.
		Where("user_id = ? AND activity_id = ? AND draw_date = ?", userID, activityID, date).
		Limit(1).
		Find(&state).Error
	if err != nil {
		return nil, err
	}
	if state.ID == 0 {
		return nil, nil
	}
	return &state, nil
}

func (r *repo) EnsureDaily(ctx context.Context, db *gorm.DB, state *quotadomain.DailyState) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "activity_id"}, {Name: "draw_date"}},
		DoNothing: true,
	}).Create(state).Error
}

func (r *repo) AddDaily(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, date datatypes.Date, usage quotadomain.Usage, limit int, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&quotadomain.DailyState{}).
		Where("user_id = ? AND activity_id = ? AND draw_date = ?", userID, activityID, date).
		Where("daily_draws + ? <= ?", usage.Draws, limit).
		Updates(map[string]any{
			"daily_draws":         gorm.Expr("daily_draws + ?", usage.Draws),
			"daily_winning_draws": gorm.Expr("daily_winning_draws + ?", usage.WinningDraws),
			"last_draw_time":      at,
			"updated_at":          at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func observeQuotaLock(start time.Time) {
	metrics.Draw().ObserveDBLockWait(metrics.LockResourceUserQuota, time.Since(start))
}

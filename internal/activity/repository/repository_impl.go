package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/lottery/internal/activity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() activitydomain.Repository {
	return &repo{}
}

const activityColumns = `id, code, name, description, start_time, end_time, status, limit_type, max_draws_per_user, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, a *activitydomain.Activity) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO activities (`+activityColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Code,
		a.Name,
		a.Description,
		a.StartTime,
		a.EndTime,
		a.Status,
		a.LimitType,
		a.MaxDrawsPerUser,
		a.CreatedAt,
		a.UpdatedAt,
	).Error
}

func (r *repo) InsertPrize(ctx context.Context, db *gorm.DB, p *activitydomain.Prize) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO prizes (id, activity_id, name, description, image_url, prize_type, total_stock, remaining_stock, probability, sort_order, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.ActivityID,
		p.Name,
		p.Description,
		p.ImageURL,
		p.PrizeType,
		p.TotalStock,
		p.RemainingStock,
		p.Probability,
		p.SortOrder,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*activitydomain.Activity, error) {
	var activity activitydomain.Activity
	err := db.WithContext(ctx).Raw(
		`SELECT `+activityColumns+` FROM activities WHERE id = ?`,
		id,
	).Scan(&activity).Error
	if err != nil {
		return nil, err
	}
	if activity.ID == 0 {
		return nil, nil
	}
	return &activity, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*activitydomain.Activity, error) {
	var activity activitydomain.Activity
	err := db.WithContext(ctx).Raw(
		`SELECT `+activityColumns+` FROM activities WHERE code = ?`,
		code,
	).Scan(&activity).Error
	if err != nil {
		return nil, err
	}
	if activity.ID == 0 {
		return nil, nil
	}
	return &activity, nil
}

func (r *repo) ListAvailable(ctx context.Context, db *gorm.DB, at time.Time) ([]activitydomain.Activity, error) {
	var activities []activitydomain.Activity
	err := db.WithContext(ctx).Raw(
		`SELECT `+activityColumns+`
		 FROM activities
		 WHERE status = ? AND start_time <= ? AND end_time > ?
		 ORDER BY start_time ASC, id ASC`,
		activitydomain.StatusActive,
		at,
		at,
	).Scan(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *repo) ListPrizes(ctx context.Context, db *gorm.DB, activityID snowflake.ID) ([]activitydomain.Prize, error) {
	var prizes []activitydomain.Prize
	err := db.WithContext(ctx).Raw(
		`SELECT id, activity_id, name, description, image_url, prize_type, total_stock, remaining_stock, probability, sort_order, created_at, updated_at
		 FROM prizes WHERE activity_id = ?
		 ORDER BY sort_order ASC, id ASC`,
		activityID,
	).Scan(&prizes).Error
	if err != nil {
		return nil, err
	}
	return prizes, nil
}

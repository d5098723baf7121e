package repository

import (
	"context"
	"errors"

	drawrecorddomain "github.com/smallbiznis/lottery/internal/drawrecord/domain"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 100

const recordColumns = `id, batch_id, activity_id, user_id, prize_id, prize_name, prize_type, is_winning, status, draw_time, created_at`

type repo struct{}

func Provide() drawrecorddomain.Repository {
	return &repo{}
}

func (r *repo) Append(ctx context.Context, db *gorm.DB, rec *drawrecorddomain.Record) error {
	if rec == nil {
		return errors.New("draw record is required")
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO draw_records (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.BatchID,
		rec.ActivityID,
		rec.UserID,
		rec.PrizeID,
		rec.PrizeName,
		rec.PrizeType,
		rec.IsWinning,
		rec.Status,
		rec.DrawTime,
		rec.CreatedAt,
	).Error
}

func (r *repo) History(ctx context.Context, db *gorm.DB, filter drawrecorddomain.HistoryFilter) ([]drawrecorddomain.Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := db.WithContext(ctx).
		Table("draw_records").
		Select(recordColumns).
		Where("user_id = ?", filter.UserID)
	if filter.ActivityID != nil {
		query = query.Where("activity_id = ?", *filter.ActivityID)
	}

	var records []drawrecorddomain.Record
	err := query.
		Order("draw_time DESC").
		Order("id DESC").
		Limit(limit).
		Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) ListByBatch(ctx context.Context, db *gorm.DB, batchID string) ([]drawrecorddomain.Record, error) {
	var records []drawrecorddomain.Record
	err := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+` FROM draw_records WHERE batch_id = ? ORDER BY id ASC`,
		batchID,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

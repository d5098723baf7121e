package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lottery/internal/observability/metrics"
	stockdomain "github.com/smallbiznis/lottery/internal/stock/domain"
	"gorm.io/gorm"
)

type ledger struct{}

func Provide() stockdomain.Ledger {
	return &ledger{}
}

// Reserve decrements in a single conditional UPDATE. The row stays locked by
// the caller's transaction, so concurrent reservations on one prize serialize
// and none can take the counter below zero.
func (l *ledger) Reserve(ctx context.Context, db *gorm.DB, prizeID snowflake.ID, quantity int) (stockdomain.Result, error) {
	if quantity <= 0 {
		return 0, errors.New("reserve quantity must be positive")
	}

	start := time.Now()
	res := db.WithContext(ctx).Exec(
		`UPDATE prizes
		 SET remaining_stock = remaining_stock - ?, updated_at = ?
		 WHERE id = ? AND remaining_stock >= ?`,
		quantity,
		time.Now().UTC(),
		prizeID,
		quantity,
	)
	metrics.Draw().ObserveDBLockWait(metrics.LockResourcePrizeStock, time.Since(start))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		return stockdomain.Reserved, nil
	}

	_, found, err := l.Remaining(ctx, db, prizeID)
	if err != nil {
		return 0, err
	}
	if !found {
		return stockdomain.NotFound, nil
	}
	return stockdomain.OutOfStock, nil
}

func (l *ledger) Remaining(ctx context.Context, db *gorm.DB, prizeID snowflake.ID) (int, bool, error) {
	var row struct {
		ID             snowflake.ID
		RemainingStock int
	}
	err := db.WithContext(ctx).Raw(
		`SELECT id, remaining_stock FROM prizes WHERE id = ?`,
		prizeID,
	).Scan(&row).Error
	if err != nil {
		return 0, false, err
	}
	if row.ID == 0 {
		return 0, false, nil
	}
	return row.RemainingStock, true, nil
}

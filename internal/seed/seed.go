package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	activitydomain "github.com/smallbiznis/lottery/internal/activity/domain"
	userdomain "github.com/smallbiznis/lottery/internal/user/domain"
	"gorm.io/gorm"
)

const (
	demoActivityName     = "Demo Lucky Draw"
	demoActivityDuration = 30 * 24 * time.Hour
	demoMaxDrawsPerUser  = 5
)

var demoUsers = []string{"alice", "bob", "carol"}

type demoPrize struct {
	name        string
	prizeType   activitydomain.PrizeType
	stock       int
	probability float64
}

var demoPrizes = []demoPrize{
	{name: "Grand Prize Bicycle", prizeType: activitydomain.PrizePhysical, stock: 1, probability: 0.01},
	{name: "Gift Card", prizeType: activitydomain.PrizeVirtual, stock: 10, probability: 0.09},
	{name: "Coupon", prizeType: activitydomain.PrizeVirtual, stock: 100, probability: 0.30},
	{name: "銘謝惠顧", prizeType: activitydomain.PrizeNone, stock: 0, probability: 0.60},
}

// Result identifies the demo rows, whether freshly created or already present.
type Result struct {
	ActivityID   snowflake.ID
	ActivityCode string
	UserIDs      []snowflake.ID
}

// EnsureDemoData seeds one open activity with prizes and a few users. It is idempotent.
func EnsureDemoData(ctx context.Context, db *gorm.DB, node *snowflake.Node, now time.Time) (*Result, error) {
	if db == nil {
		return nil, errors.New("seed database handle is required")
	}
	if node == nil {
		return nil, errors.New("seed id generator is required")
	}

	now = now.UTC()
	result := &Result{ActivityCode: slug.Make(demoActivityName)}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		activity, err := ensureActivityTx(ctx, tx, node, result.ActivityCode, now)
		if err != nil {
			return err
		}
		result.ActivityID = activity.ID

		for _, username := range demoUsers {
			user, err := ensureUserTx(ctx, tx, node, username, now)
			if err != nil {
				return err
			}
			result.UserIDs = append(result.UserIDs, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func ensureActivityTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, code string, now time.Time) (activitydomain.Activity, error) {
	var activity activitydomain.Activity
	err := tx.WithContext(ctx).Where("code = ?", code).First(&activity).Error
	if err == nil {
		return activity, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return activity, err
	}

	activity = activitydomain.Activity{
		ID:              node.Generate(),
		Code:            code,
		Name:            demoActivityName,
		Description:     "Seeded for local development.",
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(demoActivityDuration),
		Status:          activitydomain.StatusActive,
		LimitType:       activitydomain.LimitDaily,
		MaxDrawsPerUser: demoMaxDrawsPerUser,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := tx.WithContext(ctx).Create(&activity).Error; err != nil {
		return activity, err
	}

	for i, p := range demoPrizes {
		prize := activitydomain.Prize{
			ID:             node.Generate(),
			ActivityID:     activity.ID,
			Name:           p.name,
			PrizeType:      p.prizeType,
			TotalStock:     p.stock,
			RemainingStock: p.stock,
			Probability:    p.probability,
			SortOrder:      i + 1,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.WithContext(ctx).Create(&prize).Error; err != nil {
			return activity, err
		}
	}

	return activity, nil
}

func ensureUserTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, username string, now time.Time) (userdomain.User, error) {
	var user userdomain.User
	err := tx.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}

	user = userdomain.User{
		ID:          node.Generate(),
		Username:    username,
		DisplayName: username,
		Status:      userdomain.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return user, err
	}
	return user, nil
}

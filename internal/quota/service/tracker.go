package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/lottery/internal/activity/domain"
	"github.com/smallbiznis/lottery/internal/config"
	quotadomain "github.com/smallbiznis/lottery/internal/quota/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       quotadomain.Repository
	DrawConfig *config.DrawConfigHolder
}

type Tracker struct {
	log        *zap.Logger
	strategies map[activitydomain.LimitType]strategy
}

// strategy hides whether consumption is counted per lifetime or per day.
type strategy interface {
	consumed(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, at time.Time, forUpdate bool) (int, error)
	ensure(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, at time.Time) error
	add(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, usage quotadomain.Usage, limit int, at time.Time) (bool, error)
}

func New(p Params) quotadomain.Tracker {
	loc := p.DrawConfig.Get().Location()
	log := p.Log.Named("quota.tracker")
	log.Info("daily quota zone fixed", zap.String("timezone", loc.String()))
	return &Tracker{
		log: log,
		strategies: map[activitydomain.LimitType]strategy{
			activitydomain.LimitTotal: &totalStrategy{repo: p.Repo, genID: p.GenID},
			activitydomain.LimitDaily: &dailyStrategy{repo: p.Repo, genID: p.GenID, loc: loc},
		},
	}
}

func (t *Tracker) Remaining(ctx context.Context, db *gorm.DB, userID snowflake.ID, activity *activitydomain.Activity, at time.Time) (int, error) {
	return t.remaining(ctx, db, userID, activity, at, false)
}

func (t *Tracker) Hold(ctx context.Context, db *gorm.DB, userID snowflake.ID, activity *activitydomain.Activity, at time.Time) (int, error) {
	s, err := t.strategyFor(activity)
	if err != nil {
		return 0, err
	}
	if err := s.ensure(ctx, db, userID, activity.ID, at); err != nil {
		return 0, err
	}
	return t.remaining(ctx, db, userID, activity, at, true)
}

func (t *Tracker) Consume(ctx context.Context, db *gorm.DB, userID snowflake.ID, activity *activitydomain.Activity, usage quotadomain.Usage, at time.Time) (int, error) {
	s, err := t.strategyFor(activity)
	if err != nil {
		return 0, err
	}
	if usage.Draws <= 0 {
		return 0, fmt.Errorf("consume requires positive draws, got %d", usage.Draws)
	}

	if err := s.ensure(ctx, db, userID, activity.ID, at); err != nil {
		return 0, err
	}
	ok, err := s.add(ctx, db, userID, activity.ID, usage, activity.MaxDrawsPerUser, at)
	if err != nil {
		return 0, err
	}
	if !ok {
		t.log.Warn("quota increment refused at ceiling",
			zap.String("user_id", userID.String()),
			zap.String("activity_id", activity.ID.String()),
			zap.Int("draws", usage.Draws),
			zap.Int("max_draws_per_user", activity.MaxDrawsPerUser),
		)
		return 0, quotadomain.ErrAllowanceExceeded
	}
	consumed, err := s.consumed(ctx, db, userID, activity.ID, at, false)
	if err != nil {
		return 0, err
	}
	return clampRemaining(activity.MaxDrawsPerUser, consumed), nil
}

func (t *Tracker) remaining(ctx context.Context, db *gorm.DB, userID snowflake.ID, activity *activitydomain.Activity, at time.Time, forUpdate bool) (int, error) {
	s, err := t.strategyFor(activity)
	if err != nil {
		return 0, err
	}
	consumed, err := s.consumed(ctx, db, userID, activity.ID, at, forUpdate)
	if err != nil {
		return 0, err
	}
	return clampRemaining(activity.MaxDrawsPerUser, consumed), nil
}

func (t *Tracker) strategyFor(activity *activitydomain.Activity) (strategy, error) {
	if activity == nil {
		return nil, fmt.Errorf("quota requires an activity")
	}
	s, ok := t.strategies[activity.LimitType]
	if !ok {
		return nil, fmt.Errorf("unsupported limit type %q", activity.LimitType)
	}
	return s, nil
}

func clampRemaining(max, consumed int) int {
	remaining := max - consumed
	if remaining < 0 {
		return 0
	}
	return remaining
}

package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	quotadomain "github.com/smallbiznis/lottery/internal/quota/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type totalStrategy struct {
	repo  quotadomain.Repository
	genID *snowflake.Node
}

func (s *totalStrategy) consumed(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, _ time.Time, forUpdate bool) (int, error) {
	state, err := s.repo.FindTotal(ctx, db, userID, activityID, forUpdate)
	if err != nil || state == nil {
		return 0, err
	}
	return state.TotalDraws, nil
}

func (s *totalStrategy) ensure(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, at time.Time) error {
	now := at.UTC()
	return s.repo.EnsureTotal(ctx, db, &quotadomain.TotalState{
		ID:         s.genID.Generate(),
		UserID:     userID,
		ActivityID: activityID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (s *totalStrategy) add(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, usage quotadomain.Usage, limit int, at time.Time) (bool, error) {
	return s.repo.AddTotal(ctx, db, userID, activityID, usage, limit, at.UTC())
}

// dailyStrategy reads only today's row, so a new day starts from zero. The
// zone is fixed when the tracker is built; reloading draw settings does not
// move today's bucket.
type dailyStrategy struct {
	repo  quotadomain.Repository
	genID *snowflake.Node
	loc   *time.Location
}

func (s *dailyStrategy) consumed(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, at time.Time, forUpdate bool) (int, error) {
	state, err := s.repo.FindDaily(ctx, db, userID, activityID, s.drawDate(at), forUpdate)
	if err != nil || state == nil {
		return 0, err
	}
	return state.DailyDraws, nil
}

func (s *dailyStrategy) ensure(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, at time.Time) error {
	now := at.UTC()
	return s.repo.EnsureDaily(ctx, db, &quotadomain.DailyState{
		ID:         s.genID.Generate(),
		UserID:     userID,
		ActivityID: activityID,
		DrawDate:   s.drawDate(at),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (s *dailyStrategy) add(ctx context.Context, db *gorm.DB, userID, activityID snowflake.ID, usage quotadomain.Usage, limit int, at time.Time) (bool, error) {
	return s.repo.AddDaily(ctx, db, userID, activityID, s.drawDate(at), usage, limit, at.UTC())
}

func (s *dailyStrategy) drawDate(at time.Time) datatypes.Date {
	return quotadomain.DrawDate(at, s.loc)
}

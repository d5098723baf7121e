package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/lottery/internal/activity/domain"
	"github.com/smallbiznis/lottery/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  activitydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  activitydomain.Repository
}

func New(p Params) activitydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("activity.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*activitydomain.Activity, error) {
	if id <= 0 {
		return nil, activitydomain.ErrInvalidID
	}

	activity, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, activitydomain.ErrNotFound
	}

	prizes, err := s.repo.ListPrizes(ctx, s.db, activity.ID)
	if err != nil {
		return nil, err
	}
	activity.Prizes = prizes
	return activity, nil
}

func (s *Service) ListActive(ctx context.Context) ([]activitydomain.Activity, error) {
	items, err := s.repo.ListAvailable(ctx, s.db, s.clock.Now())
	if err != nil {
		return nil, err
	}

	for i := range items {
		prizes, err := s.repo.ListPrizes(ctx, s.db, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Prizes = prizes
	}
	return items, nil
}

package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/lottery/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo userdomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo userdomain.Repository
}

func New(p Params) userdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("user.service"),
		repo: p.Repo,
	}
}

// Get returns ErrNotFound for unknown and disabled users alike.
func (s *Service) Get(ctx context.Context, id snowflake.ID) (*userdomain.User, error) {
	if id <= 0 {
		return nil, userdomain.ErrInvalidID
	}

	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status == userdomain.StatusDisabled {
		return nil, userdomain.ErrNotFound
	}
	return user, nil
}

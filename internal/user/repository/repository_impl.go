package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/lottery/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() userdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, u *userdomain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, username, display_name, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Username,
		u.DisplayName,
		u.Status,
		u.CreatedAt,
		u.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*userdomain.User, error) {
	var user userdomain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, username, display_name, status, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

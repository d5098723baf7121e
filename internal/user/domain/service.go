package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Get(ctx context.Context, id snowflake.ID) (*User, error)
}

var (
	ErrNotFound  = errors.New("user_not_found")
	ErrInvalidID = errors.New("invalid_user_id")
)

func ParseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Get returns the activity with its prizes in selection order.
	Get(ctx context.Context, id snowflake.ID) (*Activity, error)
	ListActive(ctx context.Context) ([]Activity, error)
}

var (
	ErrNotFound  = errors.New("activity_not_found")
	ErrInvalidID = errors.New("invalid_activity_id")
)

func ParseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Result is the outcome of a reservation. Only storage failures are errors.
type Result int

const (
	Reserved Result = iota + 1
	OutOfStock
	NotFound
)

func (r Result) String() string {
	switch r {
	case Reserved:
		return "reserved"
	case OutOfStock:
		return "out_of_stock"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Ledger is the only writer of prizes.remaining_stock.
type Ledger interface {
	Reserve(ctx context.Context, db *gorm.DB, prizeID snowflake.ID, quantity int) (Result, error)
	Remaining(ctx context.Context, db *gorm.DB, prizeID snowflake.ID) (int, bool, error)
}

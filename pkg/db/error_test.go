package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pg lock timeout", err: &pgconn.PgError{Code: "55P03"}, want: true},
		{name: "pg serialization", err: fmt.Errorf("reserve: %w", &pgconn.PgError{Code: "40001"}), want: true},
		{name: "pg deadlock", err: &pgconn.PgError{Code: "40P01"}, want: true},
		{name: "pg connection class", err: &pgconn.PgError{Code: "08006"}, want: true},
		{name: "mysql lock wait", err: &mysql.MySQLError{Number: 1205}, want: true},
		{name: "sqlite busy", err: errors.New("database is locked (5) (SQLITE_BUSY)"), want: true},
		{name: "bad conn", err: driver.ErrBadConn, want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "unique", err: gorm.ErrDuplicatedKey, want: false},
		{name: "other", err: errors.New("syntax error"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(&mysql.MySQLError{Number: 1062}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: user_draw_statistics.user_id")))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
}

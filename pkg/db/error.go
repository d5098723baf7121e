package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if hasPGCode(err, "23505") || hasMySQLCode(err, 1062) {
		return true
	}

	// SQLite (error code 2067)
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsLockTimeout reports a row lock that could not be obtained in time.
func IsLockTimeout(err error) bool {
	if err == nil {
		return false
	}
	if hasPGCode(err, "55P03") || hasMySQLCode(err, 1205) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func IsSerializationFailure(err error) bool {
	return hasPGCode(err, "40001")
}

func IsDeadlock(err error) bool {
	return hasPGCode(err, "40P01") || hasMySQLCode(err, 1213)
}

// IsConnectionError reports failures to reach the database at all.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "08") {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsTransient reports storage errors a caller may retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return IsLockTimeout(err) || IsSerializationFailure(err) || IsDeadlock(err) || IsConnectionError(err)
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func hasMySQLCode(err error, number uint16) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == number
	}
	return false
}

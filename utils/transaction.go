package utils

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/techetime/timeclock_backend/config"
	"gorm.io/gorm"
)

// MySQL error numbers that mean the transaction lost a race, not that the
// request was wrong. Callers decide whether to retry or surface "try again".
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// RunInTransaction executes fn inside one database transaction and maps
// store-level abort errors to the Conflict kind. It never retries on its own.
//
// All open-shift mutations must go through here: the transaction (plus the
// row lock taken inside fn) is the sole serialization point per worker.
func RunInTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	return MapDBError(err)
}

// MapDBError normalizes driver/gorm errors into the error taxonomy.
// Already-classified AppErrors pass through untouched.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrorRecordNotFound) {
		return NotFoundError("record not found")
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDeadlock, mysqlErrLockWaitTimeout:
			return ConflictError("write conflict, please try again")
		}
	}
	return err
}

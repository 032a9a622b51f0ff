// Package repository defines the persistence layer for guests and tables
// together with the error types reused across it.  These sentinel values
// allow higher layers such as handlers to distinguish between failure
// scenarios: ErrNotFound maps to 404, ErrTenantMismatch to 403 and
// ErrInvalidStatus to 400.  Transient commit failures are detected with
// IsTransient and retried by the seating service before surfacing.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a referenced guest or table does not exist.
var ErrNotFound = errors.New("not found")

// ErrTenantMismatch is returned when an operation references an entity that
// exists but belongs to a different restaurant than the caller's scope.
// No mutation is performed.
var ErrTenantMismatch = errors.New("tenant mismatch")

// ErrInvalidStatus is returned when a requested status value lies outside
// the enumerated set.  No mutation is performed.
var ErrInvalidStatus = errors.New("invalid status")

// MySQL server error codes that indicate the transaction lost a race and
// can be retried: ER_LOCK_DEADLOCK and ER_LOCK_WAIT_TIMEOUT.
const (
	mysqlErrDeadlock    = 1213
	mysqlErrLockTimeout = 1205
)

// IsTransient reports whether err represents a storage failure that is safe
// to retry from scratch: the transaction was rolled back by the server due
// to lock contention and nothing was applied.
func IsTransient(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockTimeout
	}
	return false
}

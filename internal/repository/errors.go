// internal/repository/errors.go
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConcurrentUpdate is returned when the optimistic version check on an
	// application row fails.
	ErrConcurrentUpdate   = errors.New("application was modified concurrently")
	ErrPaymentStageExists = errors.New("payment for this stage already exists")
	ErrDuplicate          = errors.New("record already exists")
)

// StorageError wraps a failure of the backing store. It is never used for
// missing rows.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// classify maps driver errors onto the package's error kinds.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConcurrentUpdate) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}

	return &StorageError{Op: op, Err: err}
}

// IsRetryable reports whether err is a transient Postgres conflict that the
// caller may safely retry.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
}

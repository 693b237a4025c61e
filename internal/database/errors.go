package database

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrConflict is returned when an insert hits an existing appointment id.
var ErrConflict = errors.New("appointment id already exists")

// StorageError wraps any failure of the underlying engine.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrConstraint
}

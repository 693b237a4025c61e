package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrAuthFailed      = errors.New("invalid credentials")
	ErrSessionRequired = errors.New("admin session required")
	ErrStorage         = errors.New("storage failure")
)

const (
	MsgMissingField = "missing required field"
	MsgInvalidEmail = "invalid email"
)

// ValidationError reports a rejected booking form. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func storageFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

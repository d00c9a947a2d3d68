package usecases

import (
	"errors"
	"fmt"

	"dmcheckout/internal/repository"
)

type ErrorCode string

const (
	ErrorNotFound     ErrorCode = "NOT_FOUND"
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorConflict     ErrorCode = "CONFLICT"
	ErrorUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

func invalid(reason string) *Error {
	return newError(ErrorInvalidInput, reason, nil)
}

// storeError classifies a storage error for the caller.
func storeError(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrorNotFound, what+" not found", err)
	}
	if errors.Is(err, repository.ErrConflict) {
		return newError(ErrorConflict, what+" already exists", err)
	}
	return newError(ErrorInternal, what, err)
}

// CodeOf returns the code of a usecase error, or ErrorInternal for anything
// else. A nil error has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ErrorInternal
}

// Package apperr holds the error taxonomy shared by the repositories and the HTTP layer.
// Callers wrap a sentinel with context; the HTTP layer maps it with errors.Is.
package apperr

import (
	stderrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrTooManyAttempts = errors.New("too many attempts")
)

// Validation wraps ErrValidation with a caller-facing message.
func Validation(format string, args ...any) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

// NotFound wraps ErrNotFound with a caller-facing message.
func NotFound(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// Conflict wraps ErrConflict with a caller-facing message.
func Conflict(format string, args ...any) error {
	return errors.Wrapf(ErrConflict, format, args...)
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgInvalidText         = "22P02"
	pgNumericOutOfRange   = "22003"
)

// IsUniqueViolation reports whether err carries a postgres unique_violation,
// optionally restricted to one constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !stderrors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// FromPg translates constraint failures caused by caller input into the taxonomy.
// Anything else is returned unchanged.
func FromPg(err error) error {
	var pgErr *pgconn.PgError
	if !stderrors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return errors.Wrap(ErrConflict, pgErr.Detail)
	case pgForeignKeyViolation, pgNotNullViolation, pgInvalidText, pgNumericOutOfRange:
		return errors.Wrap(ErrValidation, pgErr.Message)
	}
	return err
}

// Message returns the caller-facing text of a wrapped sentinel: everything
// before the sentinel's own text.
func Message(err error) string {
	msg := err.Error()
	for _, s := range []error{ErrValidation, ErrUnauthorized, ErrNotFound, ErrConflict, ErrTooManyAttempts} {
		suffix := ": " + s.Error()
		if len(msg) > len(suffix) && msg[len(msg)-len(suffix):] == suffix {
			return msg[:len(msg)-len(suffix)]
		}
	}
	return msg
}

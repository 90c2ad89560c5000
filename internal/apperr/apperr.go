// Package apperr classifies failures into the domain error kinds the HTTP
// layer maps to status codes: validation, conflict, not-found and storage.
package apperr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindStorage
)

type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Kind() Kind {
	return e.kind
}

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

// KindOf walks the error chain and returns the first classified kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// Postgres SQLSTATE codes for constraint violations.
const (
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
)

// Classify maps storage-layer failures to domain kinds. Uniqueness violations
// become conflicts (duplicate SKU/barcode, register already open), not-null
// and check violations surface as validation failures, missing rows as
// not-found. Anything else is a storage error propagated unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Wrap(KindNotFound, "record not found", err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return Wrap(KindConflict, "duplicate value for unique field", err)
		case codeNotNullViolation:
			return Wrap(KindValidation, "missing required field", err)
		case codeCheckViolation:
			return Wrap(KindValidation, "invalid enum value", err)
		case codeForeignKeyViolation:
			return Wrap(KindNotFound, "referenced record not found", err)
		}
	}
	return Wrap(KindStorage, "storage failure", err)
}

package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so adapters run inside or outside a transaction
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

var dialect = goqu.Dialect("postgres")

// SQLSTATE codes mapped to domain errors
const (
	pqExclusionViolation = "23P01"
	pqUniqueViolation    = "23505"
	pqCheckViolation     = "23514"
	pqInvalidText        = "22P02"
)

func pqErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isExclusionViolation(err error) bool {
	return pqErrorCode(err) == pqExclusionViolation
}

func isUniqueViolation(err error) bool {
	return pqErrorCode(err) == pqUniqueViolation
}

func isCheckViolation(err error) bool {
	return pqErrorCode(err) == pqCheckViolation
}

// dbError wraps a failed statement. A value Postgres cannot parse, such as a
// malformed UUID, is the caller's input and becomes a validation error.
func dbError(message string, err error) error {
	if pqErrorCode(err) == pqInvalidText {
		appErr := apperrors.NewValidationError("invalid identifier")
		appErr.Err = err
		return appErr
	}
	return apperrors.NewInternalError(message, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// exec runs a write and reports whether any row was affected
func exec(ctx context.Context, q queryer, query string, args []interface{}) (bool, error) {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

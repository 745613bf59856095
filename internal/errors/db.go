package errors

import (
	"context"
	"database/sql"
	"errors"
	"regexp"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// reKeyField extracts the field name from "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError maps database errors from the Postgres and SQLite drivers to
// AppError instances:
//   - sql.ErrNoRows, pgx.ErrNoRows → NotFound
//   - unique violations → Conflict
//   - NOT NULL and CHECK violations → Validation
//   - connection failures and a busy SQLite file → Unavailable
//   - context timeouts and cancellations → Timeout/Canceled
//
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "Request timed out. Please try again.")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "Request was canceled.")
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, pgx.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, "Resource not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return mapSQLiteError(liteErr)
	}

	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	switch {
	case pgErr.Code == pgerrcode.UniqueViolation:
		e := Wrap(pgErr, ErrCodeConflict, "This value already exists. Please choose a different one.")
		e.Field = pgErr.ColumnName
		if e.Field == "" {
			if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
				e.Field = m[1]
			}
		}
		return e
	case pgErr.Code == pgerrcode.NotNullViolation:
		e := Wrap(pgErr, ErrCodeValidation, "Required field is missing. Please check your input.")
		e.Field = pgErr.ColumnName
		return e
	case pgErr.Code == pgerrcode.CheckViolation:
		e := Wrap(pgErr, ErrCodeValidation, "Invalid data. Please check your input.")
		e.Field = pgErr.ColumnName
		return e
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgerrcode.IsInsufficientResources(pgErr.Code):
		return Wrap(pgErr, ErrCodeUnavailable, "Storage is temporarily unavailable.")
	default:
		return Wrap(pgErr, ErrCodeInternal, "A database error occurred. Please try again.")
	}
}

func mapSQLiteError(liteErr *sqlite.Error) error {
	switch liteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return Wrap(liteErr, ErrCodeConflict, "This value already exists. Please choose a different one.")
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL, sqlite3.SQLITE_CONSTRAINT_CHECK:
		return Wrap(liteErr, ErrCodeValidation, "Invalid data. Please check your input.")
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return Wrap(liteErr, ErrCodeUnavailable, "Storage is temporarily unavailable.")
	default:
		return Wrap(liteErr, ErrCodeInternal, "A database error occurred. Please try again.")
	}
}

package db

import (
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/castmenu-backend/pkg/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if constraintName != "" {
		return strings.Contains(err.Error(), constraintName) && IsUniqueViolation(err, "")
	}
	return matches(err, pgUniqueViolation, "duplicate key value", sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey)
}

// IsCheckViolation reports whether a CHECK constraint rejected the write.
func IsCheckViolation(err error) bool {
	return matches(err, pgCheckViolation, "violates check constraint", sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull)
}

// IsForeignKeyViolation reports whether a foreign key rejected the write.
func IsForeignKeyViolation(err error) bool {
	return matches(err, pgForeignKeyViolation, "violates foreign key constraint", sqlite3.ErrConstraintForeignKey)
}

// IsConstraintViolation groups every constraint failure a client can cause.
func IsConstraintViolation(err error) bool {
	return IsUniqueViolation(err, "") || IsCheckViolation(err) || IsForeignKeyViolation(err)
}

// matches checks the Postgres SQLSTATE, then the SQLite extended code, and
// finally the message for drivers that only hand back text.
func matches(err error, pgCode, pgText string, sqliteCodes ...sqlite3.ErrNoExtended) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCode
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		for _, code := range sqliteCodes {
			if sqliteErr.ExtendedCode == code {
				return true
			}
		}
		return false
	}
	return strings.Contains(err.Error(), pgText)
}

// ClassifyWrite maps constraint violations raised by a write to client errors.
// Unique violations become conflicts, check and foreign key violations become
// validation errors, and anything else is internal.
func ClassifyWrite(err error, step string) error {
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, step+": duplicate value")
	case IsCheckViolation(err):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, step+": value out of range")
	case IsForeignKeyViolation(err):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, step+": unknown reference")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, step).WithDetails(map[string]any{"step": step})
	}
}

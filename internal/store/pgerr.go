package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"portal/internal/apperr"
)

// Postgres SQLSTATE codes the repositories translate.
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
)

// IsConstraint reports whether err is a violation of the named constraint.
func IsConstraint(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code && (constraint == "" || pgErr.ConstraintName == constraint)
}

// IsUniqueViolation reports a duplicate key on any constraint.
func IsUniqueViolation(err error) bool {
	return IsConstraint(err, codeUniqueViolation, "")
}

// Translate maps constraint violations onto caller-visible errors. Other
// errors pass through unchanged.
func Translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeForeignKeyViolation:
		return apperr.NotFound(referencedEntity(pgErr.ConstraintName), 0)
	case codeUniqueViolation:
		return apperr.InvalidState("record already exists")
	case codeCheckViolation:
		return apperr.Validation(pgErr.ColumnName, "constraint "+pgErr.ConstraintName+" violated")
	}
	return err
}

// referencedEntity derives the referenced entity from constraint names such
// as meetings_department_id_fkey.
func referencedEntity(constraint string) string {
	name := strings.TrimSuffix(constraint, "_fkey")
	if !strings.HasSuffix(name, "_id") {
		return "record"
	}
	name = strings.TrimSuffix(name, "_id")
	if i := strings.LastIndex(name, "_"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

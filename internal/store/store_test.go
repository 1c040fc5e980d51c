package store_test

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"portal/internal/apperr"
	"portal/internal/store"
)

func TestWhere(t *testing.T) {
	var w store.Where
	require.Equal(t, "", w.SQL())

	w.Add("department_id = ?", int64(3))
	w.Add("(year IS NULL OR year = ?)", 2)
	w.Add("role = ANY(?)", []string{"student", "both"})
	require.Equal(t, " WHERE department_id = $1 AND (year IS NULL OR year = $2) AND role = ANY($3)", w.SQL())
	require.Len(t, w.Args, 3)
	require.Equal(t, "$4", w.Next())
}

func TestTranslate(t *testing.T) {
	plain := errors.New("boom")
	require.Same(t, plain, store.Translate(plain))

	fk := &pgconn.PgError{Code: "23503", ConstraintName: "meetings_department_id_fkey"}
	err := store.Translate(fk)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	e, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, "department", e.Entity)

	require.ErrorIs(t, store.Translate(&pgconn.PgError{Code: "23505"}), apperr.ErrInvalidState)
	require.ErrorIs(t, store.Translate(&pgconn.PgError{Code: "23514", ConstraintName: "meetings_year_iff_student"}), apperr.ErrValidation)
	require.True(t, store.IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
}

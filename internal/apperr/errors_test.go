package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"portal/internal/apperr"
)

func TestKindsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("create meeting: %w", apperr.Missing("title", "startTime"))
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.False(t, errors.Is(err, apperr.ErrForbidden))

	e, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, "title", e.Field)
	require.Equal(t, "required fields missing: title, startTime", e.Error())
}

func TestNotFoundCarriesEntity(t *testing.T) {
	err := apperr.NotFound("meeting", 42)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	e, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, "meeting", e.Entity)
	require.EqualValues(t, 42, e.ID)
	require.Equal(t, "meeting 42 not found", err.Error())
}

func TestInvalidStateAndForbidden(t *testing.T) {
	require.ErrorIs(t, apperr.InvalidState("must attend before submitting feedback"), apperr.ErrInvalidState)
	require.ErrorIs(t, apperr.Forbidden("create meetings"), apperr.ErrForbidden)
	require.Equal(t, "not allowed to create meetings", apperr.Forbidden("create meetings").Error())
}

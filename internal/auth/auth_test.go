package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"portal/internal/apperr"
	"portal/internal/identity"
)

type users map[int64]identity.Actor

func (u users) LookupActor(_ context.Context, id int64) (identity.Actor, error) {
	if id == 99 {
		return identity.Actor{}, errors.New("connection reset")
	}
	a, ok := u[id]
	if !ok {
		return identity.Actor{}, apperr.NotFound("user", id)
	}
	return a, nil
}

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("portal", "secret", time.Hour)

	token, exp, err := iss.Issue(42)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := Parse(token, "secret", "portal")
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	_, err = Parse(token, "other", "portal")
	require.Error(t, err)
	_, err = Parse(token, "secret", "someone-else")
	require.Error(t, err)

	t.Run("expired", func(t *testing.T) {
		old := NewIssuer("portal", "secret", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _, err := old.Issue(42)
		require.NoError(t, err)
		_, err = Parse(token, "secret", "portal")
		require.Error(t, err)
	})
}

func TestAuthenticate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dept := int64(3)
	year := 2
	dir := users{
		42: identity.NewActor(42, "student", &dept, &year),
	}
	iss := NewIssuer("portal", "secret", time.Hour)

	r := gin.New()
	r.GET("/me", Authenticate("secret", "portal", dir), func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role})
	})

	call := func(header, value string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set(header, value)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	token := func(id int64) string {
		tok, _, err := iss.Issue(id)
		require.NoError(t, err)
		return tok
	}

	t.Run("bearer", func(t *testing.T) {
		w := call("Authorization", "Bearer "+token(42))
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"id":42,"role":"student"}`, w.Body.String())
	})

	t.Run("x-access-token", func(t *testing.T) {
		w := call("x-access-token", token(42))
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		w := call("", "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, w.Body.String(), "unauthenticated")
	})

	t.Run("garbage", func(t *testing.T) {
		w := call("Authorization", "Bearer nope")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		w := call("Authorization", "Bearer "+token(7))
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("directory failure", func(t *testing.T) {
		w := call("Authorization", "Bearer "+token(99))
		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

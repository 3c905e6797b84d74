package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/model"
	"github.com/shinyyama/inventory-backend/internal/reqctx"
	"github.com/shinyyama/inventory-backend/internal/service"
)

const testSecret = "test-secret"

type stubUsers struct {
	seen []service.Identity
}

func (s *stubUsers) Ensure(_ context.Context, id service.Identity) (*model.User, error) {
	s.seen = append(s.seen, id)
	return &model.User{ID: 42, AuthUID: id.AuthUID, Email: id.Email}, nil
}

func (s *stubUsers) Get(context.Context, uint64) (*model.User, error) {
	return nil, apperr.NotFound("none")
}

func newContext(authz string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	if authz != "" {
		req.Header.Set(echo.HeaderAuthorization, authz)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestJWTVerifier_RoundTrip(t *testing.T) {
	token, err := SignToken(testSecret, service.Identity{AuthUID: "uid-1", Email: "a@example.com", Name: "A"}, time.Hour)
	require.NoError(t, err)

	id, err := NewJWTVerifier(testSecret).Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", id.AuthUID)
	assert.Equal(t, "a@example.com", id.Email)

	_, err = NewJWTVerifier("other-secret").Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := SignToken(testSecret, service.Identity{AuthUID: "uid-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = NewJWTVerifier(testSecret).Verify(context.Background(), expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := SignToken(testSecret, service.Identity{}, time.Hour)
	require.NoError(t, err)
	_, err = NewJWTVerifier(testSecret).Verify(context.Background(), noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuth_RequireAuthRejects(t *testing.T) {
	a := NewAuth(NewJWTVerifier(testSecret), &stubUsers{}, nil)
	next := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	for _, authz := range []string{"", "Basic abc", "Bearer not-a-jwt"} {
		c, _ := newContext(authz)
		err := a.RequireAuth(next)(c)
		assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "header %q", authz)
	}
}

func TestAuth_RequireAuthThenEnsureUser(t *testing.T) {
	users := &stubUsers{}
	a := NewAuth(NewJWTVerifier(testSecret), users, nil)
	token, err := SignToken(testSecret, service.Identity{AuthUID: "uid-9", Email: "n@example.com"}, time.Hour)
	require.NoError(t, err)

	var gotID uint64
	var ctxID uint64
	h := a.RequireAuth(a.EnsureUser(func(c echo.Context) error {
		gotID = UserID(c)
		ctxID = reqctx.UserID(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	}))

	c, rec := newContext("Bearer " + token)
	require.NoError(t, h(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.EqualValues(t, 42, gotID)
	assert.EqualValues(t, 42, ctxID)
	require.Len(t, users.seen, 1)
	assert.Equal(t, "uid-9", users.seen[0].AuthUID)
}

func TestAuth_EnsureUserWithoutIdentity(t *testing.T) {
	a := NewAuth(NewJWTVerifier(testSecret), &stubUsers{}, nil)
	c, _ := newContext("")
	err := a.EnsureUser(func(echo.Context) error { return nil })(c)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestRequestID(t *testing.T) {
	var rid string
	h := RequestID(func(c echo.Context) error {
		rid = reqctx.RID(c.Request().Context())
		return nil
	})

	c, rec := newContext("")
	require.NoError(t, h(c))
	assert.NotEmpty(t, rid)
	assert.Equal(t, rid, rec.Header().Get(echo.HeaderXRequestID))

	c, rec = newContext("")
	c.Request().Header.Set(echo.HeaderXRequestID, "abc-123")
	require.NoError(t, h(c))
	assert.Equal(t, "abc-123", rid)
	assert.Equal(t, "abc-123", rec.Header().Get(echo.HeaderXRequestID))
}

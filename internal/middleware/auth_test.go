package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulavetsPavel/test-jwt/internal/models"
	"github.com/PaulavetsPavel/test-jwt/internal/repo"
	"github.com/PaulavetsPavel/test-jwt/internal/service"
	"github.com/PaulavetsPavel/test-jwt/internal/tokens"
)

var errStoreDown = errors.New("store unavailable")

// failingRepo simulates an unreachable backing store.
type failingRepo struct{}

func (failingRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return nil, errStoreDown
}

func (failingRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, errStoreDown
}

func (failingRepo) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	return nil, errStoreDown
}

func (failingRepo) SetDeviceToken(ctx context.Context, userID, deviceID, refreshToken string) error {
	return errStoreDown
}

func newAuthWithRepo(r repo.UserRepo) (*Auth, *tokens.Issuer) {
	iss := &tokens.Issuer{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	}
	return NewAuth(&service.AuthService{Repo: r, Issuer: iss}), iss
}

func callRequireAuth(t *testing.T, mw *Auth, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.GET("/me", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw.RequireAuth)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth_StoreFailureIsNotAuthFailure(t *testing.T) {
	t.Parallel()

	mw, iss := newAuthWithRepo(failingRepo{})
	pair, err := iss.IssuePair("user-1", "device-1")
	require.NoError(t, err)

	rec := callRequireAuth(t, mw, "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireAuth_TokenFailures(t *testing.T) {
	t.Parallel()

	mw, _ := newAuthWithRepo(failingRepo{})

	// a bad token never reaches the store, so it stays a 401
	rec := callRequireAuth(t, mw, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = callRequireAuth(t, mw, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

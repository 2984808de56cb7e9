package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaulavetsPavel/test-jwt/internal/middleware"
	"github.com/PaulavetsPavel/test-jwt/internal/repo"
	"github.com/PaulavetsPavel/test-jwt/internal/service"
	"github.com/PaulavetsPavel/test-jwt/internal/tokens"
	"github.com/PaulavetsPavel/test-jwt/internal/transport"
)

type testEnv struct {
	e   *echo.Echo
	svc *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	r, err := repo.NewFileRepo(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)

	svc := &service.AuthService{
		Repo: r,
		Issuer: &tokens.Issuer{
			AccessSecret:  []byte("test-access-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    24 * time.Hour,
		},
	}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{Svc: svc},
		AuthMW:      middleware.NewAuth(svc),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &testEnv{e: e, svc: svc}
}

func (env *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAuth_FullScenario(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	creds := transport.CredentialsRequest{Username: "alice", Password: "password1"}

	rec := env.do(t, http.MethodPost, "/register", creds, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	registered := decode[transport.AuthResponse](t, rec)
	require.NotEmpty(t, registered.AccessToken)
	require.NotEmpty(t, registered.RefreshToken)
	assert.Equal(t, "alice", registered.User.Username)

	rec = env.do(t, http.MethodPost, "/login", creds, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logged := decode[transport.AuthResponse](t, rec)
	require.NotEmpty(t, logged.AccessToken)
	require.NotEmpty(t, logged.RefreshToken)
	assert.Equal(t, "alice", logged.User.Username)

	rec = env.do(t, http.MethodGet, "/me", nil, map[string]string{
		echo.HeaderAuthorization: "Bearer " + logged.AccessToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[transport.MeResponse](t, rec)
	assert.Equal(t, "alice", me.User.Username)
	assert.Equal(t, DefaultDeviceID, me.DeviceID)

	rec = env.do(t, http.MethodPost, "/refresh", transport.RefreshRequest{RefreshToken: logged.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := decode[transport.TokenResponse](t, rec)
	require.NotEmpty(t, refreshed.AccessToken)
	require.NotEmpty(t, refreshed.RefreshToken)
	assert.NotEqual(t, logged.RefreshToken, refreshed.RefreshToken)

	rec = env.do(t, http.MethodGet, "/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_Register_Failures(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	tests := []struct {
		name     string
		username string
		password string
		code     int
	}{
		{name: "short username", username: "al", password: "password1", code: http.StatusBadRequest},
		{name: "short password", username: "alice", password: "12345", code: http.StatusBadRequest},
		{name: "empty body fields", username: "", password: "", code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := env.do(t, http.MethodPost, "/register", transport.CredentialsRequest{
				Username: tt.username,
				Password: tt.password,
			}, nil)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestAuth_Register_Conflict(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	creds := transport.CredentialsRequest{Username: "alice", Password: "password1"}

	rec := env.do(t, http.MethodPost, "/register", creds, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/register", creds, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuth_Login_BadCredentials(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/register", transport.CredentialsRequest{
		Username: "alice", Password: "password1",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/login", transport.CredentialsRequest{
		Username: "alice", Password: "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/login", transport.CredentialsRequest{
		Username: "nobody", Password: "password1",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/login", transport.CredentialsRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth_Refresh_DeviceBinding(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	deviceA := map[string]string{DeviceIDHeader: "device-a"}

	rec := env.do(t, http.MethodPost, "/register", transport.CredentialsRequest{
		Username: "alice", Password: "password1",
	}, deviceA)
	require.Equal(t, http.StatusCreated, rec.Code)
	registered := decode[transport.AuthResponse](t, rec)

	// token bound to device-a is refused for device-b
	rec = env.do(t, http.MethodPost, "/refresh", transport.RefreshRequest{
		RefreshToken: registered.RefreshToken,
	}, map[string]string{DeviceIDHeader: "device-b"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/refresh", transport.RefreshRequest{
		RefreshToken: registered.RefreshToken,
	}, deviceA)
	require.Equal(t, http.StatusOK, rec.Code)

	// superseded token is refused after rotation
	rec = env.do(t, http.MethodPost, "/refresh", transport.RefreshRequest{
		RefreshToken: registered.RefreshToken,
	}, deviceA)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuth_Refresh_Failures(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/refresh", transport.RefreshRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/refresh", transport.RefreshRequest{RefreshToken: "garbage"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// signed for a user the store never had
	pair, err := env.svc.Issuer.IssuePair("ghost-user", DefaultDeviceID)
	require.NoError(t, err)
	rec = env.do(t, http.MethodPost, "/refresh", transport.RefreshRequest{RefreshToken: pair.RefreshToken}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuth_Me_TokenFailures(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/me", nil, map[string]string{
		echo.HeaderAuthorization: "Bearer garbage",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/me", nil, map[string]string{
		echo.HeaderAuthorization: "NotBearer token",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	pair, err := env.svc.Issuer.IssuePair("ghost-user", DefaultDeviceID)
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/me", nil, map[string]string{
		echo.HeaderAuthorization: "Bearer " + pair.AccessToken,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

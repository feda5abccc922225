package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tempora-app/tempora/internal/server/storage/sqlite"
	"github.com/tempora-app/tempora/pkg/api"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:          []byte("0123456789abcdef0123456789abcdef"),
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func newAuthTestHandler(t *testing.T) *AuthHandler {
	t.Helper()

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return NewAuthHandler(testLogger(), store, store, testJWTConfig())
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data)))
	return w
}

func registerAndLogin(t *testing.T, h *AuthHandler, username, password string) api.TokenResponse {
	t.Helper()

	w := postJSON(t, h.Register, "/api/v1/auth/register", api.RegisterRequest{Username: username, Password: password})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w2 := postJSON(t, h.Login, "/api/v1/auth/login", api.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, w2.Code, w2.Body.String())

	var tokens api.TokenResponse
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &tokens))
	return tokens
}

func TestRegister(t *testing.T) {
	h := newAuthTestHandler(t)

	w := postJSON(t, h.Register, "/api/v1/auth/register", api.RegisterRequest{
		Username: "alice",
		Password: "correcthorse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp api.RegisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.UserID)
}

func TestRegisterValidation(t *testing.T) {
	h := newAuthTestHandler(t)

	tests := []struct {
		name string
		req  api.RegisterRequest
	}{
		{name: "short username", req: api.RegisterRequest{Username: "ab", Password: "correcthorse"}},
		{name: "bad username chars", req: api.RegisterRequest{Username: "al ice", Password: "correcthorse"}},
		{name: "short password", req: api.RegisterRequest{Username: "alice", Password: "short"}},
		{name: "empty password", req: api.RegisterRequest{Username: "alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, h.Register, "/api/v1/auth/register", tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	h := newAuthTestHandler(t)

	req := api.RegisterRequest{Username: "alice", Password: "correcthorse"}
	w := postJSON(t, h.Register, "/api/v1/auth/register", req)
	require.Equal(t, http.StatusCreated, w.Code)

	w2 := postJSON(t, h.Register, "/api/v1/auth/register", req)
	assert.Equal(t, http.StatusConflict, w2.Code)
}

func TestLogin(t *testing.T) {
	h := newAuthTestHandler(t)

	tokens := registerAndLogin(t, h, "alice", "correcthorse")
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, int64(15*60), tokens.ExpiresIn)

	claims, err := ValidateAccessToken(testJWTConfig(), tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.UserID)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newAuthTestHandler(t)

	w := postJSON(t, h.Register, "/api/v1/auth/register", api.RegisterRequest{Username: "alice", Password: "correcthorse"})
	require.Equal(t, http.StatusCreated, w.Code)

	// Wrong password and unknown user produce the same answer.
	w2 := postJSON(t, h.Login, "/api/v1/auth/login", api.LoginRequest{Username: "alice", Password: "wrongpassword"})
	assert.Equal(t, http.StatusUnauthorized, w2.Code)

	w3 := postJSON(t, h.Login, "/api/v1/auth/login", api.LoginRequest{Username: "nobody", Password: "correcthorse"})
	assert.Equal(t, http.StatusUnauthorized, w3.Code)
}

func TestRefreshRotatesTokens(t *testing.T) {
	h := newAuthTestHandler(t)

	tokens := registerAndLogin(t, h, "alice", "correcthorse")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.RefreshToken)
	h.Refresh(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rotated api.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rotated))
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The old refresh token was invalidated by the rotation.
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req2.Header.Set("Authorization", "Bearer "+tokens.RefreshToken)
	h.Refresh(w2, req2)
	assert.Equal(t, http.StatusUnauthorized, w2.Code)
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	h := newAuthTestHandler(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer made-up-token")
	h.Refresh(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutRevokesRefreshTokens(t *testing.T) {
	h := newAuthTestHandler(t)

	tokens := registerAndLogin(t, h, "alice", "correcthorse")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	h.Logout(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	// The refresh token no longer works.
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", nil)
	req2.Header.Set("Authorization", "Bearer "+tokens.RefreshToken)
	h.Refresh(w2, req2)
	assert.Equal(t, http.StatusUnauthorized, w2.Code)
}

func TestLogoutRequiresValidAccessToken(t *testing.T) {
	h := newAuthTestHandler(t)

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	h.Logout(w2, req)
	assert.Equal(t, http.StatusUnauthorized, w2.Code)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testJWTConfig()

	token, expiresIn, err := GenerateAccessToken(cfg, "user-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(900), expiresIn)

	claims, err := ValidateAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "tempora", claims.Issuer)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	cfg := testJWTConfig()

	token, _, err := GenerateAccessToken(cfg, "user-1", "alice")
	require.NoError(t, err)

	other := cfg
	other.Secret = []byte("another-secret-another-secret-32")
	_, err = ValidateAccessToken(other, token)
	assert.Error(t, err)
}

func TestAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.AccessTokenTTL = -time.Minute

	token, _, err := GenerateAccessToken(cfg, "user-1", "alice")
	require.NoError(t, err)

	_, err = ValidateAccessToken(cfg, token)
	assert.Error(t, err)
}

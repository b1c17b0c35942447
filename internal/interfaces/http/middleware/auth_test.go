package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garmentflow/backend/internal/infrastructure/auth"
	"github.com/garmentflow/backend/internal/infrastructure/config"
	"github.com/garmentflow/backend/internal/infrastructure/logger"
	"github.com/garmentflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Issuer:     "garmentflow-auth",
		HMACSecret: "test-secret-key-at-least-32-characters",
		ClockSkew:  time.Second,
	}
}

func newAuthRouter(t *testing.T, log *zap.Logger) *gin.Engine {
	t.Helper()

	verifier, err := auth.NewTokenVerifier(testAuthConfig())
	require.NoError(t, err)

	router := gin.New()
	router.Use(RequestID())
	router.Use(AuthenticateWithConfig(AuthConfig{
		Verifier:  verifier,
		Logger:    log,
		SkipPaths: []string{"/public"},
	}))
	router.GET("/me", func(c *gin.Context) {
		id, ok := GetIdentity(c)
		require.True(t, ok)
		assert.Equal(t, id.UID, logger.GetActorUID(c.Request.Context()))
		c.JSON(http.StatusOK, gin.H{"uid": id.UID, "email": id.Email})
	})
	router.GET("/public", func(c *gin.Context) {
		_, ok := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})
	return router
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestAuthenticate_ValidToken(t *testing.T) {
	router := newAuthRouter(t, zap.NewNop())
	token, err := auth.NewTokenIssuer(testAuthConfig(), time.Hour).Issue("uid-buyer-1", "buyer@shop.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "uid-buyer-1")
	assert.Contains(t, w.Body.String(), "buyer@shop.com")
}

func TestAuthenticate_Rejections(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "garmentflow-auth",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
		UID:   "uid-1",
		Email: "a@b.com",
	}).SignedString([]byte(testAuthConfig().HMACSecret))
	require.NoError(t, err)
	foreign, err := auth.NewTokenIssuer(config.AuthConfig{
		Issuer:     "garmentflow-auth",
		HMACSecret: "another-secret-key-at-least-32-characters",
	}, time.Hour).Issue("uid-1", "a@b.com")
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "Missing authorization header"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "Invalid authorization header format"},
		{"empty bearer", "Bearer ", "Missing token"},
		{"garbage token", "Bearer not-a-jwt", "Invalid token"},
		{"foreign signature", "Bearer " + foreign, "Invalid token"},
		{"expired token", "Bearer " + expired, "Token has expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			router := newAuthRouter(t, zap.New(core))

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			errInfo := decodeError(t, w)
			assert.Equal(t, dto.ErrCodeUnauthenticated, errInfo.Code)
			assert.Equal(t, tt.message, errInfo.Message)
			assert.Equal(t, w.Header().Get("X-Request-ID"), errInfo.RequestID)
			assert.Equal(t, 1, logs.FilterMessage("Authentication failed").Len())
		})
	}
}

func TestAuthenticate_SkipPaths(t *testing.T) {
	router := newAuthRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated": false}`, w.Body.String())
}

func TestGetIdentity_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetIdentity(c)
	assert.False(t, ok)

	c.Set(IdentityKey, "not an identity")
	_, ok = GetIdentity(c)
	assert.False(t, ok)
}

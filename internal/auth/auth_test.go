package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "test-issuer"}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)
	return token
}

func TestParse(t *testing.T) {
	token := sign(t, jwt.MapClaims{
		"sub":    "user-1",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": "stats:read  stats:write",
	})

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.True(t, claims.HasScope(ScopeStatsRead))
	require.True(t, claims.HasScope(ScopeStatsWrite))
	require.False(t, claims.HasScope("admin"))
}

func TestParseRejects(t *testing.T) {
	cases := map[string]jwt.MapClaims{
		"expired":      {"sub": "u", "iss": testConfig.Issuer, "exp": time.Now().Add(-time.Minute).Unix()},
		"wrong issuer": {"sub": "u", "iss": "other", "exp": time.Now().Add(time.Hour).Unix()},
		"no subject":   {"iss": testConfig.Issuer, "exp": time.Now().Add(time.Hour).Unix()},
		"no expiry":    {"sub": "u", "iss": testConfig.Issuer},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(sign(t, claims), testConfig)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err := Parse("  ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, found := FromContext(r.Context())
		if found {
			w.Header().Set("X-Subject", claims.Subject)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	handler := NewMiddleware(testConfig, SkipHealth).Wrap(RequireScope(ScopeStatsRead)(ok))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/leaderboards/owner", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t, `{"type":"unauthorized","detail":"missing bearer token"}`, rr.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/v1/leaderboards/owner", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, jwt.MapClaims{
		"sub": "user-1", "iss": testConfig.Issuer, "exp": time.Now().Add(time.Hour).Unix(), "scopes": []string{"other"},
	}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/leaderboards/owner", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, jwt.MapClaims{
		"sub": "user-1", "iss": testConfig.Issuer, "exp": time.Now().Add(time.Hour).Unix(), "scopes": []string{ScopeStatsRead},
	}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "user-1", rr.Header().Get("X-Subject"))
}

func TestMiddlewareSkipsHealth(t *testing.T) {
	handler := NewMiddleware(testConfig, SkipHealth).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

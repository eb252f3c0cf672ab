package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminJWTRejectsMissingHeader(t *testing.T) {
	handler := AdminJWT("secret")(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/bookings", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminJWTRejectsBadToken(t *testing.T) {
	handler := AdminJWT("secret")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminJWTRejectsWrongSecret(t *testing.T) {
	token, err := IssueAdminToken("other-secret", "admin", time.Hour)
	require.NoError(t, err)

	handler := AdminJWT("secret")(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminJWTAcceptsValidToken(t *testing.T) {
	token, err := IssueAdminToken("secret", "admin", time.Hour)
	require.NoError(t, err)

	var gotSubject string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := AdminClaimsFromContext(r.Context())
		require.True(t, ok)
		gotSubject = claims.Subject
	})
	handler := AdminJWT("secret")(inner)

	req := httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", gotSubject)
}

func TestAdminJWTEmptySecretLocksOut(t *testing.T) {
	token, err := IssueAdminToken("", "admin", time.Hour)
	require.NoError(t, err)

	handler := AdminJWT("")(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORSAllowsListedOrigin(t *testing.T) {
	handler := CORS([]string{"https://doctorktherapy.com"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/availability", nil)
	req.Header.Set("Origin", "https://doctorktherapy.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "https://doctorktherapy.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSIgnoresUnlistedOrigin(t *testing.T) {
	handler := CORS([]string{"https://doctorktherapy.com"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/availability", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS([]string{"*"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/bookings", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://anywhere.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLoggerEchoesRequestID(t *testing.T) {
	handler := RequestLogger(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestRequestLoggerGeneratesRequestID(t *testing.T) {
	handler := RequestLogger(nil)(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

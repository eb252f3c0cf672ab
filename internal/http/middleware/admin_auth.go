// Package middleware holds the HTTP middlewares shared by the router.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// AdminJWT guards the admin namespace with an HMAC-signed JWT. An empty
// secret disables admin access entirely rather than opening it up.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "admin auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminClaimsKey, claims)))
		})
	}
}

// AdminClaimsFromContext returns the verified admin claims, when present.
func AdminClaimsFromContext(ctx context.Context) (jwt.RegisteredClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(jwt.RegisteredClaims)
	return claims, ok
}

// IssueAdminToken signs a short-lived admin JWT. Operator tooling and tests
// use it; the server itself only verifies.
func IssueAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Package auth guards the mutating admin API endpoints with JWT bearer
// tokens signed with a shared secret.
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "traffic-director/internal/common/errors"
)

// Auth validates admin API bearer tokens.
type Auth struct {
	secret []byte
}

// New creates an Auth from the shared signing secret.
func New(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// IssueToken mints a token for the given subject, valid for ttl. Used
// by operator tooling; the server itself only validates.
func (a *Auth) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateToken parses and verifies a token, returning its subject.
func (a *Auth) ValidateToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	return claims.Subject, nil
}

// RequireAuth wraps a handler, rejecting requests without a valid
// bearer token.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			unauthorized(w)
			return
		}

		subject, err := a.ValidateToken(token)
		if err != nil {
			unauthorized(w)
			return
		}

		r.Header.Set("X-Subject", subject)
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]*apperrors.AppError{
		"error": apperrors.AuthError("authentication required"),
	})
}

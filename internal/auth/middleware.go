package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/leadnotes/leadnotes/internal/apperr"
)

// Verifier checks a raw bearer token and returns the identity it encodes.
type Verifier interface {
	Verify(token string) (*Identity, error)
}

// JWTVerifier verifies HS256-signed tokens against a shared secret. The
// subject claim becomes the user id; an "email" claim, when present, the
// user's email.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier for the given signing secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verify parses and validates the token (signature and expiry).
func (v *JWTVerifier) Verify(token string) (*Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: parse token: %w: %w", apperr.ErrUnauthorized, err)
	}
	if !parsed.Valid || c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject: %w", apperr.ErrUnauthorized)
	}
	return &Identity{UserID: c.Subject, Email: c.Email}, nil
}

// Middleware returns the gate for the given mode. In enforced mode verifier
// must be non-nil; in the permissive modes requests pass through untouched.
func Middleware(mode string, verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if mode != ModeEnforced {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "unauthorized: missing token")
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")

			id, err := verifier.Verify(token)
			if err != nil {
				unauthorized(w, "unauthorized: invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

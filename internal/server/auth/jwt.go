// Package auth issues and validates the HS256 session tokens handed to
// clients and extracts them from incoming requests.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sanguetsu/ikebana/internal/common"
)

// Kind distinguishes what a token may be used for.
type Kind string

const (
	KindAccess Kind = "access"
)

// Claims carries the registered claims plus the token kind. The subject is
// the account username.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"kind"`
}

// GenerateToken signs a token for identity that expires after validity.
func GenerateToken(identity string, kind Kind, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Kind: kind,
	})

	return token.SignedString(secretKey)
}

// ParseToken validates the signature, expiry and kind and returns the
// identity. Expired tokens yield common.ErrTokenExpired, everything else
// common.ErrInvalidToken.
func ParseToken(tokenString string, kind Kind, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Kind != kind || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

// TokenFromRequest returns the bearer token from the Authorization header,
// falling back to the "code" query parameter used by mailed links.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(common.AuthorizationHeader); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	return r.URL.Query().Get(common.TokenQueryParam)
}

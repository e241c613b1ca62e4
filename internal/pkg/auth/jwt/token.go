package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt"
)

var (
	// ErrTokenMissing is returned when no token was presented.
	ErrTokenMissing = errors.New("access token missing")

	// ErrWrongIssuer is returned when the token was not signed for the configured API key.
	ErrWrongIssuer = errors.New("access token issued for another api key")

	// ErrNoIdentity is returned when the token carries no subject.
	ErrNoIdentity = errors.New("access token has no identity")

	// ErrNoCredentials is returned when no API key or secret is configured to verify against.
	ErrNoCredentials = errors.New("access token verification is not configured")
)

// ParseAccessToken verifies an HS256 access token signed with secret for apiKey
// and returns its claims. Expiry and not-before are enforced.
func ParseAccessToken(tokenString, apiKey, secret string) (*Payload, error) {
	if apiKey == "" || secret == "" {
		return nil, ErrNoCredentials
	}

	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	if claims.Issuer != apiKey {
		return nil, ErrWrongIssuer
	}

	if claims.Subject == "" {
		return nil, ErrNoIdentity
	}

	return claims, nil
}

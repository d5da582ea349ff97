package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenLifetime is how long an issued token remains valid. There is no
// revocation: a token outlives any later account change.
const TokenLifetime = 24 * time.Hour

// ErrInvalidToken is returned for every verification failure. Malformed
// input, a bad signature, and an expired token are deliberately
// indistinguishable to callers.
var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and verifies signed bearer tokens. It is stateless;
// the only state is the signing key.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService signing with the given key.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Issue creates a signed token binding userID, expiring after TokenLifetime.
func (s *TokenService) Issue(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(TokenLifetime).Unix(),
		"jti":     uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify returns the user id embedded in a valid token, or ErrInvalidToken.
func (s *TokenService) Verify(tokenStr string) (int64, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	// JSON numbers decode as float64.
	raw, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrInvalidToken
	}
	return int64(raw), nil
}

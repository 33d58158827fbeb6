package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every way a token can fail to decode:
// malformed input, a bad signature, or an expiry in the past. Callers
// get a single answer so nothing about the failure mode leaks out.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the session claim set carried inside a token.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// TokenCodec encodes and decodes signed session tokens. Tokens are
// HS256 JWTs; validity is purely decodability plus expiry, there is no
// server-side session state.
type TokenCodec struct {
	secret []byte
}

func NewTokenCodec(secret string) TokenCodec {
	return TokenCodec{secret: []byte(secret)}
}

// Encode serializes the user identity into a token valid for ttl.
func (c TokenCodec) Encode(userID int64, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Email:  email,
	})
	return token.SignedString(c.secret)
}

// Decode validates a token and returns its claims. Any parse, signature
// or expiry failure comes back as ErrInvalidToken; Decode never panics
// on malformed input.
func (c TokenCodec) Decode(tokenString string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.UserID < 1 {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PurposeSession     = "session"
	PurposeVerifyEmail = "verify_email"
)

type Claims struct {
	UserID  string `json:"uid"`
	Role    string `json:"role"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

func SignJWT(secret string, userID string, role string, expiresMin int) (string, error) {
	return sign(secret, Claims{UserID: userID, Role: role, Purpose: PurposeSession}, time.Duration(expiresMin)*time.Minute)
}

// SignVerifyToken issues the token embedded in the email confirmation link.
func SignVerifyToken(secret string, userID string, ttl time.Duration) (string, error) {
	return sign(secret, Claims{UserID: userID, Purpose: PurposeVerifyEmail}, ttl)
}

func sign(secret string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseJWT validates signature, expiry and purpose.
func ParseJWT(secret, tokenStr, purpose string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	// tokens minted before purposes existed are sessions
	p := claims.Purpose
	if p == "" {
		p = PurposeSession
	}
	if p != purpose {
		return nil, fmt.Errorf("token purpose %q, want %q", p, purpose)
	}
	return claims, nil
}

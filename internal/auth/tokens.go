package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"user-service/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims carried by an access token. SessionID ties the token to the
// Redis session so logout can revoke it.
type Claims struct {
	UserID    string `json:"uid"`
	UserType  string `json:"utype"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenManager mints and verifies HMAC-signed access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenManager(cfg *config.Config) *TokenManager {
	return &TokenManager{
		secret: []byte(cfg.Auth.JWTSecret),
		ttl:    cfg.Auth.AccessTokenTTL,
		issuer: "user-service",
	}
}

// Mint issues an access token for the user and returns the token plus the
// session ID embedded in it.
func (tm *TokenManager) Mint(userID, userType string) (string, string, error) {
	sessionID := uuid.New().String()
	now := time.Now().UTC()

	claims := Claims{
		UserID:    userID,
		UserType:  userType,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, sessionID, nil
}

// Verify parses and validates an access token.
func (tm *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tm.secret, nil
	}, jwt.WithIssuer(tm.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// TTL reports how long minted tokens stay valid.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

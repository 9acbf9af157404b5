// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/arguslabs/argus/internal/config"
	"github.com/arguslabs/argus/internal/models"
)

// ErrInvalidToken is returned for any token that fails validation:
// bad signature, wrong algorithm, expired, or malformed claims.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the access-token claims. Subject carries the user ID;
// OrganizationID scopes every authorized request to one tenant.
type Claims struct {
	OrganizationID uuid.UUID   `json:"org"`
	Role           models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager mints and validates HS256 access tokens.
//
// Tokens are stateless: they cannot be revoked before expiry, so the
// configured lifetime bounds the exposure window of a leaked token.
type TokenManager struct {
	secret []byte
	expire time.Duration
}

// NewTokenManager creates a token manager from the security config.
// The secret must be non-empty; HS256 is the only supported algorithm
// and is enforced again at validation time.
func NewTokenManager(cfg *config.SecurityConfig) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("secret key is required but was empty")
	}
	if cfg.JWTAlgorithm != "HS256" {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", cfg.JWTAlgorithm)
	}
	return &TokenManager{
		secret: []byte(cfg.SecretKey),
		expire: cfg.AccessTokenExpire,
	}, nil
}

// GenerateToken signs an access token for the given user.
func (m *TokenManager) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expire)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, algorithm, and expiry, and returns
// the embedded claims. All failures collapse into ErrInvalidToken so
// callers cannot leak validation detail to clients.
func (m *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.OrganizationID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserID returns the subject as a UUID. ValidateToken already checked
// that it parses.
func (c *Claims) UserID() uuid.UUID {
	id, _ := uuid.Parse(c.Subject)
	return id
}

// Copyright 2026 The FleetWorks Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens are stateless: there is no revocation list, and a token stays valid
// until its expiry even if the user record changes. This is a documented
// limitation, not a bug.

// TokenCodec issues and verifies signed, expiring bearer tokens carrying
// identity claims. The signing secret is held in memory only, is immutable
// for the process lifetime, and is never logged. Concurrent Issue/Verify
// calls need no synchronization.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	maxTTL time.Duration
}

type identityClaims struct {
	UserID    string `json:"uid"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// NewTokenCodec creates a codec signing with HMAC-SHA256. ttl is the default
// token lifetime; maxTTL caps the lifetime a caller of Issue can request.
func NewTokenCodec(secret []byte, ttl, maxTTL time.Duration) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("token signing secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	if maxTTL < ttl {
		maxTTL = ttl
	}
	return &TokenCodec{secret: secret, ttl: ttl, maxTTL: maxTTL}, nil
}

// DefaultTTL returns the lifetime used when Issue is called with ttl <= 0.
func (c *TokenCodec) DefaultTTL() time.Duration {
	return c.ttl
}

// Issue signs a token for the identity. ttl <= 0 uses the default lifetime;
// a ttl above the configured maximum is clamped.
func (c *TokenCodec) Issue(ident Identity, ttl time.Duration) (string, error) {
	if ident.Subject == "" {
		return "", fmt.Errorf("identity subject is required")
	}
	if !ident.Role.Valid() {
		return "", fmt.Errorf("invalid role %q", ident.Role)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	if ttl > c.maxTTL {
		ttl = c.maxTTL
	}

	now := time.Now()
	claims := identityClaims{
		UserID:    ident.UserID,
		Role:      string(ident.Role),
		CompanyID: ident.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify decodes and validates a token, returning the embedded identity.
// Any failure (bad signature, expiry, malformed payload, missing subject,
// unknown role) yields ErrUnauthenticated; a partially trusted identity is
// never returned.
func (c *TokenCodec) Verify(token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	var claims identityClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		// Pin the algorithm; accepting whatever the header declares would
		// allow signature confusion attacks.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: token expired", ErrUnauthenticated)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: invalid signature", ErrUnauthenticated)
		default:
			return nil, fmt.Errorf("%w: malformed token", ErrUnauthenticated)
		}
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token missing subject", ErrUnauthenticated)
	}
	role := Role(claims.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: token carries unknown role", ErrUnauthenticated)
	}

	return &Identity{
		Subject:   claims.Subject,
		UserID:    claims.UserID,
		Role:      role,
		CompanyID: claims.CompanyID,
	}, nil
}

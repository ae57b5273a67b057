// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth implements accounts, credentials and request authentication.
// This file holds access token issuance and verification. Tokens are HS256
// JWTs carrying the account ID as subject and a token ID for revocation.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTtlHours is one week, the default access token lifetime.
const DefaultTokenTtlHours = 168

// ErrInvalidToken is returned for tokens that fail signature or claim
// verification.
var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer signs and verifies access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer with the given HMAC secret and lifetime
// in hours. A non-positive lifetime falls back to the one week default.
func NewTokenIssuer(secret string, ttlHours int) *TokenIssuer {
	if ttlHours <= 0 {
		ttlHours = DefaultTokenTtlHours
	}
	return &TokenIssuer{secret: []byte(secret), ttl: time.Duration(ttlHours) * time.Hour}
}

// Issue creates a signed access token for one account.
//
// Inputs:
//   - userId: The account the token authenticates.
//
// Outputs:
//   - string: The signed JWT.
//   - time.Time: When the token expires.
//   - error: A signing error.
func (t *TokenIssuer) Issue(userId string) (string, time.Time, error) {
	now := time.Now().UTC()
	expires := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userId,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify checks a token's signature and expiry and returns its claims.
//
// Inputs:
//   - raw: The bearer token string.
//
// Outputs:
//   - *jwt.RegisteredClaims: The verified claims, including subject and
//     token ID.
//   - error: ErrInvalidToken when verification fails.
func (t *TokenIssuer) Verify(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

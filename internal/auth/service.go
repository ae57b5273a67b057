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
// This file, `service.go`, ties the store, password hashing and token
// issuance together into the operations the auth endpoints expose.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

// ErrBadCredentials is returned for login attempts with a wrong email or
// password. One error for both cases so responses don't reveal which was
// wrong.
var ErrBadCredentials = errors.New("invalid email or password")

// Service implements registration, login, logout and account lookups.
type Service struct {
	Store  *Store
	Tokens *TokenIssuer
}

// AuthResult is a successful registration or login: the account plus a
// fresh access token.
type AuthResult struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Register creates a new account on the free tier and signs it in.
//
// Inputs:
//   - ctx: The context for the request.
//   - email: The account email, normalized to lower case.
//   - name: Display name, optional.
//   - password: The plain text password.
//
// Outputs:
//   - *AuthResult: The new account and its first access token.
//   - error: ErrEmailTaken, a validation error, or a storage error.
func (s *Service) Register(ctx context.Context, email string, name string, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("a valid email is required")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Id:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		Tier:      "free",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Store.CreateUser(ctx, user, hash); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login verifies credentials and returns a fresh access token.
func (s *Service) Login(ctx context.Context, email string, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, hash, err := s.Store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !CheckPasswordHash(password, hash) {
		return nil, ErrBadCredentials
	}
	if err := s.Store.TouchLastLogin(ctx, user.Id); err != nil {
		return nil, err
	}
	user.LastLogin = time.Now().UTC()
	return s.issue(user)
}

// Logout revokes one access token. The token stays unusable until it would
// have expired on its own.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.Tokens.Verify(rawToken)
	if err != nil {
		return err
	}
	expires := time.Now().UTC()
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return s.Store.RevokeToken(ctx, claims.ID, expires)
}

// Authenticate verifies a bearer token against its signature, expiry and
// the revocation list, and loads the account it belongs to.
//
// Outputs:
//   - *model.User: The authenticated account.
//   - error: ErrInvalidToken for anything that should read as 401.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*model.User, error) {
	claims, err := s.Tokens.Verify(rawToken)
	if err != nil {
		return nil, err
	}
	revoked, err := s.Store.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	user, _, err := s.Store.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) issue(user *model.User) (*AuthResult, error) {
	token, expires, err := s.Tokens.Issue(user.Id)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expires}, nil
}

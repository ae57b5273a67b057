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

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		Store:  newTestStore(t),
		Tokens: NewTokenIssuer("test-secret", 1),
	}
}

func TestRegisterAndLogin(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	result, err := service.Register(ctx, "Ada@Example.com ", "Ada", "a long password")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", result.User.Email)
	assert.Equal(t, "free", result.User.Tier)
	assert.NotEmpty(t, result.Token)

	login, err := service.Login(ctx, "ada@example.com", "a long password")
	require.NoError(t, err)
	assert.Equal(t, result.User.Id, login.User.Id)
	assert.NotEmpty(t, login.Token)
}

func TestRegisterValidation(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "not-an-email", "Ada", "a long password")
	assert.Error(t, err)

	_, err = service.Register(ctx, "ada@example.com", "Ada", "short")
	assert.Error(t, err)

	_, err = service.Register(ctx, "ada@example.com", "Ada", "a long password")
	require.NoError(t, err)
	_, err = service.Register(ctx, "ada@example.com", "Other Ada", "another password")
	assert.True(t, errors.Is(err, ErrEmailTaken))
}

func TestLoginBadCredentials(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "ada@example.com", "Ada", "a long password")
	require.NoError(t, err)

	// Wrong password and unknown email both surface the same error so the
	// response does not leak which accounts exist.
	_, err = service.Login(ctx, "ada@example.com", "wrong password")
	assert.True(t, errors.Is(err, ErrBadCredentials))
	_, err = service.Login(ctx, "nobody@example.com", "a long password")
	assert.True(t, errors.Is(err, ErrBadCredentials))
}

func TestAuthenticate(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	result, err := service.Register(ctx, "ada@example.com", "Ada", "a long password")
	require.NoError(t, err)

	user, err := service.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.Id, user.Id)

	_, err = service.Authenticate(ctx, "garbage-token")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestLogoutRevokesToken(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	result, err := service.Register(ctx, "ada@example.com", "Ada", "a long password")
	require.NoError(t, err)

	require.NoError(t, service.Logout(ctx, result.Token))

	// The revoked token no longer authenticates, but a fresh login works.
	_, err = service.Authenticate(ctx, result.Token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	login, err := service.Login(ctx, "ada@example.com", "a long password")
	require.NoError(t, err)
	_, err = service.Authenticate(ctx, login.Token)
	assert.NoError(t, err)
}

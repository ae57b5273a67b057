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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 1)

	raw, expiresAt, err := issuer.Issue("user-123")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := issuer.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, _, err := NewTokenIssuer("secret-one", 1).Issue("user-123")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-two", 1).Verify(raw)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 1)
	for _, raw := range []string{"", "not.a.token", "a.b.c"} {
		_, err := issuer.Verify(raw)
		assert.True(t, errors.Is(err, ErrInvalidToken), raw)
	}
}

func TestTokenIdsAreUnique(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 1)
	first, _, err := issuer.Issue("user-123")
	require.NoError(t, err)
	second, _, err := issuer.Issue("user-123")
	require.NoError(t, err)

	c1, err := issuer.Verify(first)
	require.NoError(t, err)
	c2, err := issuer.Verify(second)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestDefaultTtl(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 0)
	_, expiresAt, err := issuer.Issue("user-123")
	require.NoError(t, err)
	// A zero TTL falls back to the one-week default.
	assert.True(t, expiresAt.After(time.Now().Add(167*time.Hour)))
	assert.True(t, expiresAt.Before(time.Now().Add(169*time.Hour)))
}

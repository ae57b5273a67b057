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
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestUser() *model.User {
	return &model.User{
		Id:    uuid.NewString(),
		Email: "ada@example.com",
		Name:  "Ada",
		Tier:  "free",
	}
}

func TestCreateAndGetUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser()

	err := store.CreateUser(ctx, user, "hash-value")
	require.NoError(t, err)

	got, hash, err := store.GetUser(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)
	assert.Equal(t, "free", got.Tier)
	assert.Equal(t, "hash-value", hash)

	byEmail, _, err := store.GetUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.Id, byEmail.Id)

	// Creating a user row also seeds the default settings row.
	settings, err := store.GetSettings(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, settings.NotificationEmail)
	assert.Equal(t, "daily", settings.ProcessFrequency)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, newTestUser(), "h1"))

	dup := newTestUser()
	err := store.CreateUser(ctx, dup, "h2")
	assert.True(t, errors.Is(err, ErrEmailTaken))
}

func TestGetUserNotFound(t *testing.T) {
	store := newTestStore(t)
	_, _, err := store.GetUser(context.Background(), uuid.NewString())
	assert.True(t, errors.Is(err, ErrUserNotFound))

	_, _, err = store.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestUpdateTier(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser()
	require.NoError(t, store.CreateUser(ctx, user, "h"))

	require.NoError(t, store.UpdateTier(ctx, user.Id, "premium"))
	got, _, err := store.GetUser(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, "premium", got.Tier)

	err = store.UpdateTier(ctx, uuid.NewString(), "basic")
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

func TestSettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser()
	require.NoError(t, store.CreateUser(ctx, user, "h"))

	err := store.UpdateSettings(ctx, user.Id, &model.UserSettings{
		AutoProcessChannels: true,
		NotificationEmail:   false,
		ProcessFrequency:    "weekly",
	})
	require.NoError(t, err)

	got, err := store.GetSettings(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, got.AutoProcessChannels)
	assert.False(t, got.NotificationEmail)
	assert.Equal(t, "weekly", got.ProcessFrequency)
}

func TestPreferences(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser()
	require.NoError(t, store.CreateUser(ctx, user, "h"))

	require.NoError(t, store.SetPreferences(ctx, user.Id, map[string]string{
		"theme":    "dark",
		"language": "en",
	}))
	// Upserting an existing key overwrites it.
	require.NoError(t, store.SetPreferences(ctx, user.Id, map[string]string{
		"theme": "light",
	}))

	got, err := store.GetPreferences(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, "light", got["theme"])
	assert.Equal(t, "en", got["language"])
}

func TestSubscriptionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser()
	require.NoError(t, store.CreateUser(ctx, user, "h"))

	// No subscription yet: nil without error.
	sub, err := store.GetSubscription(ctx, user.Id)
	require.NoError(t, err)
	assert.Nil(t, sub)

	err = store.SaveSubscription(ctx, &model.Subscription{
		UserId:           user.Id,
		Plan:             "basic",
		Status:           "active",
		StripeCustomerId: "cus_123",
		StripeSessionId:  "sub_456",
		CurrentPeriodEnd: time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)

	sub, err = store.GetSubscription(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, "basic", sub.Plan)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, "sub_456", sub.StripeSessionId)
}

// TestTimeColumnsRoundTrip pins the timestamp handling: the driver returns
// TIMESTAMP columns as text, so every time value must survive a write and
// read back as a real time.Time.
func TestTimeColumnsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	user := newTestUser()
	user.CreatedAt = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	require.NoError(t, store.CreateUser(ctx, user, "h"))

	got, _, err := store.GetUser(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(user.CreatedAt), "created_at came back as %v", got.CreatedAt)

	require.NoError(t, store.TouchLastLogin(ctx, user.Id))
	got, _, err = store.GetUser(ctx, user.Id)
	require.NoError(t, err)
	assert.False(t, got.LastLogin.IsZero())
	assert.WithinDuration(t, time.Now(), got.LastLogin, 5*time.Second)

	periodEnd := time.Date(2026, 4, 14, 9, 26, 53, 0, time.UTC)
	require.NoError(t, store.SaveSubscription(ctx, &model.Subscription{
		UserId:           user.Id,
		Plan:             "premium",
		Status:           "active",
		CurrentPeriodEnd: periodEnd,
	}))
	sub, err := store.GetSubscription(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, sub.CurrentPeriodEnd.Equal(periodEnd), "current_period_end came back as %v", sub.CurrentPeriodEnd)
	assert.False(t, sub.UpdatedAt.IsZero())
}

func TestParseTimeColumn(t *testing.T) {
	// The canonical layout and SQLite's CURRENT_TIMESTAMP default both
	// parse; empty means the column was NULL.
	got, err := parseTimeColumn("2026-03-14T09:26:53Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC), got)

	got, err = parseTimeColumn("2026-03-14 09:26:53")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC), got)

	got, err = parseTimeColumn("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseTimeColumn("yesterday")
	assert.Error(t, err)
}

func TestTokenRevocation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tokenId := uuid.NewString()
	revoked, err := store.IsTokenRevoked(ctx, tokenId)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.RevokeToken(ctx, tokenId, time.Now().Add(time.Hour)))
	revoked, err = store.IsTokenRevoked(ctx, tokenId)
	require.NoError(t, err)
	assert.True(t, revoked)
}

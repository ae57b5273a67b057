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
// This file, `store.go`, defines the SQLite-backed account store. Account
// data is relational and small, so it lives in an embedded database next to
// the process rather than in BigQuery with the content tables.
package auth

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jaycherian/gcp-go-whisper-dashboard/internal/core/model"
)

//go:embed schema.sql
var schemaFiles embed.FS

// Time columns are stored as fixed-width RFC 3339 UTC strings. The sqlite
// driver hands TIMESTAMP values back as text, so the store formats and
// parses them explicitly instead of binding time.Time through the driver;
// the fixed width keeps string comparisons in SQL temporally correct.
const timeColumnLayout = time.RFC3339

func formatTime(t time.Time) string {
	return t.UTC().Format(timeColumnLayout)
}

func parseTimeColumn(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(timeColumnLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	// SQLite's CURRENT_TIMESTAMP default uses this layout.
	return time.Parse("2006-01-02 15:04:05", value)
}

// ErrUserNotFound is returned when a lookup matches no account.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registration reuses an existing email.
var ErrEmailTaken = errors.New("email already registered")

// Store wraps the SQLite connection holding users, settings, preferences,
// subscriptions and revoked tokens.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the account database at the given
// path and applies the schema.
//
// Inputs:
//   - path: Filesystem path of the database file.
//
// Outputs:
//   - *Store: The ready-to-use store.
//   - error: An open, pragma or migration error.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL and a busy timeout keep concurrent request handlers from
	// tripping over each other on the single database file.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to execute pragma %q: %w", pragma, err)
		}
	}

	schema, err := schemaFiles.ReadFile("schema.sql")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(string(schema)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new account with default settings.
func (s *Store) CreateUser(ctx context.Context, user *model.User, passwordHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", user.Email).Scan(&exists); err != nil {
		return err
	}
	if exists > 0 {
		return ErrEmailTaken
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO users (id, email, name, password_hash, tier, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.Id, user.Email, user.Name, passwordHash, user.Tier, formatTime(user.CreatedAt))
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "INSERT INTO user_settings (user_id) VALUES (?)", user.Id)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// GetUserByEmail loads one account and its password hash by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, string, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash, tier, created_at, COALESCE(last_login, created_at) FROM users WHERE email = ?", email)
	return scanUser(row)
}

// GetUser loads one account and its password hash by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, string, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash, tier, created_at, COALESCE(last_login, created_at) FROM users WHERE id = ?", id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*model.User, string, error) {
	user := &model.User{}
	var hash, createdAt, lastLogin string
	err := row.Scan(&user.Id, &user.Email, &user.Name, &hash, &user.Tier, &createdAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrUserNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if user.CreatedAt, err = parseTimeColumn(createdAt); err != nil {
		return nil, "", fmt.Errorf("bad created_at for user %s: %w", user.Id, err)
	}
	if user.LastLogin, err = parseTimeColumn(lastLogin); err != nil {
		return nil, "", fmt.Errorf("bad last_login for user %s: %w", user.Id, err)
	}
	return user, hash, nil
}

// TouchLastLogin stamps a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, userId string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", formatTime(time.Now()), userId)
	return err
}

// UpdateTier moves an account between plan tiers. The billing layer calls
// this when a subscription becomes active or lapses.
func (s *Store) UpdateTier(ctx context.Context, userId string, tier string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET tier = ? WHERE id = ?", tier, userId)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetSettings loads an account's processing settings.
func (s *Store) GetSettings(ctx context.Context, userId string) (*model.UserSettings, error) {
	settings := &model.UserSettings{}
	err := s.db.QueryRowContext(ctx,
		"SELECT auto_process_channels, notification_email, process_frequency FROM user_settings WHERE user_id = ?",
		userId).Scan(&settings.AutoProcessChannels, &settings.NotificationEmail, &settings.ProcessFrequency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateSettings replaces an account's processing settings.
func (s *Store) UpdateSettings(ctx context.Context, userId string, settings *model.UserSettings) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO user_settings (user_id, auto_process_channels, notification_email, process_frequency) VALUES (?, ?, ?, ?) "+
			"ON CONFLICT(user_id) DO UPDATE SET auto_process_channels = excluded.auto_process_channels, "+
			"notification_email = excluded.notification_email, process_frequency = excluded.process_frequency",
		userId, settings.AutoProcessChannels, settings.NotificationEmail, settings.ProcessFrequency)
	return err
}

// GetPreferences loads an account's free-form preference map.
func (s *Store) GetPreferences(ctx context.Context, userId string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM user_preferences WHERE user_id = ?", userId)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}

// SetPreferences upserts a batch of preference keys.
func (s *Store) SetPreferences(ctx context.Context, userId string, prefs map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for key, value := range prefs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO user_preferences (user_id, key, value) VALUES (?, ?, ?) "+
				"ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value",
			userId, key, value)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSubscription loads an account's subscription row, if any.
func (s *Store) GetSubscription(ctx context.Context, userId string) (*model.Subscription, error) {
	sub := &model.Subscription{}
	var periodEnd, updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, plan, status, stripe_customer_id, stripe_session_id, COALESCE(current_period_end, ''), updated_at "+
			"FROM subscriptions WHERE user_id = ?", userId).
		Scan(&sub.UserId, &sub.Plan, &sub.Status, &sub.StripeCustomerId, &sub.StripeSessionId, &periodEnd, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sub.CurrentPeriodEnd, err = parseTimeColumn(periodEnd); err != nil {
		return nil, fmt.Errorf("bad current_period_end for user %s: %w", userId, err)
	}
	if sub.UpdatedAt, err = parseTimeColumn(updatedAt); err != nil {
		return nil, fmt.Errorf("bad updated_at for user %s: %w", userId, err)
	}
	return sub, nil
}

// SaveSubscription upserts an account's subscription row.
func (s *Store) SaveSubscription(ctx context.Context, sub *model.Subscription) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO subscriptions (user_id, plan, status, stripe_customer_id, stripe_session_id, current_period_end, updated_at) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT(user_id) DO UPDATE SET plan = excluded.plan, status = excluded.status, "+
			"stripe_customer_id = excluded.stripe_customer_id, stripe_session_id = excluded.stripe_session_id, "+
			"current_period_end = excluded.current_period_end, updated_at = excluded.updated_at",
		sub.UserId, sub.Plan, sub.Status, sub.StripeCustomerId, sub.StripeSessionId, formatTime(sub.CurrentPeriodEnd), formatTime(time.Now()))
	return err
}

// RevokeToken records a token ID as revoked until it would have expired
// anyway. Expired rows are swept on each write.
func (s *Store) RevokeToken(ctx context.Context, tokenId string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO revoked_tokens (token_id, expires_at) VALUES (?, ?)", tokenId, formatTime(expiresAt))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM revoked_tokens WHERE expires_at < ?", formatTime(time.Now()))
	return err
}

// IsTokenRevoked reports whether a token ID was revoked by logout.
func (s *Store) IsTokenRevoked(ctx context.Context, tokenId string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM revoked_tokens WHERE token_id = ?", tokenId).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Package postgres implements the stores over PostgreSQL. Writes use native
// upserts, so concurrent grant transitions never race through a
// read-modify-write cycle the way the flat-file backend would without its
// lock.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"accesshub/internal/store"
)

// Store bundles the PostgreSQL-backed stores over one connection pool.
type Store struct {
	db      *sql.DB
	grants  *grantStore
	history *historyStore
	users   *userStore
	apps    *applicationStore
}

// New wraps an open connection pool. Call EnsureSchema before first use.
func New(db *sql.DB) *Store {
	return &Store{
		db:      db,
		grants:  &grantStore{db: db},
		history: &historyStore{db: db},
		users:   &userStore{db: db},
		apps:    &applicationStore{db: db},
	}
}

func (s *Store) Grants() store.GrantStore             { return s.grants }
func (s *Store) History() store.HistoryStore          { return s.history }
func (s *Store) Users() store.UserStore               { return s.users }
func (s *Store) Applications() store.ApplicationStore { return s.apps }

// Health verifies the pool is reachable.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY,
		nom TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'standard'
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id INTEGER PRIMARY KEY,
		nom TEXT NOT NULL,
		app_url TEXT NOT NULL,
		display_order INTEGER NOT NULL DEFAULT 0,
		avatar_url TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS user_access_roles (
		utilisateur_id INTEGER NOT NULL,
		application_id INTEGER NOT NULL,
		access_level TEXT NOT NULL,
		granted_by INTEGER NOT NULL,
		granted_at TIMESTAMPTZ NOT NULL,
		last_modified TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (utilisateur_id, application_id)
	)`,
	`CREATE TABLE IF NOT EXISTS access_history (
		id UUID PRIMARY KEY,
		seq BIGSERIAL,
		utilisateur_id INTEGER NOT NULL,
		application_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		old_level TEXT,
		new_level TEXT,
		performed_by INTEGER NOT NULL,
		performed_at TIMESTAMPTZ NOT NULL,
		ip_address TEXT,
		user_agent TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_access_history_order
		ON access_history (performed_at DESC, seq DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_access_history_user
		ON access_history (utilisateur_id)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

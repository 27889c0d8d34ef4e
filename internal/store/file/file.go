// Package file implements the stores over flat JSON files, one file per
// collection. It is the default backend for single-process deployments and
// preserves the original portal's on-disk layout (users.json,
// applications.json, user-access-roles.json, access-history.json).
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"accesshub/internal/domain"
	"accesshub/internal/store"
)

const (
	usersFile        = "users.json"
	applicationsFile = "applications.json"
	grantsFile       = "user-access-roles.json"
	historyFile      = "access-history.json"
)

// Config controls where collections and their rotating backups live.
type Config struct {
	DataDir    string
	BackupDir  string
	MaxBackups int
}

// Store bundles the flat-file collections behind the store interfaces.
type Store struct {
	cfg     Config
	grants  *grantStore
	history *historyStore
	users   *userStore
	apps    *applicationStore
}

// New prepares the data and backup directories and opens every collection.
func New(cfg Config) (*Store, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("file store: data directory is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if cfg.BackupDir != "" {
		if err := os.MkdirAll(cfg.BackupDir, 0o755); err != nil {
			return nil, fmt.Errorf("create backup dir: %w", err)
		}
	}

	return &Store{
		cfg:     cfg,
		grants:  &grantStore{col: newCollection[domain.Grant](cfg.DataDir, grantsFile, cfg.BackupDir, cfg.MaxBackups)},
		history: &historyStore{col: newCollection[domain.HistoryEntry](cfg.DataDir, historyFile, cfg.BackupDir, cfg.MaxBackups)},
		users:   &userStore{col: newCollection[domain.User](cfg.DataDir, usersFile, cfg.BackupDir, cfg.MaxBackups)},
		apps:    &applicationStore{col: newCollection[domain.Application](cfg.DataDir, applicationsFile, cfg.BackupDir, cfg.MaxBackups)},
	}, nil
}

func (s *Store) Grants() store.GrantStore            { return s.grants }
func (s *Store) History() store.HistoryStore         { return s.history }
func (s *Store) Users() store.UserStore              { return s.users }
func (s *Store) Applications() store.ApplicationStore { return s.apps }

// SeedUsers replaces the user directory file. Used by provisioning jobs
// and test fixtures.
func (s *Store) SeedUsers(users []domain.User) error {
	return s.users.col.update(func([]domain.User) ([]domain.User, error) {
		return users, nil
	})
}

// SeedApplications replaces the application catalog file.
func (s *Store) SeedApplications(apps []domain.Application) error {
	return s.apps.col.update(func([]domain.Application) ([]domain.Application, error) {
		return apps, nil
	})
}

// Stats summarizes the on-disk footprint for operational visibility.
type Stats struct {
	DataFiles   int   `json:"data_files"`
	TotalBytes  int64 `json:"total_bytes"`
	BackupFiles int   `json:"backup_files"`
}

// Stats walks the data and backup directories. Errors reading individual
// entries are skipped; the summary is advisory.
func (s *Store) Stats() Stats {
	var stats Stats
	if entries, err := os.ReadDir(s.cfg.DataDir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			stats.DataFiles++
			if info, err := os.Stat(filepath.Join(s.cfg.DataDir, entry.Name())); err == nil {
				stats.TotalBytes += info.Size()
			}
		}
	}
	if s.cfg.BackupDir != "" {
		if entries, err := os.ReadDir(s.cfg.BackupDir); err == nil {
			for _, entry := range entries {
				if strings.HasSuffix(entry.Name(), ".backup") {
					stats.BackupFiles++
				}
			}
		}
	}
	return stats
}

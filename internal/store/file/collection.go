package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// collection is one JSON file holding a slice of records. The whole
// collection is read into memory, mutated, and written back; the mutex
// covers the full read-modify-write cycle so concurrent writers cannot lose
// updates. Writes go to a temp file first and are renamed into place, so a
// reader never observes a partial write.
type collection[T any] struct {
	mu         sync.RWMutex
	path       string
	backupDir  string
	maxBackups int
}

func newCollection[T any](dataDir, name, backupDir string, maxBackups int) *collection[T] {
	return &collection[T]{
		path:       filepath.Join(dataDir, name),
		backupDir:  backupDir,
		maxBackups: maxBackups,
	}
}

// load reads every record in the collection. A missing file is an empty
// collection, matching first-boot behaviour.
func (c *collection[T]) load() ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadLocked()
}

func (c *collection[T]) loadLocked() ([]T, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.path, err)
	}
	return items, nil
}

// update runs fn over the current records and persists the result. The lock
// is held for the whole cycle.
func (c *collection[T]) update(fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.loadLocked()
	if err != nil {
		return err
	}
	updated, err := fn(items)
	if err != nil {
		return err
	}
	return c.writeLocked(updated)
}

func (c *collection[T]) writeLocked(items []T) error {
	if items == nil {
		items = []T{}
	}
	if err := c.backupLocked(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.path, err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// backupLocked copies the current file aside before it is replaced, keeping
// at most maxBackups copies. Backups are best effort for operator recovery;
// a missing source file simply means nothing to back up yet.
func (c *collection[T]) backupLocked() error {
	if c.backupDir == "" || c.maxBackups <= 0 {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read for backup %s: %w", c.path, err)
	}

	stamp := time.Now().UTC().Format("20060102T150405.000000000")
	name := filepath.Base(c.path) + "." + stamp + ".backup"
	if err := os.WriteFile(filepath.Join(c.backupDir, name), data, 0o644); err != nil {
		return fmt.Errorf("write backup %s: %w", name, err)
	}
	c.pruneBackupsLocked()
	return nil
}

func (c *collection[T]) pruneBackupsLocked() {
	prefix := filepath.Base(c.path) + "."
	entries, err := os.ReadDir(c.backupDir)
	if err != nil {
		return
	}
	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if len(name) > len(prefix) && name[:len(prefix)] == prefix && filepath.Ext(name) == ".backup" {
			backups = append(backups, name)
		}
	}
	if len(backups) <= c.maxBackups {
		return
	}
	// Timestamp suffixes sort lexicographically; oldest first.
	sort.Strings(backups)
	for _, name := range backups[:len(backups)-c.maxBackups] {
		_ = os.Remove(filepath.Join(c.backupDir, name))
	}
}

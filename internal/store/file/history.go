package file

import (
	"context"
	"sort"
	"time"

	"accesshub/internal/domain"
	"accesshub/internal/store"
)

type historyStore struct {
	col *collection[domain.HistoryEntry]
}

// Append prepends the entry. Newest-first file order plus a stable sort in
// List gives reverse insertion order when timestamps tie.
func (s *historyStore) Append(_ context.Context, entry domain.HistoryEntry) error {
	return s.col.update(func(entries []domain.HistoryEntry) ([]domain.HistoryEntry, error) {
		return append([]domain.HistoryEntry{entry}, entries...), nil
	})
}

func (s *historyStore) List(_ context.Context, filter store.HistoryFilter, limit, offset int) ([]domain.HistoryEntry, error) {
	entries, err := s.filtered(filter)
	if err != nil {
		return nil, err
	}
	if offset >= len(entries) {
		return []domain.HistoryEntry{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end], nil
}

func (s *historyStore) Count(_ context.Context, filter store.HistoryFilter) (int, error) {
	entries, err := s.filtered(filter)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// DeleteOlderThan removes entries strictly older than the cutoff; entries at
// exactly the cutoff are retained.
func (s *historyStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	deleted := 0
	err := s.col.update(func(entries []domain.HistoryEntry) ([]domain.HistoryEntry, error) {
		kept := entries[:0]
		for _, e := range entries {
			if e.PerformedAt.Before(cutoff) {
				deleted++
				continue
			}
			kept = append(kept, e)
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *historyStore) filtered(filter store.HistoryFilter) ([]domain.HistoryEntry, error) {
	entries, err := s.col.load()
	if err != nil {
		return nil, err
	}
	matched := make([]domain.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if filter.Matches(e) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].PerformedAt.After(matched[j].PerformedAt)
	})
	return matched, nil
}

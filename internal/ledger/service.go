// Package ledger owns the append-only audit trail of grant transitions.
// Entries are never mutated; retention pruning is the only deletion path.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"accesshub/internal/domain"
	"accesshub/internal/platform/metrics"
	"accesshub/internal/store"
	"accesshub/pkg/apperrors"
)

const (
	DefaultLimit = 50
	maxLimit     = 500
)

// Service records and queries audit history through a HistoryStore.
type Service struct {
	history store.HistoryStore
	logger  *slog.Logger
	metrics *metrics.Metrics

	// now is swapped in tests to pin the clock.
	now func() time.Time
}

func NewService(history store.HistoryStore, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		history: history,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Record assigns an id and timestamp when absent and persists the entry.
func (s *Service) Record(ctx context.Context, entry domain.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = s.now()
	}
	if err := s.history.Append(ctx, entry); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	if s.metrics != nil {
		s.metrics.LedgerEntries.Inc()
	}
	return nil
}

// QueryParams filters and paginates a history read. A zero UserID or
// ApplicationID means "any".
type QueryParams struct {
	UserID        int
	ApplicationID int
	Limit         int
	Offset        int
}

// QueryResult is one page of history plus the pagination envelope.
type QueryResult struct {
	Entries []domain.HistoryEntry
	Total   int
	Limit   int
	Offset  int
	HasMore bool
}

// Query returns entries ordered by performed_at descending (ties by reverse
// insertion order). Total counts the filtered ledger before pagination.
func (s *Service) Query(ctx context.Context, params QueryParams) (QueryResult, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	filter := store.HistoryFilter{UserID: params.UserID, ApplicationID: params.ApplicationID}
	total, err := s.history.Count(ctx, filter)
	if err != nil {
		return QueryResult{}, apperrors.Wrap(apperrors.CodeInternal, "history query failed", err)
	}
	entries, err := s.history.List(ctx, filter, params.Limit, params.Offset)
	if err != nil {
		return QueryResult{}, apperrors.Wrap(apperrors.CodeInternal, "history query failed", err)
	}

	return QueryResult{
		Entries: entries,
		Total:   total,
		Limit:   params.Limit,
		Offset:  params.Offset,
		HasMore: params.Offset+params.Limit < total,
	}, nil
}

// PruneResult reports a retention pass.
type PruneResult struct {
	Deleted   int
	Remaining int
}

// Prune deletes entries strictly older than now minus the retention window.
// Entries exactly at the boundary are retained.
func (s *Service) Prune(ctx context.Context, olderThanDays int) (PruneResult, error) {
	if olderThanDays <= 0 {
		return PruneResult{}, apperrors.New(apperrors.CodeBadRequest, "older_than_days must be a positive integer")
	}

	cutoff := s.now().AddDate(0, 0, -olderThanDays)
	deleted, err := s.history.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return PruneResult{}, apperrors.Wrap(apperrors.CodeInternal, "history prune failed", err)
	}
	remaining, err := s.history.Count(ctx, store.HistoryFilter{})
	if err != nil {
		return PruneResult{}, apperrors.Wrap(apperrors.CodeInternal, "history prune failed", err)
	}

	if s.metrics != nil {
		s.metrics.LedgerPruned.Add(float64(deleted))
	}
	s.logger.InfoContext(ctx, "history pruned",
		"older_than_days", olderThanDays,
		"deleted", deleted,
		"remaining", remaining,
	)
	return PruneResult{Deleted: deleted, Remaining: remaining}, nil
}

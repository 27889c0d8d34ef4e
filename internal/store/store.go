// Package store defines the persistence contracts for the access engine.
// Stores are interface-driven so the flat-file and PostgreSQL backends stay
// interchangeable behind a single boot-time switch, and so domain logic can
// be tested without real persistence.
package store

import (
	"context"
	"time"

	"accesshub/internal/domain"
)

// GrantFilter narrows a grant scan. Zero values mean "no filter".
type GrantFilter struct {
	UserID        int
	ApplicationID int
}

// Matches reports whether a grant passes the filter.
func (f GrantFilter) Matches(g domain.Grant) bool {
	if f.UserID != 0 && g.UserID != f.UserID {
		return false
	}
	if f.ApplicationID != 0 && g.ApplicationID != f.ApplicationID {
		return false
	}
	return true
}

// HistoryFilter narrows a ledger scan. Zero values mean "no filter".
type HistoryFilter struct {
	UserID        int
	ApplicationID int
}

// Matches reports whether a history entry passes the filter.
func (f HistoryFilter) Matches(e domain.HistoryEntry) bool {
	if f.UserID != 0 && e.UserID != f.UserID {
		return false
	}
	if f.ApplicationID != 0 && e.ApplicationID != f.ApplicationID {
		return false
	}
	return true
}

// GrantStore persists current-state access grants. A successful Upsert is
// immediately visible to a subsequent Find or List in the same process.
// Delete of an absent pair is not an error; callers use it as "ensure
// absent".
type GrantStore interface {
	Find(ctx context.Context, userID, applicationID int) (domain.Grant, error)
	List(ctx context.Context, filter GrantFilter) ([]domain.Grant, error)
	Upsert(ctx context.Context, grant domain.Grant) error
	Delete(ctx context.Context, userID, applicationID int) error
}

// HistoryStore persists the append-only audit ledger. List returns entries
// ordered by performed_at descending with ties broken by reverse insertion
// order; DeleteOlderThan is the only mutation besides Append and removes
// entries strictly older than the cutoff.
type HistoryStore interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error
	List(ctx context.Context, filter HistoryFilter, limit, offset int) ([]domain.HistoryEntry, error)
	Count(ctx context.Context, filter HistoryFilter) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// UserStore reads the externally owned user directory.
type UserStore interface {
	FindByID(ctx context.Context, id int) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

// ApplicationStore reads the externally owned application catalog.
type ApplicationStore interface {
	FindByID(ctx context.Context, id int) (domain.Application, error)
	List(ctx context.Context) ([]domain.Application, error)
}

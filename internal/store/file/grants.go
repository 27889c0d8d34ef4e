package file

import (
	"context"

	"accesshub/internal/domain"
	"accesshub/internal/store"
)

type grantStore struct {
	col *collection[domain.Grant]
}

func (s *grantStore) Find(_ context.Context, userID, applicationID int) (domain.Grant, error) {
	grants, err := s.col.load()
	if err != nil {
		return domain.Grant{}, err
	}
	for _, g := range grants {
		if g.UserID == userID && g.ApplicationID == applicationID {
			return g, nil
		}
	}
	return domain.Grant{}, store.ErrNotFound
}

func (s *grantStore) List(_ context.Context, filter store.GrantFilter) ([]domain.Grant, error) {
	grants, err := s.col.load()
	if err != nil {
		return nil, err
	}
	matched := make([]domain.Grant, 0, len(grants))
	for _, g := range grants {
		if filter.Matches(g) {
			matched = append(matched, g)
		}
	}
	return matched, nil
}

// Upsert replaces the pair's row in place or appends a new one, keeping the
// at-most-one-row-per-pair invariant.
func (s *grantStore) Upsert(_ context.Context, grant domain.Grant) error {
	return s.col.update(func(grants []domain.Grant) ([]domain.Grant, error) {
		for i, g := range grants {
			if g.UserID == grant.UserID && g.ApplicationID == grant.ApplicationID {
				grants[i] = grant
				return grants, nil
			}
		}
		return append(grants, grant), nil
	})
}

// Delete removes the pair's row if present. Deleting an absent pair is a
// successful no-op.
func (s *grantStore) Delete(_ context.Context, userID, applicationID int) error {
	return s.col.update(func(grants []domain.Grant) ([]domain.Grant, error) {
		kept := grants[:0]
		for _, g := range grants {
			if g.UserID == userID && g.ApplicationID == applicationID {
				continue
			}
			kept = append(kept, g)
		}
		return kept, nil
	})
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"accesshub/internal/domain"
	"accesshub/internal/store"
)

type grantStore struct {
	db *sql.DB
}

func (s *grantStore) Find(ctx context.Context, userID, applicationID int) (domain.Grant, error) {
	query := `
		SELECT utilisateur_id, application_id, access_level, granted_by, granted_at, last_modified
		FROM user_access_roles
		WHERE utilisateur_id = $1 AND application_id = $2
	`
	var g domain.Grant
	err := s.db.QueryRowContext(ctx, query, userID, applicationID).Scan(
		&g.UserID, &g.ApplicationID, &g.Level, &g.GrantedBy, &g.GrantedAt, &g.LastModified,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Grant{}, store.ErrNotFound
		}
		return domain.Grant{}, fmt.Errorf("find grant: %w", err)
	}
	return g, nil
}

func (s *grantStore) List(ctx context.Context, filter store.GrantFilter) ([]domain.Grant, error) {
	query := `
		SELECT utilisateur_id, application_id, access_level, granted_by, granted_at, last_modified
		FROM user_access_roles
		WHERE ($1 = 0 OR utilisateur_id = $1)
		  AND ($2 = 0 OR application_id = $2)
		ORDER BY utilisateur_id, application_id
	`
	rows, err := s.db.QueryContext(ctx, query, filter.UserID, filter.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	grants := []domain.Grant{}
	for rows.Next() {
		var g domain.Grant
		if err := rows.Scan(&g.UserID, &g.ApplicationID, &g.Level, &g.GrantedBy, &g.GrantedAt, &g.LastModified); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}
	return grants, nil
}

// Upsert inserts or updates the pair's row atomically. granted_at is only
// written on insert; updates keep the original attribution timestamp.
func (s *grantStore) Upsert(ctx context.Context, grant domain.Grant) error {
	query := `
		INSERT INTO user_access_roles (utilisateur_id, application_id, access_level, granted_by, granted_at, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (utilisateur_id, application_id) DO UPDATE SET
			access_level = EXCLUDED.access_level,
			granted_by = EXCLUDED.granted_by,
			last_modified = EXCLUDED.last_modified
	`
	_, err := s.db.ExecContext(ctx, query,
		grant.UserID,
		grant.ApplicationID,
		string(grant.Level),
		grant.GrantedBy,
		grant.GrantedAt,
		grant.LastModified,
	)
	if err != nil {
		return fmt.Errorf("upsert grant: %w", err)
	}
	return nil
}

func (s *grantStore) Delete(ctx context.Context, userID, applicationID int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_access_roles WHERE utilisateur_id = $1 AND application_id = $2`,
		userID, applicationID,
	)
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	return nil
}

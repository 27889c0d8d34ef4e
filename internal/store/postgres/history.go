package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"accesshub/internal/domain"
	"accesshub/internal/store"
)

type historyStore struct {
	db *sql.DB
}

func (s *historyStore) Append(ctx context.Context, entry domain.HistoryEntry) error {
	query := `
		INSERT INTO access_history (
			id, utilisateur_id, application_id, action,
			old_level, new_level, performed_by, performed_at,
			ip_address, user_agent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.ApplicationID,
		string(entry.Action),
		nullLevel(entry.OldLevel),
		nullLevel(entry.NewLevel),
		entry.PerformedBy,
		entry.PerformedAt,
		nullString(entry.IPAddress),
		nullString(entry.UserAgent),
	)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// List orders by performed_at descending; seq breaks timestamp ties in
// reverse insertion order.
func (s *historyStore) List(ctx context.Context, filter store.HistoryFilter, limit, offset int) ([]domain.HistoryEntry, error) {
	query := `
		SELECT id, utilisateur_id, application_id, action,
			   old_level, new_level, performed_by, performed_at,
			   ip_address, user_agent
		FROM access_history
		WHERE ($1 = 0 OR utilisateur_id = $1)
		  AND ($2 = 0 OR application_id = $2)
		ORDER BY performed_at DESC, seq DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := s.db.QueryContext(ctx, query, filter.UserID, filter.ApplicationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var (
			e                  domain.HistoryEntry
			oldLevel, newLevel sql.NullString
			ip, agent          sql.NullString
		)
		err := rows.Scan(
			&e.ID, &e.UserID, &e.ApplicationID, &e.Action,
			&oldLevel, &newLevel, &e.PerformedBy, &e.PerformedAt,
			&ip, &agent,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.OldLevel = domain.Level(oldLevel.String)
		e.NewLevel = domain.Level(newLevel.String)
		e.IPAddress = ip.String
		e.UserAgent = agent.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func (s *historyStore) Count(ctx context.Context, filter store.HistoryFilter) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM access_history
		WHERE ($1 = 0 OR utilisateur_id = $1)
		  AND ($2 = 0 OR application_id = $2)
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, filter.UserID, filter.ApplicationID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes entries strictly older than the cutoff. The
// comparison is exclusive so entries exactly at the cutoff survive.
func (s *historyStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM access_history WHERE performed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history rows affected: %w", err)
	}
	return int(deleted), nil
}

func nullLevel(level domain.Level) sql.NullString {
	if level == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: string(level), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

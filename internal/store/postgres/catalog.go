package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"accesshub/internal/domain"
	"accesshub/internal/store"
)

type userStore struct {
	db *sql.DB
}

func (s *userStore) FindByID(ctx context.Context, id int) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nom, email, role FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, store.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *userStore) List(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, nom, email, role FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

type applicationStore struct {
	db *sql.DB
}

func (s *applicationStore) FindByID(ctx context.Context, id int) (domain.Application, error) {
	var a domain.Application
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nom, app_url, display_order, avatar_url FROM applications WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.AppURL, &a.DisplayOrder, &a.AvatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Application{}, store.ErrNotFound
		}
		return domain.Application{}, fmt.Errorf("find application: %w", err)
	}
	return a, nil
}

func (s *applicationStore) List(ctx context.Context) ([]domain.Application, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nom, app_url, display_order, avatar_url FROM applications ORDER BY display_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	apps := []domain.Application{}
	for rows.Next() {
		var a domain.Application
		if err := rows.Scan(&a.ID, &a.Name, &a.AppURL, &a.DisplayOrder, &a.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return apps, nil
}

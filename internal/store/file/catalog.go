package file

import (
	"context"
	"sort"

	"accesshub/internal/domain"
	"accesshub/internal/store"
)

// The user directory and application catalog are owned by the surrounding
// portal; these stores only read the files it maintains.

type userStore struct {
	col *collection[domain.User]
}

func (s *userStore) FindByID(_ context.Context, id int) (domain.User, error) {
	users, err := s.col.load()
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (s *userStore) List(_ context.Context) ([]domain.User, error) {
	users, err := s.col.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

type applicationStore struct {
	col *collection[domain.Application]
}

func (s *applicationStore) FindByID(_ context.Context, id int) (domain.Application, error) {
	apps, err := s.col.load()
	if err != nil {
		return domain.Application{}, err
	}
	for _, a := range apps {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Application{}, store.ErrNotFound
}

func (s *applicationStore) List(_ context.Context) ([]domain.Application, error) {
	apps, err := s.col.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].DisplayOrder != apps[j].DisplayOrder {
			return apps[i].DisplayOrder < apps[j].DisplayOrder
		}
		return apps[i].ID < apps[j].ID
	})
	return apps, nil
}

package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"accesshub/internal/cache"
	"accesshub/internal/domain"
)

type countingUserStore struct {
	users []domain.User
	calls int
	err   error
}

func (s *countingUserStore) FindByID(_ context.Context, id int) (domain.User, error) {
	return domain.User{}, errors.New("not used")
}

func (s *countingUserStore) List(context.Context) ([]domain.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.users, nil
}

type countingAppStore struct {
	apps  []domain.Application
	calls int
}

func (s *countingAppStore) FindByID(_ context.Context, id int) (domain.Application, error) {
	return domain.Application{}, errors.New("not used")
}

func (s *countingAppStore) List(context.Context) ([]domain.Application, error) {
	s.calls++
	return s.apps, nil
}

type CatalogSuite struct {
	suite.Suite
	ctx     context.Context
	service *Service
	users   *countingUserStore
	apps    *countingAppStore
}

func (s *CatalogSuite) SetupTest() {
	s.ctx = context.Background()
	s.users = &countingUserStore{users: []domain.User{{ID: 1, Name: "Marie"}}}
	s.apps = &countingAppStore{apps: []domain.Application{{ID: 10, Name: "Facturation"}}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.users, s.apps, cache.NewMemory(), time.Minute, logger, nil)
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

func (s *CatalogSuite) TestUsersServedFromCache() {
	for i := 0; i < 3; i++ {
		users, err := s.service.Users(s.ctx)
		s.Require().NoError(err)
		s.Len(users, 1)
	}
	s.Equal(1, s.users.calls, "repeated reads within the TTL hit the cache")
}

func (s *CatalogSuite) TestApplicationsServedFromCache() {
	for i := 0; i < 3; i++ {
		apps, err := s.service.Applications(s.ctx)
		s.Require().NoError(err)
		s.Len(apps, 1)
	}
	s.Equal(1, s.apps.calls)
}

func (s *CatalogSuite) TestInvalidateForcesReload() {
	_, err := s.service.Users(s.ctx)
	s.Require().NoError(err)

	s.service.Invalidate(s.ctx)

	_, err = s.service.Users(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, s.users.calls)
}

func (s *CatalogSuite) TestStoreErrorSurfaces() {
	s.users.err = errors.New("disk on fire")
	_, err := s.service.Users(s.ctx)
	s.Error(err)
}

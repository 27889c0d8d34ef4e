// Package catalog serves the read-mostly reference data: the application
// catalog and the user directory. Both are cache-assisted with a longer TTL
// than grant state since they change rarely.
package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"accesshub/internal/cache"
	"accesshub/internal/domain"
	"accesshub/internal/platform/metrics"
	"accesshub/internal/store"
	"accesshub/pkg/apperrors"
)

const (
	usersCacheKey        = "users"
	applicationsCacheKey = "applications"
)

type Service struct {
	users   store.UserStore
	apps    store.ApplicationStore
	cache   cache.Cache
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	group   singleflight.Group
}

func NewService(users store.UserStore, apps store.ApplicationStore, c cache.Cache, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		users:   users,
		apps:    apps,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

// Users returns the directory ordered by id.
func (s *Service) Users(ctx context.Context) ([]domain.User, error) {
	return cachedList(ctx, s, usersCacheKey, "users", s.users.List)
}

// Applications returns the catalog in display order.
func (s *Service) Applications(ctx context.Context) ([]domain.Application, error) {
	return cachedList(ctx, s, applicationsCacheKey, "applications", s.apps.List)
}

// cachedList is the shared read-through path. Concurrent misses for the
// same key collapse into one store read.
func cachedList[T any](ctx context.Context, s *Service, key, entity string, load func(context.Context) ([]T, error)) ([]T, error) {
	if raw, ok := s.cache.Get(ctx, key); ok {
		var items []T
		if err := json.Unmarshal(raw, &items); err == nil {
			if s.metrics != nil {
				s.metrics.CacheHits.WithLabelValues(entity).Inc()
			}
			return items, nil
		}
		s.cache.Delete(ctx, key)
	}
	if s.metrics != nil {
		s.metrics.CacheMisses.WithLabelValues(entity).Inc()
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		items, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(items); err == nil {
			s.cache.Set(ctx, key, raw, s.ttl)
		}
		return items, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to load "+entity, err)
	}
	return value.([]T), nil
}

// Invalidate drops the catalog keys after out-of-band edits to reference
// data.
func (s *Service) Invalidate(ctx context.Context) {
	s.cache.Delete(ctx, usersCacheKey, applicationsCacheKey)
}

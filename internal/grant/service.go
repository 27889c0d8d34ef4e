// Package grant owns the current-state table of (user, application) access
// levels. It is the only writer of grant state: every transition flows
// through SetLevel, which commits to the record store, appends one audit
// entry, invalidates the affected cache keys, and hands an event to the
// notification dispatcher.
package grant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"accesshub/internal/cache"
	"accesshub/internal/domain"
	"accesshub/internal/notify"
	"accesshub/internal/platform/metrics"
	"accesshub/internal/store"
	"accesshub/pkg/apperrors"
)

// Ledger records committed transitions. Satisfied by *ledger.Service.
type Ledger interface {
	Record(ctx context.Context, entry domain.HistoryEntry) error
}

// Notifier receives fire-and-forget events for committed transitions.
// Satisfied by *notify.Dispatcher.
type Notifier interface {
	Notify(event notify.Event)
}

// Cache keys invalidated on writes. The single-grant key and the snapshot
// key must both go so a read immediately after a commit sees the new state.
const (
	snapshotCacheKey = "grants"
	grantKeyPrefix   = "grant:"
)

func grantCacheKey(userID, applicationID int) string {
	return fmt.Sprintf("%s%d:%d", grantKeyPrefix, userID, applicationID)
}

func userGrantsCacheKey(userID int) string {
	return fmt.Sprintf("grants:%d", userID)
}

// Service is the access grant engine.
type Service struct {
	grants   store.GrantStore
	users    store.UserStore
	apps     store.ApplicationStore
	cache    cache.Cache
	cacheTTL time.Duration
	ledger   Ledger
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	group    singleflight.Group

	// now is swapped in tests to pin the clock.
	now func() time.Time
}

type Config struct {
	Grants       store.GrantStore
	Users        store.UserStore
	Applications store.ApplicationStore
	Cache        cache.Cache
	CacheTTL     time.Duration
	Ledger       Ledger
	Notifier     Notifier
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

func NewService(cfg Config) *Service {
	return &Service{
		grants:   cfg.Grants,
		users:    cfg.Users,
		apps:     cfg.Applications,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		ledger:   cfg.Ledger,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		tracer:   otel.Tracer("accesshub/grant"),
		now:      time.Now,
	}
}

// cachedState is the cache representation of a pair's current state. Found
// false encodes "no grant row" so absence is cacheable too.
type cachedState struct {
	Found bool         `json:"found"`
	Grant domain.Grant `json:"grant"`
}

// SetLevel transitions a (user, application) pair to the requested level
// and returns the committed level. Requesting the current level is a no-op:
// no ledger entry, no invalidation, no notification.
func (s *Service) SetLevel(ctx context.Context, userID, applicationID int, level domain.Level, actorID int, origin domain.Origin) (domain.Level, error) {
	ctx, span := s.tracer.Start(ctx, "grant.SetLevel", trace.WithAttributes(
		attribute.Int("user.id", userID),
		attribute.Int("application.id", applicationID),
		attribute.String("level", string(level)),
	))
	defer span.End()

	// Fail closed: no actor, no transition. The admin check itself is the
	// transport layer's job.
	if actorID <= 0 {
		return "", apperrors.New(apperrors.CodeUnauthorized, "an authenticated actor is required")
	}
	if !level.Valid() {
		return "", apperrors.New(apperrors.CodeBadRequest,
			fmt.Sprintf("invalid access level %q: allowed values are none, read, write, admin", level))
	}
	if userID <= 0 || applicationID <= 0 {
		return "", apperrors.New(apperrors.CodeBadRequest, "utilisateur_id and application_id are required")
	}

	current, err := s.currentState(ctx, userID, applicationID)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, "failed to load current access level", err)
	}

	currentLevel := domain.LevelNone
	if current.Found {
		currentLevel = current.Grant.Level
	}

	// Idempotence is a hard contract: same level in, nothing happens.
	if level == currentLevel {
		if s.metrics != nil {
			s.metrics.GrantNoops.Inc()
		}
		return currentLevel, nil
	}

	now := s.now()
	var action domain.Action
	switch {
	case level == domain.LevelNone:
		if err := s.grants.Delete(ctx, userID, applicationID); err != nil {
			return "", apperrors.Wrap(apperrors.CodeInternal, "failed to revoke access", err)
		}
		action = domain.ActionRevoked
	case currentLevel == domain.LevelNone:
		grant := domain.Grant{
			UserID:        userID,
			ApplicationID: applicationID,
			Level:         level,
			GrantedBy:     actorID,
			GrantedAt:     now,
			LastModified:  now,
		}
		if err := s.grants.Upsert(ctx, grant); err != nil {
			return "", apperrors.Wrap(apperrors.CodeInternal, "failed to grant access", err)
		}
		action = domain.ActionGranted
	default:
		grant := current.Grant
		grant.Level = level
		grant.GrantedBy = actorID
		grant.LastModified = now
		if err := s.grants.Upsert(ctx, grant); err != nil {
			return "", apperrors.Wrap(apperrors.CodeInternal, "failed to update access", err)
		}
		action = domain.ActionModified
	}

	// The store commit is authoritative. A ledger failure past this point
	// is a data-integrity warning, not a rollback.
	entry := domain.HistoryEntry{
		UserID:        userID,
		ApplicationID: applicationID,
		Action:        action,
		OldLevel:      currentLevel,
		NewLevel:      level,
		PerformedBy:   actorID,
		PerformedAt:   now,
		IPAddress:     origin.IPAddress,
		UserAgent:     origin.UserAgent,
	}
	if err := s.ledger.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "data integrity: committed transition missing from ledger",
			"user_id", userID,
			"application_id", applicationID,
			"action", action,
			"error", err,
		)
	}

	s.cache.Delete(ctx, grantCacheKey(userID, applicationID), userGrantsCacheKey(userID), snapshotCacheKey)

	s.dispatch(ctx, action, currentLevel, level, userID, applicationID, actorID, origin)

	if s.metrics != nil {
		s.metrics.GrantTransitions.WithLabelValues(string(action)).Inc()
	}
	return level, nil
}

// GetLevel returns the pair's current level; absence is LevelNone, never an
// error.
func (s *Service) GetLevel(ctx context.Context, userID, applicationID int) (domain.Level, error) {
	state, err := s.currentState(ctx, userID, applicationID)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, "failed to load access level", err)
	}
	if !state.Found {
		return domain.LevelNone, nil
	}
	return state.Grant.Level, nil
}

// ListGrants returns a cache-assisted snapshot, optionally filtered.
func (s *Service) ListGrants(ctx context.Context, filter store.GrantFilter) ([]domain.Grant, error) {
	snapshot, err := s.snapshot(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to list grants", err)
	}
	matched := make([]domain.Grant, 0, len(snapshot))
	for _, g := range snapshot {
		if filter.Matches(g) {
			matched = append(matched, g)
		}
	}
	return matched, nil
}

// ListUserApplications returns the applications the user holds any level
// on, in catalog display order.
func (s *Service) ListUserApplications(ctx context.Context, userID int) ([]domain.Application, error) {
	if userID <= 0 {
		return nil, apperrors.New(apperrors.CodeBadRequest, "user_id is required")
	}
	grants, err := s.userGrants(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to list user grants", err)
	}
	granted := make(map[int]bool, len(grants))
	for _, g := range grants {
		granted[g.ApplicationID] = true
	}

	apps, err := s.apps.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to list applications", err)
	}
	accessible := []domain.Application{}
	for _, app := range apps {
		if granted[app.ID] {
			accessible = append(accessible, app)
		}
	}
	return accessible, nil
}

// BulkFailure reports one application that could not be transitioned.
type BulkFailure struct {
	ApplicationID int    `json:"application_id"`
	Error         string `json:"error"`
}

// BulkResult aggregates a bulk transition.
type BulkResult struct {
	Applied  int           `json:"applied"`
	Failures []BulkFailure `json:"failures,omitempty"`
}

// BulkSetLevel applies SetLevel independently for every catalog
// application. A failed application is reported but never aborts its
// siblings.
func (s *Service) BulkSetLevel(ctx context.Context, userID int, level domain.Level, actorID int, origin domain.Origin) (BulkResult, error) {
	if actorID <= 0 {
		return BulkResult{}, apperrors.New(apperrors.CodeUnauthorized, "an authenticated actor is required")
	}
	if !level.Valid() {
		return BulkResult{}, apperrors.New(apperrors.CodeBadRequest,
			fmt.Sprintf("invalid access level %q: allowed values are none, read, write, admin", level))
	}

	apps, err := s.apps.List(ctx)
	if err != nil {
		return BulkResult{}, apperrors.Wrap(apperrors.CodeInternal, "failed to list applications", err)
	}

	var result BulkResult
	for _, app := range apps {
		if _, err := s.SetLevel(ctx, userID, app.ID, level, actorID, origin); err != nil {
			result.Failures = append(result.Failures, BulkFailure{
				ApplicationID: app.ID,
				Error:         err.Error(),
			})
			continue
		}
		result.Applied++
	}
	return result, nil
}

// currentState reads the pair's state cache-first, falling back to the
// grant store and populating the cache on miss. Absence is cached too so
// repeated "none" reads don't hammer the store.
func (s *Service) currentState(ctx context.Context, userID, applicationID int) (cachedState, error) {
	key := grantCacheKey(userID, applicationID)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var state cachedState
		if err := json.Unmarshal(raw, &state); err == nil {
			s.hit("grant")
			return state, nil
		}
		// Undecodable entry: drop it and fall through to the store.
		s.cache.Delete(ctx, key)
	}
	s.miss("grant")

	var state cachedState
	g, err := s.grants.Find(ctx, userID, applicationID)
	switch {
	case err == nil:
		state = cachedState{Found: true, Grant: g}
	case errors.Is(err, store.ErrNotFound):
		state = cachedState{Found: false}
	default:
		return cachedState{}, err
	}

	if raw, err := json.Marshal(state); err == nil {
		s.cache.Set(ctx, key, raw, s.cacheTTL)
	}
	return state, nil
}

// userGrants loads one user's grant list cache-first under the per-user
// key, which SetLevel invalidates on every write for that user.
func (s *Service) userGrants(ctx context.Context, userID int) ([]domain.Grant, error) {
	key := userGrantsCacheKey(userID)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var grants []domain.Grant
		if err := json.Unmarshal(raw, &grants); err == nil {
			s.hit("user_grants")
			return grants, nil
		}
		s.cache.Delete(ctx, key)
	}
	s.miss("user_grants")

	value, err, _ := s.group.Do(key, func() (any, error) {
		grants, err := s.grants.List(ctx, store.GrantFilter{UserID: userID})
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(grants); err == nil {
			s.cache.Set(ctx, key, raw, s.cacheTTL)
		}
		return grants, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]domain.Grant), nil
}

// snapshot loads the full grant table cache-first. Concurrent misses are
// collapsed into one store read.
func (s *Service) snapshot(ctx context.Context) ([]domain.Grant, error) {
	if raw, ok := s.cache.Get(ctx, snapshotCacheKey); ok {
		var grants []domain.Grant
		if err := json.Unmarshal(raw, &grants); err == nil {
			s.hit("grants")
			return grants, nil
		}
		s.cache.Delete(ctx, snapshotCacheKey)
	}
	s.miss("grants")

	value, err, _ := s.group.Do(snapshotCacheKey, func() (any, error) {
		grants, err := s.grants.List(ctx, store.GrantFilter{})
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(grants); err == nil {
			s.cache.Set(ctx, snapshotCacheKey, raw, s.cacheTTL)
		}
		return grants, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]domain.Grant), nil
}

// dispatch enriches the event with catalog names (best effort) and hands it
// to the notifier. Strictly after commit and ledger append.
func (s *Service) dispatch(ctx context.Context, action domain.Action, oldLevel, newLevel domain.Level, userID, applicationID, actorID int, origin domain.Origin) {
	event := notify.Event{
		UserID:        userID,
		ApplicationID: applicationID,
		Action:        action,
		OldLevel:      oldLevel,
		NewLevel:      newLevel,
		ActorID:       actorID,
		Device:        notify.ParseUserAgent(origin.UserAgent),
		OccurredAt:    s.now(),
	}
	if user, err := s.users.FindByID(ctx, userID); err == nil {
		event.UserName = user.Name
		event.UserEmail = user.Email
	}
	if app, err := s.apps.FindByID(ctx, applicationID); err == nil {
		event.Application = app.Name
	}
	s.notifier.Notify(event)
}

func (s *Service) hit(entity string) {
	if s.metrics != nil {
		s.metrics.CacheHits.WithLabelValues(entity).Inc()
	}
}

func (s *Service) miss(entity string) {
	if s.metrics != nil {
		s.metrics.CacheMisses.WithLabelValues(entity).Inc()
	}
}

package grant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"accesshub/internal/cache"
	"accesshub/internal/domain"
	"accesshub/internal/ledger"
	"accesshub/internal/notify"
	"accesshub/internal/store"
	filestore "accesshub/internal/store/file"
	"accesshub/pkg/apperrors"
)

type stubUserStore struct{ users []domain.User }

func (s *stubUserStore) FindByID(_ context.Context, id int) (domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, store.ErrNotFound
}

func (s *stubUserStore) List(context.Context) ([]domain.User, error) {
	return s.users, nil
}

type stubAppStore struct{ apps []domain.Application }

func (s *stubAppStore) FindByID(_ context.Context, id int) (domain.Application, error) {
	for _, a := range s.apps {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Application{}, store.ErrNotFound
}

func (s *stubAppStore) List(context.Context) ([]domain.Application, error) {
	return s.apps, nil
}

type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *captureNotifier) Notify(event notify.Event) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *captureNotifier) all() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

type failingLedger struct{}

func (failingLedger) Record(context.Context, domain.HistoryEntry) error {
	return errors.New("ledger unavailable")
}

// flakyGrantStore fails writes for one application id and delegates the
// rest.
type flakyGrantStore struct {
	store.GrantStore
	failAppID int
}

func (s *flakyGrantStore) Upsert(ctx context.Context, g domain.Grant) error {
	if g.ApplicationID == s.failAppID {
		return errors.New("disk full")
	}
	return s.GrantStore.Upsert(ctx, g)
}

// countingGrantStore counts List calls and delegates everything.
type countingGrantStore struct {
	store.GrantStore
	mu    sync.Mutex
	lists int
}

func (s *countingGrantStore) List(ctx context.Context, filter store.GrantFilter) ([]domain.Grant, error) {
	s.mu.Lock()
	s.lists++
	s.mu.Unlock()
	return s.GrantStore.List(ctx, filter)
}

func (s *countingGrantStore) listCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

type GrantServiceSuite struct {
	suite.Suite
	ctx      context.Context
	service  *Service
	ledger   *ledger.Service
	history  store.HistoryStore
	notifier *captureNotifier
	origin   domain.Origin
	now      time.Time
}

func (s *GrantServiceSuite) SetupTest() {
	s.ctx = context.Background()
	st, err := filestore.New(filestore.Config{
		DataDir:    s.T().TempDir(),
		BackupDir:  s.T().TempDir(),
		MaxBackups: 2,
	})
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.history = st.History()
	s.ledger = ledger.NewService(s.history, logger, nil)
	s.notifier = &captureNotifier{}
	s.now = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	s.service = NewService(Config{
		Grants: st.Grants(),
		Users: &stubUserStore{users: []domain.User{
			{ID: 1, Name: "Marie Curie", Email: "marie@example.org", Role: domain.RoleStandard},
			{ID: 99, Name: "Root Admin", Email: "admin@example.org", Role: domain.RoleAdmin},
		}},
		Applications: &stubAppStore{apps: []domain.Application{
			{ID: 10, Name: "Facturation", DisplayOrder: 1},
			{ID: 11, Name: "Inventaire", DisplayOrder: 2},
		}},
		Cache:    cache.NewMemory(),
		CacheTTL: time.Minute,
		Ledger:   s.ledger,
		Notifier: s.notifier,
		Logger:   logger,
	})
	s.service.now = func() time.Time { return s.now }
	s.origin = domain.Origin{IPAddress: "203.0.113.7", UserAgent: "Mozilla/5.0"}
}

func TestGrantServiceSuite(t *testing.T) {
	suite.Run(t, new(GrantServiceSuite))
}

func (s *GrantServiceSuite) historyEntries() []domain.HistoryEntry {
	entries, err := s.history.List(s.ctx, store.HistoryFilter{}, 100, 0)
	s.Require().NoError(err)
	return entries
}

func (s *GrantServiceSuite) TestGrantModifyRevokeLifecycle() {
	level, err := s.service.SetLevel(s.ctx, 1, 10, domain.LevelRead, 99, s.origin)
	s.Require().NoError(err)
	s.Equal(domain.LevelRead, level)
	grantedAt := s.now

	s.now = s.now.Add(time.Hour)
	level, err = s.service.SetLevel(s.ctx, 1, 10, domain.LevelWrite, 99, s.origin)
	s.Require().NoError(err)
	s.Equal(domain.LevelWrite, level)

	grants, err := s.service.ListGrants(s.ctx, store.GrantFilter{UserID: 1})
	s.Require().NoError(err)
	s.Require().Len(grants, 1)
	s.Equal(grantedAt, grants[0].GrantedAt, "granted_at is immutable across modifications")
	s.Equal(s.now, grants[0].LastModified)

	s.now = s.now.Add(time.Hour)
	level, err = s.service.SetLevel(s.ctx, 1, 10, domain.LevelNone, 99, s.origin)
	s.Require().NoError(err)
	s.Equal(domain.LevelNone, level)

	current, err := s.service.GetLevel(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Equal(domain.LevelNone, current)

	entries := s.historyEntries()
	s.Require().Len(entries, 3)
	s.Equal(domain.ActionRevoked, entries[0].Action)
	s.Equal(domain.LevelWrite, entries[0].OldLevel)
	s.Equal(domain.LevelNone, entries[0].NewLevel)
	s.Equal(domain.ActionModified, entries[1].Action)
	s.Equal(domain.ActionGranted, entries[2].Action)
	s.Equal(domain.LevelNone, entries[2].OldLevel)
	s.Equal(domain.LevelRead, entries[2].NewLevel)

	events := s.notifier.all()
	s.Require().Len(events, 3)
	s.Equal("Marie Curie", events[0].UserName)
	s.Equal("Facturation", events[0].Application)
}

func (s *GrantServiceSuite) TestSameLevelIsNoop() {
	_, err := s.service.SetLevel(s.ctx, 1, 10, domain.LevelRead, 99, s.origin)
	s.Require().NoError(err)

	level, err := s.service.SetLevel(s.ctx, 1, 10, domain.LevelRead, 99, s.origin)
	s.Require().NoError(err)
	s.Equal(domain.LevelRead, level)

	s.Len(s.historyEntries(), 1, "a no-op transition leaves no ledger entry")
	s.Len(s.notifier.all(), 1, "a no-op transition emits no event")
}

func (s *GrantServiceSuite) TestRevokeAbsentPairIsNoop() {
	level, err := s.service.SetLevel(s.ctx, 1, 10, domain.LevelNone, 99, s.origin)
	s.Require().NoError(err)
	s.Equal(domain.LevelNone, level)
	s.Empty(s.historyEntries())
}

func (s *GrantServiceSuite) TestAbsenceReadsAsNone() {
	level, err := s.service.GetLevel(s.ctx, 42, 10)
	s.Require().NoError(err)
	s.Equal(domain.LevelNone, level)
}

func (s *GrantServiceSuite) TestFailClosedWithoutActor() {
	_, err := s.service.SetLevel(s.ctx, 1, 10, domain.LevelRead, 0, s.origin)
	s.True(apperrors.Is(err, apperrors.CodeUnauthorized))
	s.Empty(s.historyEntries())
	s.Empty(s.notifier.all())
}

func (s *GrantServiceSuite) TestInvalidLevelRejected() {
	_, err := s.service.SetLevel(s.ctx, 1, 10, domain.Level("superuser"), 99, s.origin)
	s.True(apperrors.Is(err, apperrors.CodeBadRequest))
	s.Empty(s.historyEntries())
}

func (s *GrantServiceSuite) TestLedgerFailureDoesNotRollBack() {
	s.service.ledger = failingLedger{}

	level, err := s.service.SetLevel(s.ctx, 1, 10, domain.LevelWrite, 99, s.origin)
	s.Require().NoError(err, "a ledger failure must not fail the transition")
	s.Equal(domain.LevelWrite, level)

	current, err := s.service.GetLevel(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Equal(domain.LevelWrite, current)

	s.Len(s.notifier.all(), 1, "the committed transition still notifies")
}

func (s *GrantServiceSuite) TestStoreFailureAborts() {
	s.service.grants = &flakyGrantStore{GrantStore: s.service.grants, failAppID: 10}

	_, err := s.service.SetLevel(s.ctx, 1, 10, domain.LevelRead, 99, s.origin)
	s.True(apperrors.Is(err, apperrors.CodeInternal))
	s.Empty(s.historyEntries(), "no ledger entry for an uncommitted transition")
	s.Empty(s.notifier.all())
}

func (s *GrantServiceSuite) TestCacheInvalidatedOnWrite() {
	_, err := s.service.SetLevel(s.ctx, 1, 10, domain.LevelRead, 99, s.origin)
	s.Require().NoError(err)

	// Warm the per-pair and snapshot keys.
	level, err := s.service.GetLevel(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Equal(domain.LevelRead, level)
	_, err = s.service.ListGrants(s.ctx, store.GrantFilter{})
	s.Require().NoError(err)

	_, err = s.service.SetLevel(s.ctx, 1, 10, domain.LevelAdmin, 99, s.origin)
	s.Require().NoError(err)

	level, err = s.service.GetLevel(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Equal(domain.LevelAdmin, level, "reads after a write see the new state immediately")

	grants, err := s.service.ListGrants(s.ctx, store.GrantFilter{})
	s.Require().NoError(err)
	s.Require().Len(grants, 1)
	s.Equal(domain.LevelAdmin, grants[0].Level)
}

func (s *GrantServiceSuite) TestBulkAppliesToWholeCatalog() {
	result, err := s.service.BulkSetLevel(s.ctx, 1, domain.LevelRead, 99, s.origin)
	s.Require().NoError(err)
	s.Equal(2, result.Applied)
	s.Empty(result.Failures)

	apps, err := s.service.ListUserApplications(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(apps, 2)
}

func (s *GrantServiceSuite) TestBulkReportsPartialFailure() {
	s.service.grants = &flakyGrantStore{GrantStore: s.service.grants, failAppID: 11}

	result, err := s.service.BulkSetLevel(s.ctx, 1, domain.LevelRead, 99, s.origin)
	s.Require().NoError(err)
	s.Equal(1, result.Applied)
	s.Require().Len(result.Failures, 1)
	s.Equal(11, result.Failures[0].ApplicationID)

	level, err := s.service.GetLevel(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Equal(domain.LevelRead, level, "sibling applications are not rolled back")
}

func (s *GrantServiceSuite) TestBulkValidation() {
	_, err := s.service.BulkSetLevel(s.ctx, 1, domain.Level("root"), 99, s.origin)
	s.True(apperrors.Is(err, apperrors.CodeBadRequest))

	_, err = s.service.BulkSetLevel(s.ctx, 1, domain.LevelRead, 0, s.origin)
	s.True(apperrors.Is(err, apperrors.CodeUnauthorized))
}

func (s *GrantServiceSuite) TestListUserApplicationsFollowsDisplayOrder() {
	_, err := s.service.SetLevel(s.ctx, 1, 11, domain.LevelRead, 99, s.origin)
	s.Require().NoError(err)
	_, err = s.service.SetLevel(s.ctx, 1, 10, domain.LevelRead, 99, s.origin)
	s.Require().NoError(err)

	apps, err := s.service.ListUserApplications(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(apps, 2)
	s.Equal("Facturation", apps[0].Name)
	s.Equal("Inventaire", apps[1].Name)
}

func (s *GrantServiceSuite) TestUserApplicationsServedFromCache() {
	_, err := s.service.SetLevel(s.ctx, 1, 10, domain.LevelRead, 99, s.origin)
	s.Require().NoError(err)

	counting := &countingGrantStore{GrantStore: s.service.grants}
	s.service.grants = counting

	apps, err := s.service.ListUserApplications(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(apps, 1)

	apps, err = s.service.ListUserApplications(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(apps, 1)
	s.Equal(1, counting.listCalls(), "repeated reads are served from the per-user cache key")

	_, err = s.service.SetLevel(s.ctx, 1, 11, domain.LevelWrite, 99, s.origin)
	s.Require().NoError(err)

	apps, err = s.service.ListUserApplications(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(apps, 2, "a write invalidates the user's cached list")
	s.Equal(2, counting.listCalls())
}

func (s *GrantServiceSuite) TestEventCarriesOriginDevice() {
	_, err := s.service.SetLevel(s.ctx, 1, 10, domain.LevelRead, 99, s.origin)
	s.Require().NoError(err)

	events := s.notifier.all()
	s.Require().Len(events, 1)
	s.Equal(99, events[0].ActorID)
	s.NotEmpty(events[0].Device)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MemoryCacheSuite struct {
	suite.Suite
	ctx   context.Context
	cache *Memory
	now   time.Time
}

func (s *MemoryCacheSuite) SetupTest() {
	s.ctx = context.Background()
	s.cache = NewMemory()
	s.now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s.cache.now = func() time.Time { return s.now }
}

func TestMemoryCacheSuite(t *testing.T) {
	suite.Run(t, new(MemoryCacheSuite))
}

func (s *MemoryCacheSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

func (s *MemoryCacheSuite) TestHitWithinTTL() {
	s.cache.Set(s.ctx, "users", []byte(`["alice"]`), time.Second)

	s.advance(999 * time.Millisecond)
	value, ok := s.cache.Get(s.ctx, "users")
	s.True(ok)
	s.Equal([]byte(`["alice"]`), value)
}

func (s *MemoryCacheSuite) TestMissAfterTTL() {
	s.cache.Set(s.ctx, "users", []byte(`["alice"]`), time.Second)

	s.advance(1001 * time.Millisecond)
	_, ok := s.cache.Get(s.ctx, "users")
	s.False(ok)
}

func (s *MemoryCacheSuite) TestMissExactlyAtTTL() {
	s.cache.Set(s.ctx, "users", []byte(`["alice"]`), time.Second)

	s.advance(time.Second)
	_, ok := s.cache.Get(s.ctx, "users")
	s.False(ok, "an entry at its expiry instant is a miss")
}

func (s *MemoryCacheSuite) TestUnknownKeyIsMiss() {
	_, ok := s.cache.Get(s.ctx, "nope")
	s.False(ok)
}

func (s *MemoryCacheSuite) TestSetOverwrites() {
	s.cache.Set(s.ctx, "grant:1:2", []byte(`"read"`), time.Minute)
	s.cache.Set(s.ctx, "grant:1:2", []byte(`"write"`), time.Minute)

	value, ok := s.cache.Get(s.ctx, "grant:1:2")
	s.True(ok)
	s.Equal([]byte(`"write"`), value)
}

func (s *MemoryCacheSuite) TestSetIgnoresNonPositiveTTL() {
	s.cache.Set(s.ctx, "users", []byte(`[]`), 0)
	_, ok := s.cache.Get(s.ctx, "users")
	s.False(ok)

	s.cache.Set(s.ctx, "users", []byte(`[]`), -time.Second)
	_, ok = s.cache.Get(s.ctx, "users")
	s.False(ok)
}

func (s *MemoryCacheSuite) TestDeleteMultipleKeys() {
	s.cache.Set(s.ctx, "grant:1:2", []byte(`"read"`), time.Minute)
	s.cache.Set(s.ctx, "grants", []byte(`[]`), time.Minute)
	s.cache.Set(s.ctx, "users", []byte(`[]`), time.Minute)

	s.cache.Delete(s.ctx, "grant:1:2", "grants")

	_, ok := s.cache.Get(s.ctx, "grant:1:2")
	s.False(ok)
	_, ok = s.cache.Get(s.ctx, "grants")
	s.False(ok)
	_, ok = s.cache.Get(s.ctx, "users")
	s.True(ok, "unrelated keys survive invalidation")
}

func (s *MemoryCacheSuite) TestDeleteAbsentKeyIsNoop() {
	s.cache.Delete(s.ctx, "never-set")
}

func (s *MemoryCacheSuite) TestClear() {
	s.cache.Set(s.ctx, "a", []byte(`1`), time.Minute)
	s.cache.Set(s.ctx, "b", []byte(`2`), time.Minute)

	s.cache.Clear(s.ctx)

	_, ok := s.cache.Get(s.ctx, "a")
	s.False(ok)
	_, ok = s.cache.Get(s.ctx, "b")
	s.False(ok)
}

func (s *MemoryCacheSuite) TestSweepRemovesExpiredOnly() {
	s.cache.Set(s.ctx, "old", []byte(`1`), time.Second)
	s.cache.Set(s.ctx, "fresh", []byte(`2`), time.Hour)

	s.advance(2 * time.Second)
	s.cache.sweep()

	s.cache.mu.RLock()
	_, oldThere := s.cache.entries["old"]
	_, freshThere := s.cache.entries["fresh"]
	s.cache.mu.RUnlock()
	s.False(oldThere)
	s.True(freshThere)
}

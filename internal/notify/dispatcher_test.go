package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"accesshub/internal/domain"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) received() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type panickySink struct{}

func (panickySink) Name() string                        { return "panicky" }
func (panickySink) Deliver(context.Context, Event) error { panic("boom") }

type DispatcherSuite struct {
	suite.Suite
	logger *slog.Logger
}

func (s *DispatcherSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) event(userID int) Event {
	return Event{
		UserID:        userID,
		ApplicationID: 10,
		Action:        domain.ActionGranted,
		NewLevel:      domain.LevelRead,
		ActorID:       99,
		OccurredAt:    time.Now(),
	}
}

// runAndDrain cancels after events are enqueued so Run drains the buffer
// before returning.
func (s *DispatcherSuite) runAndDrain(d *Dispatcher) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.Run(ctx)
	s.ErrorIs(err, context.Canceled)
}

func (s *DispatcherSuite) TestDeliversToAllSinks() {
	first := &recordingSink{}
	second := &recordingSink{}
	d := NewDispatcher(8, s.logger, nil, first, second)

	d.Notify(s.event(1))
	d.Notify(s.event(2))
	s.runAndDrain(d)

	s.Len(first.received(), 2)
	s.Len(second.received(), 2)
}

func (s *DispatcherSuite) TestFailingSinkDoesNotBlockOthers() {
	broken := &recordingSink{err: errors.New("smtp down")}
	healthy := &recordingSink{}
	d := NewDispatcher(8, s.logger, nil, broken, healthy)

	d.Notify(s.event(1))
	s.runAndDrain(d)

	s.Len(healthy.received(), 1, "a failing sink never starves its siblings")
}

func (s *DispatcherSuite) TestPanickingSinkIsContained() {
	healthy := &recordingSink{}
	d := NewDispatcher(8, s.logger, nil, panickySink{}, healthy)

	d.Notify(s.event(1))
	s.runAndDrain(d)

	s.Len(healthy.received(), 1)
}

func (s *DispatcherSuite) TestFullBufferDropsWithoutBlocking() {
	sink := &recordingSink{}
	d := NewDispatcher(2, s.logger, nil, sink)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			d.Notify(s.event(i))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("Notify blocked on a full buffer")
	}

	s.runAndDrain(d)
	s.Len(sink.received(), 2, "only the buffered events survive; the rest are dropped")
}

func (s *DispatcherSuite) TestNotifyStampsMissingTimestamp() {
	sink := &recordingSink{}
	d := NewDispatcher(8, s.logger, nil, sink)

	event := s.event(1)
	event.OccurredAt = time.Time{}
	d.Notify(event)
	s.runAndDrain(d)

	received := sink.received()
	s.Require().Len(received, 1)
	s.False(received[0].OccurredAt.IsZero())
}

func TestParseUserAgent(t *testing.T) {
	chrome := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	if got := ParseUserAgent(chrome); got != "Chrome on Mac OS X" {
		t.Errorf("ParseUserAgent(chrome) = %q", got)
	}
	if got := ParseUserAgent(""); got != "Unknown Device" {
		t.Errorf("ParseUserAgent(empty) = %q", got)
	}
	if got := ParseUserAgent("   "); got != "Unknown Device" {
		t.Errorf("ParseUserAgent(blank) = %q", got)
	}
}

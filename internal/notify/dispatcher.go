// Package notify delivers best-effort notifications for committed grant
// transitions. Delivery is decoupled from the write path by a buffered
// channel: the grant service hands an event off and moves on, and no sink
// failure ever propagates back into a transition.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"accesshub/internal/platform/metrics"
)

// Sink receives events. Implementations must be safe for use from the
// single dispatcher goroutine.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}

// Dispatcher fans committed-transition events out to its sinks from a
// background worker.
type Dispatcher struct {
	sinks   []Sink
	inbox   chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(buffer int, logger *slog.Logger, m *metrics.Metrics, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		sinks:   sinks,
		inbox:   make(chan Event, buffer),
		logger:  logger,
		metrics: m,
	}
}

// Notify enqueues an event without blocking. When the buffer is full the
// event is dropped and logged; a slow sink must never stall a transition.
func (d *Dispatcher) Notify(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	select {
	case d.inbox <- event:
	default:
		if d.metrics != nil {
			d.metrics.NotifyDropped.Inc()
		}
		d.logger.Warn("notification dropped, buffer full",
			"user_id", event.UserID,
			"application_id", event.ApplicationID,
			"action", event.Action,
		)
	}
}

// Run consumes the inbox until ctx is done, draining what is already
// buffered before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case event := <-d.inbox:
					d.deliver(event)
				default:
					return ctx.Err()
				}
			}
		case event := <-d.inbox:
			d.deliver(event)
		}
	}
}

// deliver hands the event to every sink. Failures are logged with enough
// context to replay manually and then discarded.
func (d *Dispatcher) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	delivered := true
	for _, sink := range d.sinks {
		if err := d.deliverTo(ctx, sink, event); err != nil {
			delivered = false
			if d.metrics != nil {
				d.metrics.NotifyFailures.Inc()
			}
			d.logger.Error("notification delivery failed",
				"sink", sink.Name(),
				"user_id", event.UserID,
				"application_id", event.ApplicationID,
				"action", event.Action,
				"error", err,
			)
		}
	}
	if delivered && d.metrics != nil {
		d.metrics.NotifyDelivered.Inc()
	}
}

func (d *Dispatcher) deliverTo(ctx context.Context, sink Sink, event Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &sinkPanicError{sink: sink.Name(), value: rec}
		}
	}()
	return sink.Deliver(ctx, event)
}

type sinkPanicError struct {
	sink  string
	value any
}

func (e *sinkPanicError) Error() string {
	return fmt.Sprintf("sink %s panicked: %v", e.sink, e.value)
}

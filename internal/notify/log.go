package notify

import (
	"context"
	"log/slog"
)

// LogSink writes one structured record per event. It is always wired so
// failed downstream deliveries can be replayed from the logs.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "access change",
		"user_id", event.UserID,
		"user", event.UserName,
		"application_id", event.ApplicationID,
		"application", event.Application,
		"action", event.Action,
		"old_level", event.OldLevel,
		"new_level", event.NewLevel,
		"performed_by", event.ActorID,
		"device", event.Device,
	)
	return nil
}

package observability

import (
	"context"
	"log/slog"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

var (
	_ ports.Notifier       = (*LogSink)(nil)
	_ ports.Mailer         = (*LogSink)(nil)
	_ ports.EventPublisher = (*LogSink)(nil)
)

// LogSink writes side effects to the structured log instead of a broker.
// It is the fallback when RabbitMQ or Kafka are not configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = defaultLogger()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, userID, message string, kind ports.NotificationKind) error {
	s.logger.LogAttrs(ctx, slog.LevelInfo, "notification",
		slog.String("user_id", userID),
		slog.String("kind", string(kind)),
		slog.String("message", message),
	)
	return nil
}

func (s *LogSink) ComposeEmail(ctx context.Context, to, subject, _ string) error {
	s.logger.LogAttrs(ctx, slog.LevelInfo, "email composed", slog.String("to", to), slog.String("subject", subject))
	return nil
}

func (s *LogSink) Publish(ctx context.Context, event domain.Event) error {
	if event == nil {
		return nil
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "domain event",
		slog.String("event", event.EventName()),
		slog.String("pet_id", event.PartitionKey()),
		slog.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

const defaultSideEffectTimeout = 10 * time.Second

type notification struct {
	userID  string
	message string
	kind    ports.NotificationKind
}

type email struct {
	to      string
	subject string
	body    string
}

// effects collects the notifications, e-mails and events of one committed operation.
type effects struct {
	notifications []notification
	emails        []email
	events        []domain.Event
}

func (e *effects) notify(userID, message string, kind ports.NotificationKind) {
	if userID == "" {
		return
	}
	e.notifications = append(e.notifications, notification{userID: userID, message: message, kind: kind})
}

func (e *effects) mail(to, subject, body string) {
	if to == "" {
		return
	}
	e.emails = append(e.emails, email{to: to, subject: subject, body: body})
}

func (e *effects) publish(events ...domain.Event) {
	e.events = append(e.events, events...)
}

func (e *effects) merge(other *effects) {
	e.notifications = append(e.notifications, other.notifications...)
	e.emails = append(e.emails, other.emails...)
	e.events = append(e.events, other.events...)
}

func (e *effects) empty() bool {
	return len(e.notifications) == 0 && len(e.emails) == 0 && len(e.events) == 0
}

// dispatcher delivers effects fire-and-forget; failures are logged, never returned.
type dispatcher struct {
	notifier  ports.Notifier
	mailer    ports.Mailer
	publisher ports.EventPublisher
	logger    *slog.Logger
	run       func(func())
	timeout   time.Duration
}

func (d *dispatcher) dispatch(ctx context.Context, batch *effects) {
	if batch == nil || batch.empty() {
		return
	}
	detached := context.WithoutCancel(ctx)
	d.run(func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.LogAttrs(detached, slog.LevelError, "side effect dispatch panicked", slog.String("panic", fmt.Sprint(r)))
			}
		}()
		ctx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		d.deliver(ctx, batch)
	})
}

func (d *dispatcher) deliver(ctx context.Context, batch *effects) {
	if d.notifier != nil {
		for _, n := range batch.notifications {
			if err := d.notifier.Notify(ctx, n.userID, n.message, n.kind); err != nil {
				d.logger.LogAttrs(ctx, slog.LevelWarn, "notification failed",
					slog.String("user_id", n.userID),
					slog.String("kind", string(n.kind)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	if d.mailer != nil {
		for _, m := range batch.emails {
			if err := d.mailer.ComposeEmail(ctx, m.to, m.subject, m.body); err != nil {
				d.logger.LogAttrs(ctx, slog.LevelWarn, "email failed",
					slog.String("to", m.to),
					slog.String("subject", m.subject),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	if d.publisher != nil {
		for _, evt := range batch.events {
			if err := d.publisher.Publish(ctx, evt); err != nil {
				d.logger.LogAttrs(ctx, slog.LevelWarn, "event publish failed",
					slog.String("event", evt.EventName()),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

func runAsync(f func()) {
	go f()
}

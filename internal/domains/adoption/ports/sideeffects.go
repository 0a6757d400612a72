package ports

import (
	"context"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
)

// NotificationKind classifies a user notification.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
)

// Notifier delivers a short message to a user.
type Notifier interface {
	Notify(ctx context.Context, userID, message string, kind NotificationKind) error
}

// Mailer composes an e-mail for a user; address resolution happens downstream.
type Mailer interface {
	ComposeEmail(ctx context.Context, to, subject, body string) error
}

// EventPublisher emits domain events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

package rabbitmq

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// NotificationsQueue carries in-app notifications for the push gateway.
	NotificationsQueue = "adoption.notifications"
	// EmailsQueue carries composed e-mails for the mail relay.
	EmailsQueue = "adoption.emails"
)

var (
	_ ports.Notifier = (*Notifier)(nil)
	_ ports.Mailer   = (*Mailer)(nil)
)

// Publisher is the queue client the adapters write through.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

type notificationMessage struct {
	UserID  string    `json:"userId"`
	Message string    `json:"message"`
	Kind    string    `json:"kind"`
	SentAt  time.Time `json:"sentAt"`
}

type emailMessage struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Composed time.Time `json:"composedAt"`
}

// Notifier enqueues user notifications as durable JSON messages.
type Notifier struct {
	publisher Publisher
	queue     string
	now       func() time.Time
}

func NewNotifier(publisher Publisher) *Notifier {
	return &Notifier{publisher: publisher, queue: NotificationsQueue, now: time.Now}
}

func (n *Notifier) Notify(ctx context.Context, userID, message string, kind ports.NotificationKind) error {
	body, err := json.Marshal(notificationMessage{UserID: userID, Message: message, Kind: string(kind), SentAt: n.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.publisher.Publish(ctx, n.queue, body); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Mailer enqueues composed e-mails; delivery and address lookup happen in the relay.
type Mailer struct {
	publisher Publisher
	queue     string
	now       func() time.Time
}

func NewMailer(publisher Publisher) *Mailer {
	return &Mailer{publisher: publisher, queue: EmailsQueue, now: time.Now}
}

func (m *Mailer) ComposeEmail(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(emailMessage{To: to, Subject: subject, Body: body, Composed: m.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}
	if err := m.publisher.Publish(ctx, m.queue, payload); err != nil {
		return fmt.Errorf("publish email: %w", err)
	}
	return nil
}

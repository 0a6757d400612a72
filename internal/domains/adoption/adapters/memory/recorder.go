package memory

import (
	"context"
	"sync"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

var (
	_ ports.Notifier       = (*Recorder)(nil)
	_ ports.Mailer         = (*Recorder)(nil)
	_ ports.EventPublisher = (*Recorder)(nil)
)

// Notification is a recorded Notifier call.
type Notification struct {
	UserID  string
	Message string
	Kind    ports.NotificationKind
}

// Email is a recorded Mailer call.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Recorder captures side effects in memory; it backs local runs without a broker and tests.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
	emails        []Email
	events        []domain.Event
}

// NewRecorder constructs an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, userID, message string, kind ports.NotificationKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, Notification{UserID: userID, Message: message, Kind: kind})
	return nil
}

func (r *Recorder) ComposeEmail(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, Email{To: to, Subject: subject, Body: body})
	return nil
}

func (r *Recorder) Publish(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Notifications returns a copy of the recorded notifications.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

// Emails returns a copy of the recorded e-mails.
func (r *Recorder) Emails() []Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Email(nil), r.emails...)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

// EventNames lists the recorded event names in publication order.
func (r *Recorder) EventNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, e := range r.events {
		names = append(names, e.EventName())
	}
	return names
}

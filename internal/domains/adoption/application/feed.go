package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
)

// Feed turns request changes into per-session alerts, each (request, event) shown once.
// Sessions are opened at sign-in and closed at sign-out; their dedup marks go with them.
type Feed struct {
	requests ports.RequestRepository
	dedup    ports.DedupCache
	newID    func() string
	logger   *slog.Logger
}

// NewFeed wires the feed over the request store and a dedup cache.
func NewFeed(requests ports.RequestRepository, dedup ports.DedupCache, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Feed{requests: requests, dedup: dedup, newID: uuid.NewString, logger: logger}
}

// OpenSession starts a dedup session for userID and returns its id.
func (f *Feed) OpenSession(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", validation("user id is required")
	}
	sessionID := f.newID()
	if err := f.dedup.Open(ctx, sessionID, userID); err != nil {
		return "", err
	}
	return sessionID, nil
}

// CloseSession tears the session down; later Listen calls fail.
func (f *Feed) CloseSession(ctx context.Context, sessionID, userID string) error {
	if err := f.authorize(ctx, sessionID, userID); err != nil {
		return err
	}
	return f.dedup.Close(ctx, sessionID)
}

// Listen streams alerts for requests the user applied for or received.
// The channel closes when ctx ends or the session is closed.
func (f *Feed) Listen(ctx context.Context, sessionID, userID string) (<-chan types.Alert, error) {
	if err := f.authorize(ctx, sessionID, userID); err != nil {
		return nil, err
	}
	updates, err := f.requests.Watch(ctx, ports.RequestQuery{Party: userID, Order: ports.SortOldestFirst})
	if err != nil {
		return nil, mapError(err)
	}

	alerts := make(chan types.Alert, 16)
	go func() {
		defer close(alerts)
		for snapshot := range updates {
			for _, item := range snapshot {
				alert, ok := alertFor(item.Entity, userID)
				if !ok {
					continue
				}
				seen, err := f.dedup.Seen(ctx, sessionID, item.Entity.ID, alert.Kind)
				if errors.Is(err, ports.ErrSessionClosed) {
					return
				}
				if err != nil {
					f.logger.LogAttrs(ctx, slog.LevelWarn, "dedup lookup failed",
						slog.String("session_id", sessionID), slog.String("error", err.Error()))
					continue
				}
				if seen {
					continue
				}
				select {
				case alerts <- alert:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return alerts, nil
}

func (f *Feed) authorize(ctx context.Context, sessionID, userID string) error {
	owner, err := f.dedup.UserID(ctx, sessionID)
	if errors.Is(err, ports.ErrSessionClosed) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return forbidden("session belongs to another user")
	}
	return nil
}

func alertFor(req *domain.Request, userID string) (types.Alert, bool) {
	alert := types.Alert{RequestID: req.ID, PetID: req.PetID, PetName: req.PetName, Kind: "request." + string(req.Status)}
	if userID == req.CreatorID {
		switch {
		case req.Status == domain.RequestStatusPending:
			alert.Message = fmt.Sprintf("%s wants to adopt %s", applicantLabel(req), req.PetName)
		case req.Status == domain.RequestStatusCancelled && req.CancelledBy == req.ApplicantID:
			alert.Message = fmt.Sprintf("%s withdrew the request for %s", applicantLabel(req), req.PetName)
		default:
			return alert, false
		}
		return alert, true
	}
	switch req.Status {
	case domain.RequestStatusApproved:
		alert.Message = fmt.Sprintf("Your request to adopt %s was approved", req.PetName)
	case domain.RequestStatusRejected:
		alert.Message = fmt.Sprintf("Your request to adopt %s was not accepted", req.PetName)
	case domain.RequestStatusCompleted:
		alert.Message = fmt.Sprintf("The adoption of %s is complete", req.PetName)
	case domain.RequestStatusCancelled:
		if req.CancelledBy == req.ApplicantID {
			return alert, false
		}
		alert.Message = fmt.Sprintf("Your request to adopt %s was cancelled by the owner", req.PetName)
	default:
		return alert, false
	}
	return alert, true
}

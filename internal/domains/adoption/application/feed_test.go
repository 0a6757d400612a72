package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/memory"
	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
)

func nextAlert(t *testing.T, alerts <-chan types.Alert) types.Alert {
	t.Helper()
	select {
	case alert, ok := <-alerts:
		require.True(t, ok, "alert stream closed")
		return alert
	case <-time.After(time.Second):
		t.Fatal("no alert received")
	}
	return types.Alert{}
}

func TestFeed_AlertsOncePerSession(t *testing.T) {
	f := newFixture(t)
	feed := NewFeed(f.repos.Requests, memory.NewDedupCache(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pet := f.registerPet(t)
	r1 := f.submit(t, pet.ID, applicantA)

	session, err := feed.OpenSession(ctx, owner)
	require.NoError(t, err)
	alerts, err := feed.Listen(ctx, session, owner)
	require.NoError(t, err)

	alert := nextAlert(t, alerts)
	require.Equal(t, r1.ID, alert.RequestID)
	require.Equal(t, "request.pending", alert.Kind)

	r2 := f.submit(t, pet.ID, applicantB)
	alert = nextAlert(t, alerts)
	require.Equal(t, r2.ID, alert.RequestID)

	// A second listener on the same session does not replay what was already shown.
	replay, err := feed.Listen(ctx, session, owner)
	require.NoError(t, err)
	select {
	case a := <-replay:
		t.Fatalf("unexpected replayed alert %+v", a)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFeed_ApplicantSeesDecision(t *testing.T) {
	f := newFixture(t)
	feed := NewFeed(f.repos.Requests, memory.NewDedupCache(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pet := f.registerPet(t)
	r1 := f.submit(t, pet.ID, applicantA)

	session, err := feed.OpenSession(ctx, applicantA)
	require.NoError(t, err)
	alerts, err := feed.Listen(ctx, session, applicantA)
	require.NoError(t, err)

	f.approve(t, r1.ID)
	alert := nextAlert(t, alerts)
	require.Equal(t, "request.approved", alert.Kind)
	require.Equal(t, "Luna", alert.PetName)
}

func TestFeed_SessionOwnership(t *testing.T) {
	f := newFixture(t)
	feed := NewFeed(f.repos.Requests, memory.NewDedupCache(), nil)
	ctx := context.Background()

	_, err := feed.OpenSession(ctx, "")
	require.ErrorIs(t, err, ErrValidation)

	session, err := feed.OpenSession(ctx, owner)
	require.NoError(t, err)

	_, err = feed.Listen(ctx, session, applicantA)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, feed.CloseSession(ctx, session, owner))
	_, err = feed.Listen(ctx, session, owner)
	require.ErrorIs(t, err, ErrNotFound)
}

//go:build integration
// +build integration

// To enable gopls support for this file, add the following to your VSCode settings.json:
// "gopls": {
//   "buildFlags": ["-tags=integration"]
// }

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	adoptionpostgres "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/persistence/postgres"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application"
	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
	"github.com/Apurer/go-gin-adoption-server/internal/platform/migrations"
	platformpostgres "github.com/Apurer/go-gin-adoption-server/internal/platform/postgres"
)

func setupPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("adoption_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), platformpostgres.Config())
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}
	return db, cleanup
}

func newPet(t *testing.T, id string) *domain.Pet {
	t.Helper()
	pet, err := domain.NewPet(id, "Luna", "dog", "owner-1")
	require.NoError(t, err)
	pet.ReplacePhotos([]string{"https://example.com/luna.jpg"})
	return pet
}

func TestPostgresRepositories_CompareAndSet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repos := adoptionpostgres.NewRepositories(db)
	ctx := context.Background()

	saved, err := repos.Pets.Create(ctx, newPet(t, "pet-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Metadata.Version)

	pet := saved.Entity
	_, err = pet.Claim("req-1")
	require.NoError(t, err)
	updated, err := repos.Pets.Update(ctx, pet, saved.Metadata.Version)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Metadata.Version)
	assert.Equal(t, domain.PetStatusInProcess, updated.Entity.Status)
	assert.Equal(t, []string{"https://example.com/luna.jpg"}, updated.Entity.PhotoURLs)

	_, err = repos.Pets.Update(ctx, pet, saved.Metadata.Version)
	assert.ErrorIs(t, err, ports.ErrVersionConflict)

	missing := newPet(t, "pet-missing")
	_, err = repos.Pets.Update(ctx, missing, 1)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestPostgresRepositories_RequestOrderingAndDuplicates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repos := adoptionpostgres.NewRepositories(db)
	ctx := context.Background()
	pet := newPet(t, "pet-1")
	_, err := repos.Pets.Create(ctx, pet)
	require.NoError(t, err)

	dated := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	r1, err := domain.NewRequest("req-1", pet, "adopter-a", "A", map[string]string{"housing": "flat"}, dated)
	require.NoError(t, err)
	r2, err := domain.NewRequest("req-2", pet, "adopter-b", "B", nil, time.Time{})
	require.NoError(t, err)
	_, err = repos.Requests.Create(ctx, r1)
	require.NoError(t, err)
	_, err = repos.Requests.Create(ctx, r2)
	require.NoError(t, err)

	dup, err := domain.NewRequest("req-3", pet, "adopter-a", "A", nil, dated)
	require.NoError(t, err)
	_, err = repos.Requests.Create(ctx, dup)
	assert.ErrorIs(t, err, ports.ErrDuplicate)

	oldest, err := repos.Requests.Query(ctx, ports.RequestQuery{PetID: pet.ID, Order: ports.SortOldestFirst})
	require.NoError(t, err)
	require.Len(t, oldest, 2)
	assert.Equal(t, "req-2", oldest[0].Entity.ID)
	assert.Equal(t, "flat", oldest[1].Entity.Form["housing"])

	newest, err := repos.Requests.Query(ctx, ports.RequestQuery{Party: "owner-1", Order: ports.SortNewestFirst})
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, "req-1", newest[0].Entity.ID)
}

func TestPostgresRepositories_WatchPollsChanges(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repos := adoptionpostgres.NewRepositories(db, adoptionpostgres.WithPollInterval(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pet := newPet(t, "pet-1")
	_, err := repos.Pets.Create(ctx, pet)
	require.NoError(t, err)

	updates, err := repos.Requests.Watch(ctx, ports.RequestQuery{PetID: pet.ID})
	require.NoError(t, err)
	assert.Empty(t, <-updates)

	req, err := domain.NewRequest("req-1", pet, "adopter-a", "A", nil, time.Now())
	require.NoError(t, err)
	_, err = repos.Requests.Create(ctx, req)
	require.NoError(t, err)

	select {
	case snapshot := <-updates:
		require.Len(t, snapshot, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not report the new request")
	}
}

func TestPostgresTxManager_RollsBackCascade(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repos := adoptionpostgres.NewRepositories(db)
	tx := adoptionpostgres.NewTxManager(db)
	ctx := context.Background()
	saved, err := repos.Pets.Create(ctx, newPet(t, "pet-1"))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = tx.RunInTx(ctx, func(ctx context.Context) error {
		pet := saved.Entity.Clone()
		if _, err := pet.Claim("req-1"); err != nil {
			return err
		}
		if _, err := repos.Pets.Update(ctx, pet, saved.Metadata.Version); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	current, err := repos.Pets.Get(ctx, "pet-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PetStatusAvailable, current.Entity.Status)
	assert.Equal(t, int64(1), current.Metadata.Version)
}

func TestPostgresDedupStore_SessionLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	store := adoptionpostgres.NewDedupStore(db,
		adoptionpostgres.WithTTL(time.Hour),
		adoptionpostgres.WithDedupClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	require.NoError(t, store.Open(ctx, "s-1", "user-1"))
	seen, err := store.Seen(ctx, "s-1", "req-1", "request.pending")
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = store.Seen(ctx, "s-1", "req-1", "request.pending")
	require.NoError(t, err)
	assert.True(t, seen)

	purged, err := store.PurgeExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	_, err = store.UserID(ctx, "s-1")
	assert.ErrorIs(t, err, ports.ErrSessionClosed)
}

func TestPostgresBackedCoordinator_ApprovalCascade(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repos := adoptionpostgres.NewRepositories(db)
	svc := application.NewService(repos,
		application.WithTxManager(adoptionpostgres.NewTxManager(db)),
		application.WithSideEffectRunner(func(f func()) { f() }),
	)
	ctx := context.Background()

	pet, err := svc.RegisterPet(ctx, types.RegisterPetInput{CreatorID: "owner-1", Name: "Luna", Species: "dog"})
	require.NoError(t, err)
	r1, err := svc.SubmitRequest(ctx, types.SubmitRequestInput{PetID: pet.Entity.ID, ApplicantID: "adopter-a"})
	require.NoError(t, err)
	r2, err := svc.SubmitRequest(ctx, types.SubmitRequestInput{PetID: pet.Entity.ID, ApplicantID: "adopter-b"})
	require.NoError(t, err)

	_, err = svc.Decide(ctx, types.DecideInput{RequestID: r1.Entity.ID, DeciderID: "owner-1", Decision: domain.DecisionApprove})
	require.NoError(t, err)

	sibling, err := svc.GetRequest(ctx, r2.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, sibling.Entity.Status)
	held, err := svc.GetPet(ctx, pet.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PetStatusInProcess, held.Entity.Status)
	assert.Equal(t, r1.Entity.ID, held.Entity.ActiveRequestID)
}

func TestPostgresBackedCoordinator_SubmitWaitsForConcurrentClaim(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repos := adoptionpostgres.NewRepositories(db)
	txm := adoptionpostgres.NewTxManager(db)
	svc := application.NewService(repos,
		application.WithTxManager(txm),
		application.WithSideEffectRunner(func(f func()) { f() }),
	)
	ctx := context.Background()

	pet, err := svc.RegisterPet(ctx, types.RegisterPetInput{CreatorID: "owner-1", Name: "Luna", Species: "dog"})
	require.NoError(t, err)

	submitted := make(chan error, 1)
	err = txm.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := repos.Pets.Get(txCtx, pet.Entity.ID)
		if err != nil {
			return err
		}
		if _, err := current.Entity.Claim("req-approved"); err != nil {
			return err
		}
		if _, err := repos.Pets.Update(txCtx, current.Entity, current.Metadata.Version); err != nil {
			return err
		}

		go func() {
			_, err := svc.SubmitRequest(ctx, types.SubmitRequestInput{PetID: pet.Entity.ID, ApplicantID: "adopter-b"})
			submitted <- err
		}()
		select {
		case err := <-submitted:
			t.Errorf("submission finished while the claim was uncommitted: %v", err)
		case <-time.After(300 * time.Millisecond):
		}
		return nil
	})
	require.NoError(t, err)

	select {
	case err := <-submitted:
		require.ErrorIs(t, err, application.ErrInvalidState)
	case <-time.After(10 * time.Second):
		t.Fatal("submission still blocked after the claim committed")
	}

	pending, err := repos.Requests.Query(ctx, ports.RequestQuery{
		PetID:    pet.Entity.ID,
		Statuses: []domain.RequestStatus{domain.RequestStatusPending},
	})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

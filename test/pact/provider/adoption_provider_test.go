//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	pacttest "github.com/Apurer/go-gin-adoption-server/test/pact"

	adoptionserver "github.com/Apurer/go-gin-adoption-server/go"
	adoptionmemory "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/memory"
	adoptionobs "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/observability"
	adoptionworkflows "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/workflows"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/stretchr/testify/require"
)

func TestAdoptionProviderPact(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	verifier := pactprovider.NewVerifier()
	stateHandlers := models.StateHandlers{
		pacttest.StateBaseline: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			return nil, nil
		},
		pacttest.StatePetExists: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			if setup {
				app.seedPet(t)
			}
			return nil, nil
		},
		pacttest.StatePetMissing: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			return nil, nil
		},
		pacttest.StatePendingRequest: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset()
			if setup {
				app.seedPendingRequest(t, app.seedPet(t))
			}
			return nil, nil
		},
	}

	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers:   stateHandlers,
		BeforeEach: func() error {
			app.reset()
			return nil
		},
	})
	require.NoError(t, err)
}

// contractProviderApp swaps in a fresh in-memory store for every provider state.
type contractProviderApp struct {
	mu      sync.RWMutex
	store   *adoptionmemory.Store
	handler http.Handler
	server  *httptest.Server
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()
	app := &contractProviderApp{}
	app.reset()
	app.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.mu.RLock()
		handler := app.handler
		app.mu.RUnlock()
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(app.server.Close)
	return app
}

func (a *contractProviderApp) reset() {
	store := adoptionmemory.NewStore()
	service := adoptionobs.New(application.NewService(store.Repositories(),
		application.WithSideEffectRunner(func(f func()) { f() }),
	))
	workflows := adoptionworkflows.NewInlineAdoptionWorkflows(service)
	feed := application.NewFeed(store.Repositories().Requests, adoptionmemory.NewDedupCache(), nil)

	handlers := adoptionserver.ApiHandleFunctions{
		PetAPI:      adoptionserver.NewPetAPI(service),
		RequestAPI:  adoptionserver.NewRequestAPI(service, workflows),
		HandoverAPI: adoptionserver.NewHandoverAPI(service, workflows),
		SessionAPI:  adoptionserver.NewSessionAPI(feed),
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router = adoptionserver.NewRouterWithGinEngine(router, handlers)

	a.mu.Lock()
	a.store = store
	a.handler = router
	a.mu.Unlock()
}

func (a *contractProviderApp) seedPet(t testing.TB) *domain.Pet {
	t.Helper()
	pet, err := domain.NewPet(pacttest.ExistingPetID, pacttest.ExamplePetName, pacttest.ExamplePetSpecies, pacttest.OwnerID)
	require.NoError(t, err)
	pet.ReplacePhotos([]string{pacttest.ExamplePhotoURL()})
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, err = a.store.Repositories().Pets.Create(context.Background(), pet)
	require.NoError(t, err)
	return pet
}

func (a *contractProviderApp) seedPendingRequest(t testing.TB, pet *domain.Pet) {
	t.Helper()
	req, err := domain.NewRequest(pacttest.PendingRequestID, pet, pacttest.AdopterID, "Pact Adopter", nil, time.Now())
	require.NoError(t, err)
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, err = a.store.Repositories().Requests.Create(context.Background(), req)
	require.NoError(t, err)
}

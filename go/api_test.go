package adoptionserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adoptionhttpmapper "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/http/mapper"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/memory"
	adoptionworkflows "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/workflows"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application"
	apierrors "github.com/Apurer/go-gin-adoption-server/internal/shared/errors"
)

const (
	ownerID    = "owner-1"
	adopterID  = "adopter-1"
	reviewerID = "triage-1"
)

type testServer struct {
	router *gin.Engine
	store  *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	svc := application.NewService(store.Repositories(), application.WithSideEffectRunner(func(f func()) { f() }))
	feed := application.NewFeed(store.Repositories().Requests, memory.NewDedupCache(), nil)
	handlers := ApiHandleFunctions{
		PetAPI:      NewPetAPI(svc),
		RequestAPI:  NewRequestAPI(svc, adoptionworkflows.NewInlineAdoptionWorkflows(svc), WithTriageReviewers(reviewerID)),
		HandoverAPI: NewHandoverAPI(svc, adoptionworkflows.NewInlineAdoptionWorkflows(svc)),
		SessionAPI:  NewSessionAPI(feed),
	}
	return &testServer{router: NewRouterWithGinEngine(gin.New(), handlers), store: store}
}

func (s *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(UserIDHeader, user)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) registerPet(t *testing.T) adoptionhttpmapper.Pet {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/pets", ownerID, map[string]any{"name": "Luna", "species": "dog"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[adoptionhttpmapper.Pet](t, rec)
}

func (s *testServer) submit(t *testing.T, petID, user string) adoptionhttpmapper.Request {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/pets/"+petID+"/requests", user, map[string]any{
		"applicantName": "Ana",
		"form":          map[string]string{"housing": "house with garden"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[adoptionhttpmapper.Request](t, rec)
}

func TestRequireUser_RejectsAnonymousCalls(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/v1/pets", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierrors.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	problem := decode[apierrors.ProblemDetail](t, rec)
	assert.Equal(t, apierrors.TypeUnauthorized, problem.Type)
	assert.Equal(t, "/v1/pets", problem.Instance)
}

func TestAdoptionFlow_OverHTTP(t *testing.T) {
	s := newTestServer(t)
	pet := s.registerPet(t)
	assert.Equal(t, "available", pet.Status)
	assert.Equal(t, ownerID, pet.CreatorID)

	req := s.submit(t, pet.ID, adopterID)
	assert.Equal(t, "pending", req.Status)
	assert.Equal(t, "house with garden", req.Form["housing"])

	rec := s.do(t, http.MethodGet, "/v1/requests/pending", reviewerID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]adoptionhttpmapper.Request](t, rec), 1)

	rec = s.do(t, http.MethodPost, "/v1/requests/"+req.ID+"/decision", ownerID, map[string]any{"decision": "approve"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "approved", decode[adoptionhttpmapper.Request](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/v1/pets/"+pet.ID, adopterID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	held := decode[adoptionhttpmapper.Pet](t, rec)
	assert.Equal(t, "in_process", held.Status)
	assert.Equal(t, req.ID, held.ActiveRequestID)

	rec = s.do(t, http.MethodPost, "/v1/requests/"+req.ID+"/handovers", adopterID, map[string]any{"proposedDate": "2024-06-01", "location": "Park"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	handover := decode[adoptionhttpmapper.Handover](t, rec)
	assert.Equal(t, "requested", handover.Status)
	assert.Equal(t, "2024-06-01", handover.ProposedDate.Format("2006-01-02"))

	rec = s.do(t, http.MethodPost, "/v1/handovers/"+handover.ID+"/confirm", ownerID, map[string]any{"confirmedDate": "2024-06-02"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/handovers/"+handover.ID+"/complete", adopterID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decode[adoptionhttpmapper.Handover](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/v1/owners/"+ownerID+"/adopted-pets", ownerID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	adopted := decode[[]adoptionhttpmapper.Pet](t, rec)
	require.Len(t, adopted, 1)
	assert.Equal(t, "adopted", adopted[0].Status)

	rec = s.do(t, http.MethodGet, "/v1/requests/"+req.ID+"/handovers", ownerID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]adoptionhttpmapper.Handover](t, rec), 1)
}

func TestErrorMapping_ProblemDetails(t *testing.T) {
	s := newTestServer(t)
	pet := s.registerPet(t)
	req := s.submit(t, pet.ID, adopterID)

	cases := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		status int
		typ    string
	}{
		{"unknown request", http.MethodGet, "/v1/requests/missing", adopterID, nil, http.StatusNotFound, apierrors.TypeNotFound},
		{"self application", http.MethodPost, "/v1/pets/" + pet.ID + "/requests", ownerID, map[string]any{}, http.StatusConflict, apierrors.TypeInvalidState},
		{"duplicate pending", http.MethodPost, "/v1/pets/" + pet.ID + "/requests", adopterID, map[string]any{}, http.StatusConflict, apierrors.TypeConflict},
		{"decision by stranger", http.MethodPost, "/v1/requests/" + req.ID + "/decision", "stranger", map[string]any{"decision": "approve"}, http.StatusForbidden, apierrors.TypeForbidden},
		{"unknown decision", http.MethodPost, "/v1/requests/" + req.ID + "/decision", ownerID, map[string]any{"decision": "maybe"}, http.StatusUnprocessableEntity, apierrors.TypeUnprocessable},
		{"missing pet name", http.MethodPost, "/v1/pets", ownerID, map[string]any{"species": "cat"}, http.StatusUnprocessableEntity, apierrors.TypeUnprocessable},
		{"handover before approval", http.MethodPost, "/v1/requests/" + req.ID + "/handovers", adopterID, map[string]any{"proposedDate": "2024-06-01"}, http.StatusConflict, apierrors.TypeInvalidState},
		{"someone else's applications", http.MethodGet, "/v1/users/" + adopterID + "/requests", "stranger", nil, http.StatusForbidden, apierrors.TypeForbidden},
		{"pending queue by non-reviewer", http.MethodGet, "/v1/requests/pending", adopterID, nil, http.StatusForbidden, apierrors.TypeForbidden},
		{"pet requests by stranger", http.MethodGet, "/v1/pets/" + pet.ID + "/requests", "stranger", nil, http.StatusForbidden, apierrors.TypeForbidden},
		{"pet requests by applicant", http.MethodGet, "/v1/pets/" + pet.ID + "/requests", adopterID, nil, http.StatusForbidden, apierrors.TypeForbidden},
		{"requests of unknown pet", http.MethodGet, "/v1/pets/missing/requests", ownerID, nil, http.StatusNotFound, apierrors.TypeNotFound},
		{"request read by stranger", http.MethodGet, "/v1/requests/" + req.ID, "stranger", nil, http.StatusForbidden, apierrors.TypeForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, tc.method, tc.path, tc.user, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			problem := decode[apierrors.ProblemDetail](t, rec)
			assert.Equal(t, tc.typ, problem.Type)
			assert.NotEmpty(t, problem.Detail)
		})
	}
}

func TestCancelRequest_ReleasesPet(t *testing.T) {
	s := newTestServer(t)
	pet := s.registerPet(t)
	req := s.submit(t, pet.ID, adopterID)
	rec := s.do(t, http.MethodPost, "/v1/requests/"+req.ID+"/decision", ownerID, map[string]any{"decision": "approve"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/requests/"+req.ID+"/cancel", adopterID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode[adoptionhttpmapper.Request](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/v1/pets", adopterID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	available := decode[[]adoptionhttpmapper.Pet](t, rec)
	require.Len(t, available, 1)
	assert.Empty(t, available[0].ActiveRequestID)

	rec = s.do(t, http.MethodPost, "/v1/requests/"+req.ID+"/reconcile", ownerID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[adoptionhttpmapper.Reconciliation](t, rec).Applied)
}

func TestPetVisibilityAndDeletion(t *testing.T) {
	s := newTestServer(t)
	pet := s.registerPet(t)

	rec := s.do(t, http.MethodPatch, "/v1/pets/"+pet.ID+"/visibility", ownerID, map[string]any{"visibility": "hidden"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "hidden", decode[adoptionhttpmapper.Pet](t, rec).Visibility)

	rec = s.do(t, http.MethodGet, "/v1/pets", adopterID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]adoptionhttpmapper.Pet](t, rec))

	rec = s.do(t, http.MethodDelete, "/v1/pets/"+pet.ID, adopterID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodDelete, "/v1/pets/"+pet.ID, ownerID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/pets/"+pet.ID, ownerID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// closeNotifyingRecorder lets gin's Stream run against a recorder.
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestSessionAlerts_StreamsOncePerSession(t *testing.T) {
	s := newTestServer(t)
	pet := s.registerPet(t)
	s.submit(t, pet.ID, adopterID)

	rec := s.do(t, http.MethodPost, "/v1/sessions", ownerID, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decode[adoptionhttpmapper.Session](t, rec)
	require.NotEmpty(t, session.SessionID)

	stream := func() string {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+session.SessionID+"/alerts", nil).WithContext(ctx)
		req.Header.Set(UserIDHeader, ownerID)
		out := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool)}
		s.router.ServeHTTP(out, req)
		require.Equal(t, http.StatusOK, out.Code)
		return out.Body.String()
	}

	first := stream()
	assert.Contains(t, first, "event:alert")
	assert.Contains(t, first, "wants to adopt Luna")
	assert.NotContains(t, stream(), "event:alert")

	rec = s.do(t, http.MethodGet, "/v1/sessions/"+session.SessionID+"/alerts", adopterID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/sessions/"+session.SessionID, ownerID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/sessions/"+session.SessionID+"/alerts", ownerID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestReads_VisibleToPartiesAndReviewers(t *testing.T) {
	s := newTestServer(t)
	pet := s.registerPet(t)
	req := s.submit(t, pet.ID, adopterID)

	rec := s.do(t, http.MethodGet, "/v1/pets/"+pet.ID+"/requests", ownerID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, decode[[]adoptionhttpmapper.Request](t, rec), 1)

	for _, user := range []string{adopterID, ownerID, reviewerID} {
		rec = s.do(t, http.MethodGet, "/v1/requests/"+req.ID, user, nil)
		require.Equal(t, http.StatusOK, rec.Code, "user %s: %s", user, rec.Body.String())
		assert.Equal(t, req.ID, decode[adoptionhttpmapper.Request](t, rec).ID)
	}
}

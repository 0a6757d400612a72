// Package adoptionserver is the gin transport of the adoption service.
package adoptionserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI relative to /v1.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the handlers of every API.
type ApiHandleFunctions struct {
	PetAPI      PetAPI
	RequestAPI  RequestAPI
	HandoverAPI HandoverAPI
	SessionAPI  SessionAPI
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine adds the /v1 routes to an existing engine.
// Every route requires the X-User-ID header.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	v1 := router.Group("/v1", RequireUser())
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		v1.Handle(route.Method, route.Pattern, route.HandlerFunc)
	}
	return router
}

// DefaultHandleFunc answers routes that have no handler wired.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

func getRoutes(h ApiHandleFunctions) []Route {
	return []Route{
		{"RegisterPet", http.MethodPost, "/pets", h.PetAPI.RegisterPet},
		{"AvailablePets", http.MethodGet, "/pets", h.PetAPI.AvailablePets},
		{"GetPet", http.MethodGet, "/pets/:petId", h.PetAPI.GetPet},
		{"SetVisibility", http.MethodPatch, "/pets/:petId/visibility", h.PetAPI.SetVisibility},
		{"DeletePet", http.MethodDelete, "/pets/:petId", h.PetAPI.DeletePet},
		{"AdoptedPets", http.MethodGet, "/owners/:ownerId/adopted-pets", h.PetAPI.AdoptedPets},

		{"SubmitRequest", http.MethodPost, "/pets/:petId/requests", h.RequestAPI.SubmitRequest},
		{"RequestsForPet", http.MethodGet, "/pets/:petId/requests", h.RequestAPI.RequestsForPet},
		{"RequestsForOwner", http.MethodGet, "/owners/:ownerId/requests", h.RequestAPI.RequestsForOwner},
		{"PendingRequests", http.MethodGet, "/requests/pending", h.RequestAPI.PendingRequests},
		{"RequestsForUser", http.MethodGet, "/users/:userId/requests", h.RequestAPI.RequestsForUser},
		{"GetRequest", http.MethodGet, "/requests/:requestId", h.RequestAPI.GetRequest},
		{"Decide", http.MethodPost, "/requests/:requestId/decision", h.RequestAPI.Decide},
		{"CancelRequest", http.MethodPost, "/requests/:requestId/cancel", h.RequestAPI.CancelRequest},
		{"Reconcile", http.MethodPost, "/requests/:requestId/reconcile", h.RequestAPI.Reconcile},

		{"CreateHandover", http.MethodPost, "/requests/:requestId/handovers", h.HandoverAPI.CreateHandover},
		{"HandoversForRequest", http.MethodGet, "/requests/:requestId/handovers", h.HandoverAPI.HandoversForRequest},
		{"GetHandover", http.MethodGet, "/handovers/:handoverId", h.HandoverAPI.GetHandover},
		{"ConfirmHandover", http.MethodPost, "/handovers/:handoverId/confirm", h.HandoverAPI.ConfirmHandover},
		{"CompleteHandover", http.MethodPost, "/handovers/:handoverId/complete", h.HandoverAPI.CompleteHandover},
		{"CancelHandover", http.MethodPost, "/handovers/:handoverId/cancel", h.HandoverAPI.CancelHandover},

		{"OpenSession", http.MethodPost, "/sessions", h.SessionAPI.OpenSession},
		{"CloseSession", http.MethodDelete, "/sessions/:sessionId", h.SessionAPI.CloseSession},
		{"StreamAlerts", http.MethodGet, "/sessions/:sessionId/alerts", h.SessionAPI.StreamAlerts},
	}
}

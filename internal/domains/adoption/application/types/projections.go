package types

import (
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/shared/projection"
)

// PetProjection transports a pet listing together with its persistence metadata.
type PetProjection = projection.Projection[*domain.Pet]

// RequestProjection transports an adoption request together with its persistence metadata.
type RequestProjection = projection.Projection[*domain.Request]

// HandoverProjection transports a handover together with its persistence metadata.
type HandoverProjection = projection.Projection[*domain.Handover]

// ReconcileResult lists the cascade steps a reconciliation had to re-apply.
type ReconcileResult struct {
	RequestID string
	Status    domain.RequestStatus
	Applied   []string
}

// Alert is one feed entry shown to a signed-in user.
type Alert struct {
	RequestID string
	PetID     string
	PetName   string
	Kind      string
	Message   string
}

package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
	"github.com/Apurer/go-gin-adoption-server/internal/shared/projection"
)

func TestToCreateHandoverInput_ParsesCalendarDate(t *testing.T) {
	var payload NewHandover
	require.NoError(t, json.Unmarshal([]byte(`{"proposedDate":"2024-06-01","location":"Park"}`), &payload))

	input := ToCreateHandoverInput("req-1", "adopter", payload)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), input.ProposedDate)
	assert.Equal(t, "Park", input.Location)

	var missing NewHandover
	require.NoError(t, json.Unmarshal([]byte(`{}`), &missing))
	assert.True(t, ToCreateHandoverInput("req-1", "adopter", missing).ProposedDate.IsZero())
}

func TestFromHandoverProjection_RendersDatesWithoutTime(t *testing.T) {
	confirmed := time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC)
	h := &domain.Handover{
		ID:            "h-1",
		RequestID:     "req-1",
		ProposedDate:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ConfirmedDate: &confirmed,
		Status:        domain.HandoverStatusConfirmed,
	}
	body, err := json.Marshal(FromHandoverProjection(projection.New(h, projection.Metadata{Version: 2})))
	require.NoError(t, err)
	assert.Contains(t, string(body), `"proposedDate":"2024-06-01"`)
	assert.Contains(t, string(body), `"confirmedDate":"2024-06-02"`)
	assert.Contains(t, string(body), `"status":"confirmed"`)
}

func TestFromRequestProjection_OmitsMissingRequestDate(t *testing.T) {
	r := &domain.Request{ID: "req-1", PetID: "pet-1", Status: domain.RequestStatusPending, Form: map[string]string{"housing": "flat"}}
	out := FromRequestProjection(projection.New(r, projection.Metadata{Version: 1}))
	assert.Nil(t, out.RequestDate)
	assert.Equal(t, "flat", out.Form["housing"])

	out.Form["housing"] = "house"
	assert.Equal(t, "flat", r.Form["housing"])
}

func TestToDecideInput_RejectsUnknownDecision(t *testing.T) {
	_, err := ToDecideInput("req-1", "owner", Decision{Decision: "maybe"})
	require.ErrorIs(t, err, domain.ErrUnknownDecision)

	input, err := ToDecideInput("req-1", "owner", Decision{Decision: "Approve"})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionApprove, input.Decision)
}

func TestFromReconcileResult_CopiesSteps(t *testing.T) {
	out := FromReconcileResult(&types.ReconcileResult{RequestID: "req-1", Status: domain.RequestStatusApproved, Applied: []string{"claim pet"}})
	assert.Equal(t, []string{"claim pet"}, out.Applied)
	assert.Equal(t, "approved", out.Status)
}

package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/memory"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application"
	types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/domain"
)

func counterTotals(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals
}

func TestService_RecordsLifecycleCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	store := memory.NewStore()
	inner := application.NewService(store.Repositories(), application.WithSideEffectRunner(func(f func()) { f() }))
	svc := New(inner, WithMeter(provider.Meter("test")))
	ctx := context.Background()

	pet, err := svc.RegisterPet(ctx, types.RegisterPetInput{CreatorID: "owner", Name: "Rex", Species: "dog"})
	require.NoError(t, err)
	req, err := svc.SubmitRequest(ctx, types.SubmitRequestInput{PetID: pet.Entity.ID, ApplicantID: "adopter"})
	require.NoError(t, err)
	_, err = svc.Decide(ctx, types.DecideInput{RequestID: req.Entity.ID, DeciderID: "owner", Decision: domain.DecisionApprove})
	require.NoError(t, err)
	_, err = svc.CancelRequest(ctx, types.CancelRequestInput{RequestID: req.Entity.ID, ActorID: "adopter"})
	require.NoError(t, err)

	totals := counterTotals(t, reader)
	require.Equal(t, int64(1), totals["adoption.requests.submitted"])
	require.Equal(t, int64(1), totals["adoption.requests.decided"])
	require.Equal(t, int64(1), totals["adoption.requests.cancelled"])
	require.Zero(t, totals["adoption.handovers.completed"])
}

func TestService_PassesErrorsThrough(t *testing.T) {
	store := memory.NewStore()
	svc := New(application.NewService(store.Repositories()))

	_, err := svc.GetRequest(context.Background(), "missing")
	require.ErrorIs(t, err, application.ErrNotFound)

	_, err = svc.Decide(context.Background(), types.DecideInput{RequestID: "missing", DeciderID: "owner", Decision: domain.DecisionReject})
	require.ErrorIs(t, err, application.ErrNotFound)
}

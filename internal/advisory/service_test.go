package advisory

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeromx/backend/internal/bus"
	"github.com/aeromx/backend/internal/history"
	"github.com/aeromx/backend/internal/state"
	"github.com/aeromx/backend/internal/storage/models"
	"github.com/aeromx/backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitNop()
	os.Exit(m.Run())
}

func newTestService(store *state.MemoryStore, events *bus.Bus) *Service {
	return NewService(store, events, history.NewRecorder(store, events), nil, nil)
}

func TestRespondWithEvidencePublishesAndRecords(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	events := bus.New(nil)
	require.NoError(t, store.SetManuals(ctx, []models.ManualReference{
		{Filename: "AMM-29.pdf", Category: "Hydraulic Power"},
	}))
	require.NoError(t, store.SetSelectedAircraft(ctx, &models.SelectedAircraft{
		Registration: "N123AB",
		Model:        "C172",
	}))

	var predictions []bus.PredictionsPayload
	events.Subscribe(bus.TopicPredictionsGenerated, func(payload any) {
		if p, ok := payload.(bus.PredictionsPayload); ok {
			predictions = append(predictions, p)
		}
	})
	assessmentsChanged := 0
	events.Subscribe(bus.TopicAssessmentsChanged, func(any) { assessmentsChanged++ })

	svc := newTestService(store, events)
	result := svc.Respond(ctx, Request{
		Query:   "hydraulic pressure dropping on left system",
		Now:     time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Trigger: "http",
	})

	assert.Equal(t, 92, result.Reply.Confidence)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, models.SeverityCritical, result.Alerts[0].Severity)

	require.Len(t, predictions, 1)
	assert.Equal(t, result.Alerts, predictions[0].Alerts)

	assert.Equal(t, 1, assessmentsChanged)
	assessments := store.Assessments(ctx)
	require.Len(t, assessments, 1)
	assert.Equal(t, "N123AB", assessments[0].Registration)
}

func TestRespondWithoutManualsSkipsAlertsAndAssessment(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	events := bus.New(nil)
	require.NoError(t, store.SetSelectedAircraft(ctx, &models.SelectedAircraft{Registration: "N123AB"}))

	published := 0
	events.Subscribe(bus.TopicPredictionsGenerated, func(any) { published++ })
	events.Subscribe(bus.TopicAssessmentsChanged, func(any) { published++ })

	svc := newTestService(store, events)
	result := svc.Respond(ctx, Request{Query: "engine runs rough", Trigger: "http"})

	assert.Equal(t, 45, result.Reply.Confidence)
	assert.Empty(t, result.Alerts)
	assert.Zero(t, published)
	assert.Empty(t, store.Assessments(ctx))
}

func TestRespondWithoutAircraftSkipsAssessmentOnly(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	events := bus.New(nil)
	require.NoError(t, store.SetManuals(ctx, []models.ManualReference{{Filename: "EMM.pdf"}}))

	svc := newTestService(store, events)
	result := svc.Respond(ctx, Request{Query: "turbine blade inspection", Trigger: "http"})

	assert.NotEmpty(t, result.Alerts)
	assert.Empty(t, store.Assessments(ctx))
	assert.Empty(t, result.Alerts[0].AircraftRegistration)
}

func TestRespondAircraftOverrideBeatsStore(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	events := bus.New(nil)
	require.NoError(t, store.SetManuals(ctx, []models.ManualReference{{Filename: "AMM.pdf"}}))
	require.NoError(t, store.SetSelectedAircraft(ctx, &models.SelectedAircraft{Registration: "N111XX"}))

	svc := newTestService(store, events)
	result := svc.Respond(ctx, Request{
		Query:    "overdue airworthiness directive",
		Aircraft: &models.SelectedAircraft{Registration: "N456CD", Model: "PA-28"},
		Trigger:  "session",
	})

	assert.Contains(t, result.Reply.Summary, "Regulatory compliance")
	assessments := store.Assessments(ctx)
	require.Len(t, assessments, 1)
	assert.Equal(t, "N456CD", assessments[0].Registration)
}

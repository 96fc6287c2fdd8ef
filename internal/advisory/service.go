package advisory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aeromx/backend/internal/bus"
	"github.com/aeromx/backend/internal/cache"
	"github.com/aeromx/backend/internal/history"
	"github.com/aeromx/backend/internal/metrics"
	"github.com/aeromx/backend/internal/prediction"
	"github.com/aeromx/backend/internal/state"
	"github.com/aeromx/backend/internal/storage/models"
	"github.com/aeromx/backend/internal/storage/sqlite"
	"github.com/aeromx/backend/pkg/logger"
)

// Service runs one full advisory exchange: snapshot the shared state,
// build the reply, derive predictive alerts, record the assessment and
// archive the exchange. Archive and cache are optional; the flow
// degrades without them.
type Service struct {
	store      state.Store
	events     *bus.Bus
	recorder   *history.Recorder
	archive    *sqlite.Client
	replyCache *cache.ReplyCache
}

func NewService(store state.Store, events *bus.Bus, recorder *history.Recorder, archive *sqlite.Client, replyCache *cache.ReplyCache) *Service {
	return &Service{
		store:      store,
		events:     events,
		recorder:   recorder,
		archive:    archive,
		replyCache: replyCache,
	}
}

// Request describes one advisory exchange to run.
type Request struct {
	Query   string
	Context string

	// Aircraft, when non-nil, overrides the stored selection (the
	// session tracks aircraft-changed events instead of polling).
	Aircraft *models.SelectedAircraft

	// Now anchors predicted dates and assessment timestamps.
	Now time.Time

	// Trigger labels the exchange for metrics ("session", "http").
	Trigger string

	// UseCache consults the reply cache before building. Session
	// submits always rebuild against a fresh snapshot.
	UseCache bool
}

// Result is the outcome of one exchange.
type Result struct {
	Reply  models.Message
	Alerts []models.PredictedAlert
}

// Respond executes the exchange. It never returns an error: every
// degraded input (empty manuals, corrupt state, missing aircraft)
// produces a defined reply, and telemetry failures are logged only.
func (s *Service) Respond(ctx context.Context, req Request) Result {
	start := time.Now()
	if req.Now.IsZero() {
		req.Now = start
	}

	manuals := s.store.Manuals(ctx)
	draft := s.store.Draft(ctx)
	aircraft := req.Aircraft
	if aircraft == nil {
		aircraft = s.store.SelectedAircraft(ctx)
	}

	reply, cached := s.buildOrFetch(ctx, req, manuals, draft, aircraft)

	registration := ""
	if aircraft.Valid() {
		registration = aircraft.Registration
	}

	alerts := prediction.Generate(manuals, registration, req.Query, req.Now)
	if len(alerts) > 0 {
		for _, a := range alerts {
			metrics.AlertsGenerated.WithLabelValues(a.Severity).Inc()
		}
		s.events.Publish(bus.TopicPredictionsGenerated, bus.PredictionsPayload{Alerts: alerts})
		if s.archive != nil {
			if err := s.archive.InsertAlerts(alerts); err != nil {
				logger.Warn("Failed to archive alerts", zap.Error(err))
			}
		}
	}

	// Assessments are only logged for exchanges with evidence and a
	// concrete subject.
	if len(manuals) > 0 && aircraft.Valid() {
		s.recorder.Record(ctx, registration, req.Now)
	}

	if s.archive != nil {
		exchange := &models.AdvisoryExchange{
			ID:                   uuid.New().String(),
			Query:                req.Query,
			ContextTag:           req.Context,
			Summary:              reply.Summary,
			Recommendation:       reply.Recommendation,
			Confidence:           reply.Confidence,
			ManualCount:          len(manuals),
			AircraftRegistration: registration,
			CreatedAt:            req.Now,
		}
		if err := s.archive.InsertExchange(exchange, reply.References); err != nil {
			logger.Warn("Failed to archive exchange", zap.Error(err))
		}
	}

	metrics.AdvisoryTotal.WithLabelValues(req.Trigger).Inc()
	metrics.ConfidenceScore.Observe(float64(reply.Confidence))
	metrics.AdvisoryDuration.Observe(time.Since(start).Seconds())

	logger.Info("Advisory exchange completed",
		zap.String("trigger", req.Trigger),
		zap.Int("confidence", reply.Confidence),
		zap.Int("manuals", len(manuals)),
		zap.Int("alerts", len(alerts)),
		zap.Bool("cached", cached),
	)

	return Result{Reply: reply, Alerts: alerts}
}

func (s *Service) buildOrFetch(ctx context.Context, req Request, manuals []models.ManualReference, draft *models.DocumentationDraft, aircraft *models.SelectedAircraft) (models.Message, bool) {
	if !req.UseCache || s.replyCache == nil {
		return BuildReply(req.Query, req.Context, manuals, draft, aircraft), false
	}

	fingerprint := cache.Fingerprint(req.Query, req.Context, manuals, draft, aircraft)
	if reply, ok := s.replyCache.GetReply(ctx, fingerprint); ok {
		return *reply, true
	}

	reply := BuildReply(req.Query, req.Context, manuals, draft, aircraft)
	s.replyCache.SetReply(ctx, fingerprint, reply)
	return reply, false
}

// Store exposes the shared-state store for transports that need to
// seed a session from the current snapshot.
func (s *Service) Store() state.Store {
	return s.store
}

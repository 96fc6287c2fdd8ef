// Package history records which aircraft received an evidence-backed
// advisory exchange.
package history

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aeromx/backend/internal/bus"
	"github.com/aeromx/backend/internal/metrics"
	"github.com/aeromx/backend/internal/state"
	"github.com/aeromx/backend/pkg/logger"
)

// Recorder upserts the per-registration assessment history and
// publishes the change notification. Callers only invoke it when the
// exchange had manual evidence and a concrete aircraft; generic
// exchanges are never logged.
type Recorder struct {
	store  state.Store
	events *bus.Bus
}

func NewRecorder(store state.Store, events *bus.Bus) *Recorder {
	return &Recorder{store: store, events: events}
}

// Record upserts the assessment entry for registration and publishes
// assessments-changed. No-op on an empty registration. Upsert failure
// is logged, not surfaced: assessment history is advisory telemetry,
// not a source of truth.
func (r *Recorder) Record(ctx context.Context, registration string, now time.Time) {
	if registration == "" {
		return
	}

	if err := r.store.UpsertAssessment(ctx, registration, now); err != nil {
		logger.Warn("Failed to record assessment",
			zap.String("registration", registration),
			zap.Error(err),
		)
		return
	}

	metrics.AssessmentsRecorded.Inc()
	r.events.Publish(bus.TopicAssessmentsChanged, nil)

	logger.Debug("Assessment recorded", zap.String("registration", registration))
}

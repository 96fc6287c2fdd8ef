package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AdvisoryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aeromx_advisory_total",
			Help: "Total number of advisory replies produced",
		},
		[]string{"trigger"},
	)

	AdvisoryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aeromx_advisory_duration_seconds",
			Help:    "Advisory reply build duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
		},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aeromx_advisory_confidence",
			Help:    "Reply confidence scores (0-100)",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	AlertsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aeromx_alerts_generated_total",
			Help: "Total predictive alerts generated",
		},
		[]string{"severity"},
	)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aeromx_sessions_active",
			Help: "Currently open advisory sessions",
		},
	)

	AssessmentsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aeromx_assessments_recorded_total",
			Help: "Total assessment history upserts",
		},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aeromx_reply_cache_hits_total",
			Help: "Total reply cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aeromx_reply_cache_misses_total",
			Help: "Total reply cache misses",
		},
	)

	StateReadFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aeromx_state_read_failures_total",
			Help: "Shared state reads that fell back to an empty snapshot",
		},
		[]string{"key"},
	)
)

func Init() {
	prometheus.MustRegister(AdvisoryTotal)
	prometheus.MustRegister(AdvisoryDuration)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(AlertsGenerated)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(AssessmentsRecorded)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(StateReadFailures)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

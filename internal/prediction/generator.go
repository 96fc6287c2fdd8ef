// Package prediction derives forward-looking maintenance alerts from
// the uploaded manuals and the current query. Generation follows the
// same evidence-gating policy as the advisory engine: no manuals, no
// predictions.
package prediction

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aeromx/backend/internal/storage/models"
)

// family is one topic family checked against every manual. Matching is
// case-insensitive substring over the query, the manual category and
// the manual filename.
type family struct {
	name        string
	keywords    []string
	severity    string
	component   string
	offsetDays  int
	confidence  int
	title       string
	description string // fmt verbs: manual filename, registration
}

var families = []family{
	{
		name:        "engine",
		keywords:    []string{"engine", "turbine", "powerplant", "oil"},
		severity:    models.SeverityWarning,
		component:   "Powerplant",
		offsetDays:  14,
		confidence:  87,
		title:       "Engine performance trend deviation",
		description: "Indicators in %s suggest the powerplant on %s is approaching a trend-monitoring threshold. Schedule a borescope and oil analysis within the predicted window.",
	},
	{
		name:        "hydraulic",
		keywords:    []string{"hydraulic", "actuator", "skydrol"},
		severity:    models.SeverityCritical,
		component:   "Hydraulic system",
		offsetDays:  7,
		confidence:  91,
		title:       "Hydraulic system pressure degradation",
		description: "Procedures in %s indicate the hydraulic system on %s is at risk of pressure degradation. Inspect pumps, accumulators and line fittings before the predicted date.",
	},
	{
		name:        "landing-gear",
		keywords:    []string{"gear", "landing", "brake", "tire"},
		severity:    models.SeverityWarning,
		component:   "Landing gear",
		offsetDays:  3,
		confidence:  94,
		title:       "Landing gear wear limit approach",
		description: "Wear criteria in %s place the landing gear on %s near serviceable limits. Measure strut extension and brake wear indicators at the next opportunity.",
	},
	{
		name:        "general-inspection",
		keywords:    []string{"inspect", "inspection", "check", "overhaul"},
		severity:    models.SeverityInfo,
		component:   "Airframe",
		offsetDays:  30,
		confidence:  85,
		title:       "Scheduled inspection window approaching",
		description: "Inspection intervals referenced in %s indicate a routine inspection window is approaching for %s. Plan hangar availability ahead of the predicted date.",
	},
}

// Generate derives the alert list for one advisory exchange. It is
// pure with respect to its explicit inputs apart from alert IDs; the
// caller supplies now so predicted dates are deterministic under test.
// Alerts are deduplicated by title, first occurrence wins.
func Generate(manuals []models.ManualReference, registration, query string, now time.Time) []models.PredictedAlert {
	if len(manuals) == 0 {
		return nil
	}

	lowerQuery := strings.ToLower(query)
	createdAt := now.UTC().Format(time.RFC3339)

	var alerts []models.PredictedAlert
	for _, m := range manuals {
		lowerCategory := strings.ToLower(m.CategoryOrDefault())
		lowerFilename := strings.ToLower(m.Filename)

		for _, f := range families {
			if !f.matches(lowerQuery, lowerCategory, lowerFilename) {
				continue
			}
			alerts = append(alerts, models.PredictedAlert{
				ID:                   uuid.New().String(),
				Severity:             f.severity,
				Title:                f.title,
				Description:          fmt.Sprintf(f.description, m.Filename, registration),
				Component:            f.component,
				PredictedDate:        now.AddDate(0, 0, f.offsetDays).Format("2006-01-02"),
				Confidence:           f.confidence,
				Source:               m.Filename,
				AircraftRegistration: registration,
				CreatedAt:            createdAt,
			})
		}
	}

	return dedupByTitle(alerts)
}

func (f family) matches(lowerQuery, lowerCategory, lowerFilename string) bool {
	for _, kw := range f.keywords {
		if strings.Contains(lowerQuery, kw) ||
			strings.Contains(lowerCategory, kw) ||
			strings.Contains(lowerFilename, kw) {
			return true
		}
	}
	return false
}

func dedupByTitle(alerts []models.PredictedAlert) []models.PredictedAlert {
	if len(alerts) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(alerts))
	out := alerts[:0]
	for _, a := range alerts {
		if seen[a.Title] {
			continue
		}
		seen[a.Title] = true
		out = append(out, a)
	}
	return out
}

// Package advisory derives structured maintenance advisories from a
// query and the shared state snapshots (manuals, documentation draft,
// selected aircraft). The derivation is deterministic: an ordered
// keyword rule table plus scheduling arithmetic over the draft, with
// confidence driven by evidence presence, never by rule matches.
package advisory

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aeromx/backend/internal/storage/models"
)

const (
	baselineConfidence  = 92
	noEvidenceConfidence = 45

	// An open discrepancy is never presented with unqualified high
	// confidence.
	discrepancyConfidenceCap = 88
)

const (
	baselineSummary = "Identified the likely maintenance domain from the query and correlated it against the available technical references."

	baselineRecommendation = "Review the applicable maintenance manual chapter and confirm the task scope against approved data before starting work."

	noEvidenceSummary = "No uploaded manuals are available to ground this assessment, so the guidance below is generic and unverified against approved data."

	noEvidenceRecommendation = "Upload the applicable maintenance manuals or other authoritative documents so future recommendations can cite approved data directly."
)

// rule is one entry of the keyword table. Rules are evaluated in slice
// order against the lower-cased query; the first match replaces both
// summary and recommendation. Matching is case-insensitive substring
// with no word-boundary checks.
type rule struct {
	name           string
	keywords       []string
	summary        string
	recommendation string
}

var keywordRules = []rule{
	{
		name:     "hydraulic",
		keywords: []string{"hydraulic", "actuator", "skydrol"},
		summary: "Hydraulic system anomaly indicated. Pressure decay, sluggish actuation and fluid contamination are the most common drivers; the affected circuit should be isolated before deeper troubleshooting.",
		recommendation: "Check reservoir quantity and accumulator precharge, inspect lines and fittings for seepage, and work from the hydraulic power chapter (ATA 29) of the applicable manual.",
	},
	{
		name:     "compliance",
		keywords: []string{"compliance", "deadline", "airworthiness directive", "overdue", "due date"},
		summary: "Regulatory compliance window identified as the subject of the query. Inspection status and directive applicability drive the answer here, not component condition.",
		recommendation: "Cross-check the aircraft inspection status sheet and the current airworthiness directive listing, and resolve any approaching due date before further flight.",
	},
	{
		name:     "engine",
		keywords: []string{"engine", "powerplant", "turbine"},
		summary: "Powerplant condition question identified. Trend data and the most recent inspection findings carry more weight than any single symptom.",
		recommendation: "Review engine trend monitoring data, confirm oil consumption and filter condition against limits, and consult the powerplant chapters of the applicable manual before deferring.",
	},
}

var numberPattern = regexp.MustCompile(`[0-9][0-9,]*(\.[0-9]+)?`)

// maintenanceDateLayouts are tried in order when parsing the draft's
// maintenance date.
var maintenanceDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"January 2, 2006",
}

const forecastDateFormat = "January 2, 2006"

// BuildReply produces the advisory reply for one query. It is a pure
// function of its arguments: it reads nothing, writes nothing, and
// never fails — every input combination has a defined output.
func BuildReply(query, contextTag string, manuals []models.ManualReference, draft *models.DocumentationDraft, aircraft *models.SelectedAircraft) models.Message {
	summary := baselineSummary
	recommendation := baselineRecommendation
	confidence := baselineConfidence

	// Manuals are the primary evidence source; their absence must
	// visibly degrade confidence, never be silently ignored.
	if len(manuals) == 0 {
		summary = noEvidenceSummary
		recommendation = noEvidenceRecommendation
		confidence = noEvidenceConfidence
	}

	if aircraft.Valid() {
		label := aircraft.Registration
		if aircraft.Model != "" {
			label = fmt.Sprintf("%s (%s)", label, aircraft.Model)
		}
		summary = fmt.Sprintf("Aircraft %s: %s", label, summary)
	}

	lowerQuery := strings.ToLower(query)
	for _, r := range keywordRules {
		if r.matches(lowerQuery) {
			summary = r.summary
			recommendation = r.recommendation
			break
		}
	}

	// A rule match may identify the domain, but without manuals the
	// recommendation always asks for authoritative documents first.
	if len(manuals) == 0 {
		recommendation = noEvidenceRecommendation
	}

	if draft != nil {
		notes, actions, openDiscrepancy := draftSchedulingNotes(draft)
		if len(notes) > 0 {
			summary = summary + " " + strings.Join(notes, " ")
		}
		if len(actions) > 0 {
			recommendation = recommendation + " " + strings.Join(actions, " ")
		}
		if openDiscrepancy {
			confidence = minInt(confidence, discrepancyConfidenceCap)
		}
	}

	if contextTag != "" {
		summary = fmt.Sprintf("[%s] %s", contextTag, summary)
	}

	return models.Message{
		Type:           models.MessageTypeAssistant,
		Content:        summary,
		Summary:        summary,
		Recommendation: recommendation,
		Confidence:     clampConfidence(confidence),
		References:     BuildReferences(manuals),
	}
}

func (r rule) matches(lowerQuery string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(lowerQuery, kw) {
			return true
		}
	}
	return false
}

// draftSchedulingNotes computes the predictive scheduling notes for the
// documentation draft. Notes are appended to the summary, actions to
// the recommendation, both in the order computed here. Unparseable
// fields are omitted, never guessed.
func draftSchedulingNotes(draft *models.DocumentationDraft) (notes, actions []string, openDiscrepancy bool) {
	maintType := strings.ToLower(draft.LastMaintenanceType)

	if due, ok := parseMaintenanceDate(draft.MaintenanceDate); ok {
		switch {
		case strings.Contains(maintType, "annual"):
			notes = append(notes, fmt.Sprintf("Next annual inspection is forecast to come due around %s.",
				due.AddDate(0, 12, 0).Format(forecastDateFormat)))
		case strings.Contains(maintType, "100"):
			notes = append(notes, fmt.Sprintf("Next 100-hour inspection is forecast to come due around %s on a calendar basis.",
				due.AddDate(0, 6, 0).Format(forecastDateFormat)))
			actions = append(actions, "Confirm the 100-hour forecast against the actual time in service accrued since the last inspection.")
		case strings.Contains(maintType, "phase"), strings.Contains(maintType, "a-check"):
			notes = append(notes, fmt.Sprintf("Next phase inspection is forecast to come due around %s.",
				due.AddDate(0, 4, 0).Format(forecastDateFormat)))
		default:
			actions = append(actions, "Specify the type of the last completed maintenance so the next due date can be forecast instead of guessed.")
		}
	} else {
		actions = append(actions, "Provide the date of the last completed maintenance so a due-date forecast can be computed.")
	}

	if draft.DiscrepancyDesc != "" {
		notes = append(notes, "An open discrepancy is on file for this aircraft; treat its resolution as the priority item before scheduling routine work.")
		openDiscrepancy = true
	}

	if v, ok := parseFirstNumber(draft.TimeSinceOverhaul); ok {
		notes = append(notes, fmt.Sprintf("Time since overhaul on record: %s hours.", formatNumber(v)))
	}
	if v, ok := parseFirstNumber(draft.TimeInService); ok {
		notes = append(notes, fmt.Sprintf("Time in service on record: %s hours.", formatNumber(v)))
	}
	if v, ok := parseFirstNumber(draft.TotalCycles); ok {
		notes = append(notes, fmt.Sprintf("Total cycles on record: %s.", formatNumber(v)))
	}

	return notes, actions, openDiscrepancy
}

func parseMaintenanceDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range maintenanceDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseFirstNumber extracts the first embedded number from a free-form
// field, stripping thousands separators. "approx 1,250.5 hrs" -> 1250.5.
func parseFirstNumber(value string) (float64, bool) {
	match := numberPattern.FindString(value)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BuildReferences assembles the reply citation list: one manual-derived
// entry per manual, in order, followed by the fixed regulatory
// citations. With no manuals the fixed list stands alone.
func BuildReferences(manuals []models.ManualReference) []models.Reference {
	refs := make([]models.Reference, 0, len(manuals)+4)
	for _, m := range manuals {
		refs = append(refs, models.Reference{
			Title:         m.Filename,
			Source:        m.CategoryOrDefault(),
			URL:           "/documents/view?file=" + url.QueryEscape(m.Filename),
			RetrievedDate: m.Date,
		})
	}
	return append(refs, DefaultReferences()...)
}

// DefaultReferences returns the fixed regulatory citation set attached
// to every reply.
func DefaultReferences() []models.Reference {
	return []models.Reference{
		{
			Title:         "14 CFR Part 43 - Maintenance, Rebuilding, and Alteration",
			Source:        "Federal Aviation Regulations",
			URL:           "https://www.ecfr.gov/current/title-14/part-43",
			EffectiveDate: "2024-01-01",
		},
		{
			Title:  "AC 43.13-1B - Acceptable Methods, Techniques, and Practices",
			Source: "FAA Advisory Circular",
			URL:    "https://www.faa.gov/regulations_policies/advisory_circulars/index.cfm/go/document.information/documentID/99861",
		},
		{
			Title:  "Airworthiness Directives",
			Source: "FAA Dynamic Regulatory System",
			URL:    "https://drs.faa.gov/browse/ADFRAWD",
		},
		{
			Title:  "Type Certificate Data Sheets",
			Source: "FAA Aircraft Certification",
			URL:    "https://drs.faa.gov/browse/TCDSMODEL",
		},
	}
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

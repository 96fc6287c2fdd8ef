package advisory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeromx/backend/internal/storage/models"
)

func manualFixture() []models.ManualReference {
	return []models.ManualReference{
		{Filename: "AMM-29.pdf", Category: "Hydraulics"},
	}
}

func TestBuildReplyNoManuals(t *testing.T) {
	reply := BuildReply("what is the torque spec", "", nil, nil, nil)

	assert.Equal(t, 45, reply.Confidence)
	assert.Contains(t, reply.Recommendation, "Upload")
	require.Len(t, reply.References, 4)
	assert.Equal(t, "Federal Aviation Regulations", reply.References[0].Source)
}

func TestBuildReplyReferencesOrder(t *testing.T) {
	manuals := []models.ManualReference{
		{Filename: "AMM-29.pdf", Category: "Hydraulics", Date: "2026-02-10"},
		{Filename: "SB-100.pdf"},
	}

	reply := BuildReply("anything", "", manuals, nil, nil)

	require.Len(t, reply.References, 6)
	assert.Equal(t, "AMM-29.pdf", reply.References[0].Title)
	assert.Equal(t, "Hydraulics", reply.References[0].Source)
	assert.Equal(t, "2026-02-10", reply.References[0].RetrievedDate)
	assert.Equal(t, "SB-100.pdf", reply.References[1].Title)
	assert.Equal(t, models.DefaultManualCategory, reply.References[1].Source)
	for _, ref := range reply.References[2:] {
		assert.NotEmpty(t, ref.URL)
	}
}

func TestBuildReplyHydraulicRule(t *testing.T) {
	aircraft := &models.SelectedAircraft{Registration: "N123AB"}
	reply := BuildReply("hydraulic pressure issue", "", manualFixture(), nil, aircraft)

	assert.True(t, strings.HasPrefix(reply.Summary, "Hydraulic system anomaly"))
	assert.Contains(t, reply.Recommendation, "ATA 29")
	assert.Equal(t, 92, reply.Confidence)
}

func TestBuildReplyRulePrecedence(t *testing.T) {
	// Both hydraulic and engine keywords present; hydraulic is checked
	// first and wins.
	reply := BuildReply("engine driven hydraulic pump", "", manualFixture(), nil, nil)
	assert.True(t, strings.HasPrefix(reply.Summary, "Hydraulic system anomaly"))
}

func TestBuildReplyAircraftPrefixWithoutRuleMatch(t *testing.T) {
	aircraft := &models.SelectedAircraft{Registration: "N123AB", Model: "C172"}
	reply := BuildReply("general question", "", manualFixture(), nil, aircraft)

	assert.True(t, strings.HasPrefix(reply.Summary, "Aircraft N123AB (C172):"))
}

func TestBuildReplyContextPrefix(t *testing.T) {
	reply := BuildReply("general question", "records-page", manualFixture(), nil, nil)
	assert.True(t, strings.HasPrefix(reply.Summary, "[records-page]"))
}

func TestBuildReplyAnnualForecast(t *testing.T) {
	draft := &models.DocumentationDraft{
		MaintenanceDate:     "2026-01-01",
		LastMaintenanceType: "Annual Inspection",
	}

	reply := BuildReply("status", "", manualFixture(), draft, nil)
	assert.Contains(t, reply.Summary, "January 1, 2027")
}

func TestBuildReplyHundredHourForecast(t *testing.T) {
	draft := &models.DocumentationDraft{
		MaintenanceDate:     "2026-01-15",
		LastMaintenanceType: "100-Hour",
	}

	reply := BuildReply("status", "", manualFixture(), draft, nil)
	assert.Contains(t, reply.Summary, "July 15, 2026")
	assert.Contains(t, reply.Recommendation, "actual time in service")
}

func TestBuildReplyPhaseForecast(t *testing.T) {
	draft := &models.DocumentationDraft{
		MaintenanceDate:     "2026-03-10",
		LastMaintenanceType: "A-Check",
	}

	reply := BuildReply("status", "", manualFixture(), draft, nil)
	assert.Contains(t, reply.Summary, "July 10, 2026")
}

func TestBuildReplyUnknownMaintenanceType(t *testing.T) {
	draft := &models.DocumentationDraft{
		MaintenanceDate:     "2026-01-01",
		LastMaintenanceType: "Avionics upgrade",
	}

	reply := BuildReply("status", "", manualFixture(), draft, nil)
	assert.Contains(t, reply.Recommendation, "Specify the type")
	assert.NotContains(t, reply.Summary, "forecast to come due")
}

func TestBuildReplyUnparseableDate(t *testing.T) {
	draft := &models.DocumentationDraft{
		MaintenanceDate:     "sometime last spring",
		LastMaintenanceType: "Annual",
	}

	reply := BuildReply("status", "", manualFixture(), draft, nil)
	assert.Contains(t, reply.Recommendation, "Provide the date")
}

func TestBuildReplyDiscrepancyCapsConfidence(t *testing.T) {
	draft := &models.DocumentationDraft{
		DiscrepancyDesc: "Left main strut leaking",
	}

	reply := BuildReply("status", "", manualFixture(), draft, nil)
	assert.LessOrEqual(t, reply.Confidence, 88)
	assert.Contains(t, reply.Summary, "open discrepancy")

	// The cap is a min, not an overwrite: an already-lower confidence
	// stays where it is.
	low := BuildReply("status", "", nil, draft, nil)
	assert.Equal(t, 45, low.Confidence)
}

func TestBuildReplyNumericEcho(t *testing.T) {
	draft := &models.DocumentationDraft{
		TimeSinceOverhaul: "approx 1,250.5 hrs",
		TimeInService:     "3400",
		TotalCycles:       "not recorded",
	}

	reply := BuildReply("status", "", manualFixture(), draft, nil)
	assert.Contains(t, reply.Summary, "Time since overhaul on record: 1250.5 hours.")
	assert.Contains(t, reply.Summary, "Time in service on record: 3400 hours.")
	assert.NotContains(t, reply.Summary, "Total cycles")
}

func TestBuildReplyNoEvidenceKeywordQuery(t *testing.T) {
	// A rule-matching query must not displace the upload request when
	// no manuals are stored, whichever rule fires.
	for _, query := range []string{
		"check hydraulics",
		"engine runs rough",
		"overdue airworthiness directive",
	} {
		reply := BuildReply(query, "", nil, nil, nil)

		assert.Equal(t, 45, reply.Confidence, query)
		assert.Contains(t, reply.Recommendation, "Upload the applicable maintenance manuals", query)
		require.Len(t, reply.References, 4, query)
	}
}

func TestParseFirstNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,250", 1250, true},
		{"tach reads 3400.7 now", 3400.7, true},
		{"", 0, false},
		{"none", 0, false},
	}

	for _, tc := range cases {
		got, ok := parseFirstNumber(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, tc.in)
		}
	}
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0, clampConfidence(-5))
	assert.Equal(t, 100, clampConfidence(140))
	assert.Equal(t, 88, clampConfidence(88))
}

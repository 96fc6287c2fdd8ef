package models

import "time"

const DefaultManualCategory = "Uploaded Manual"

// ManualReference is an uploaded authoritative document the advisory
// engine treats as evidence.
type ManualReference struct {
	Filename string `json:"filename"`
	Category string `json:"category,omitempty"`
	Date     string `json:"date,omitempty"`
}

// CategoryOrDefault returns the manual category, falling back to the
// default label when the upload flow stored none.
func (m ManualReference) CategoryOrDefault() string {
	if m.Category == "" {
		return DefaultManualCategory
	}
	return m.Category
}

// DocumentationDraft is the in-progress maintenance log entry authored
// by the (external) entry form. Every field is optional; the whole
// draft may be absent.
type DocumentationDraft struct {
	AircraftRegistration string `json:"aircraftRegistration,omitempty"`
	TotalCycles          string `json:"totalCycles,omitempty"`
	TimeInService        string `json:"timeInService,omitempty"`
	TimeSinceNew         string `json:"timeSinceNew,omitempty"`
	TimeSinceOverhaul    string `json:"timeSinceOverhaul,omitempty"`
	LastMaintenanceType  string `json:"lastMaintenanceType,omitempty"`
	TechnicianFirstName  string `json:"technicianFirstName,omitempty"`
	TechnicianLastName   string `json:"technicianLastName,omitempty"`
	TechnicianCert       string `json:"technicianCert,omitempty"`
	MaintenanceDate      string `json:"maintenanceDate,omitempty"`
	DiscrepancyDesc      string `json:"discrepancyDesc,omitempty"`
	DiscrepancyRemedy    string `json:"discrepancyRemedy,omitempty"`
	ManualReference      string `json:"manualReference,omitempty"`
}

// SelectedAircraft is the aircraft currently in context, owned by the
// (external) aircraft picker.
type SelectedAircraft struct {
	Registration string `json:"registration"`
	Model        string `json:"model,omitempty"`
}

// Valid reports whether the selection carries a usable registration.
func (a *SelectedAircraft) Valid() bool {
	return a != nil && a.Registration != ""
}

// Message kinds within a conversation session.
const (
	MessageTypeUser      = "user"
	MessageTypeAssistant = "assistant"
)

// Message is one turn in a conversation. User messages carry only
// content; assistant messages additionally carry summary,
// recommendation, confidence and references.
type Message struct {
	Type           string      `json:"type"`
	Content        string      `json:"content"`
	Summary        string      `json:"summary,omitempty"`
	Recommendation string      `json:"recommendation,omitempty"`
	Confidence     int         `json:"confidence,omitempty"`
	References     []Reference `json:"references,omitempty"`
}

// Reference is a citation backing an assistant reply. URL is always
// present, pointing at an internal document view or an external
// regulator page.
type Reference struct {
	Title         string `json:"title"`
	Source        string `json:"source"`
	URL           string `json:"url"`
	EffectiveDate string `json:"effectiveDate,omitempty"`
	RetrievedDate string `json:"retrievedDate,omitempty"`
}

// Predicted alert severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// PredictedAlert is a derived forward-looking maintenance concern,
// distinct from a logged maintenance record.
type PredictedAlert struct {
	ID                   string `json:"id"`
	Severity             string `json:"severity"`
	Title                string `json:"title"`
	Description          string `json:"description"`
	Component            string `json:"component"`
	PredictedDate        string `json:"predictedDate"`
	Confidence           int    `json:"confidence"`
	Source               string `json:"source"`
	AircraftRegistration string `json:"aircraftRegistration"`
	CreatedAt            string `json:"createdAt"`
}

// AiAssessment records that an aircraft received an evidence-backed
// advisory exchange. At most one entry exists per registration.
type AiAssessment struct {
	Registration string `json:"registration"`
	AssessedAt   string `json:"assessedAt"`
}

// AdvisoryExchange is one archived advisory question/answer pair,
// written to sqlite for operational history.
type AdvisoryExchange struct {
	ID                   string
	Query                string
	ContextTag           string
	Summary              string
	Recommendation       string
	Confidence           int
	ManualCount          int
	AircraftRegistration string
	CreatedAt            time.Time
}

// ExchangeReference is one citation attached to an archived exchange.
type ExchangeReference struct {
	ID         int
	ExchangeID string
	Title      string
	Source     string
	URL        string
}

// Package state provides typed accessors over the shared key-value
// store that holds uploaded manual references, the in-progress
// documentation draft, the selected aircraft and the AI assessment
// history. Manuals, draft and aircraft are written by flows the
// advisory core does not control; every read is a best-effort snapshot
// with no read-after-write guarantee against those producers.
package state

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aeromx/backend/internal/storage/models"
)

// Store keys. The same names are used by both backends so a redis
// deployment can be inspected directly.
const (
	KeyManuals     = "manuals"
	KeyDraft       = "draft"
	KeyAircraft    = "aircraft"
	KeyAssessments = "assessments"
)

// Store is the repository interface the advisory core depends on.
// Read accessors are fail-soft: absence, unparseable text or a value
// failing the minimal shape check yields an empty/absent result, never
// an error. Corrupt shared state must not crash the advisory flow.
type Store interface {
	Manuals(ctx context.Context) []models.ManualReference
	Draft(ctx context.Context) *models.DocumentationDraft
	SelectedAircraft(ctx context.Context) *models.SelectedAircraft
	Assessments(ctx context.Context) []models.AiAssessment

	// UpsertAssessment replaces the entry whose registration matches
	// exactly, or prepends a new one. Read-modify-write with no
	// locking; last writer wins.
	UpsertAssessment(ctx context.Context, registration string, now time.Time) error

	// Producer-side setters, used by the upload/picker/draft surfaces.
	SetManuals(ctx context.Context, manuals []models.ManualReference) error
	SetDraft(ctx context.Context, draft *models.DocumentationDraft) error
	SetSelectedAircraft(ctx context.Context, aircraft *models.SelectedAircraft) error
}

// decodeManuals parses the stored manuals value. Entries without a
// filename fail the shape check and are dropped.
func decodeManuals(raw string) []models.ManualReference {
	if raw == "" {
		return nil
	}
	var manuals []models.ManualReference
	if err := json.Unmarshal([]byte(raw), &manuals); err != nil {
		return nil
	}
	valid := manuals[:0]
	for _, m := range manuals {
		if m.Filename != "" {
			valid = append(valid, m)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	return valid
}

func decodeDraft(raw string) *models.DocumentationDraft {
	if raw == "" {
		return nil
	}
	var draft models.DocumentationDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil
	}
	return &draft
}

// decodeAircraft requires a non-empty registration; anything else is
// treated as no selection.
func decodeAircraft(raw string) *models.SelectedAircraft {
	if raw == "" {
		return nil
	}
	var aircraft models.SelectedAircraft
	if err := json.Unmarshal([]byte(raw), &aircraft); err != nil {
		return nil
	}
	if aircraft.Registration == "" {
		return nil
	}
	return &aircraft
}

func decodeAssessments(raw string) []models.AiAssessment {
	if raw == "" {
		return nil
	}
	var assessments []models.AiAssessment
	if err := json.Unmarshal([]byte(raw), &assessments); err != nil {
		return nil
	}
	valid := assessments[:0]
	for _, a := range assessments {
		if a.Registration != "" {
			valid = append(valid, a)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	return valid
}

// upsert applies the registration match-or-prepend rule to a decoded
// assessment list and returns the new list.
func upsert(assessments []models.AiAssessment, registration string, now time.Time) []models.AiAssessment {
	entry := models.AiAssessment{
		Registration: registration,
		AssessedAt:   now.UTC().Format(time.RFC3339),
	}
	for i, a := range assessments {
		if a.Registration == registration {
			assessments[i] = entry
			return assessments
		}
	}
	return append([]models.AiAssessment{entry}, assessments...)
}

package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aeromx/backend/internal/storage/models"
)

// MemoryStore keeps the shared state as serialized text in-process.
// It runs values through the same decode path as RedisStore, so tests
// exercising it cover the fail-soft parsing contract too.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) getRaw(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name]
}

func (s *MemoryStore) setRaw(name, value string) {
	s.mu.Lock()
	s.values[name] = value
	s.mu.Unlock()
}

// SetRaw stores an arbitrary string under a state key, bypassing
// marshalling. Lets tests inject corrupt or partially-written values.
func (s *MemoryStore) SetRaw(name, value string) {
	s.setRaw(name, value)
}

func (s *MemoryStore) Manuals(ctx context.Context) []models.ManualReference {
	return decodeManuals(s.getRaw(KeyManuals))
}

func (s *MemoryStore) Draft(ctx context.Context) *models.DocumentationDraft {
	return decodeDraft(s.getRaw(KeyDraft))
}

func (s *MemoryStore) SelectedAircraft(ctx context.Context) *models.SelectedAircraft {
	return decodeAircraft(s.getRaw(KeyAircraft))
}

func (s *MemoryStore) Assessments(ctx context.Context) []models.AiAssessment {
	return decodeAssessments(s.getRaw(KeyAssessments))
}

func (s *MemoryStore) UpsertAssessment(ctx context.Context, registration string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assessments := upsert(decodeAssessments(s.values[KeyAssessments]), registration, now)
	data, err := json.Marshal(assessments)
	if err != nil {
		return fmt.Errorf("failed to marshal assessments: %w", err)
	}
	s.values[KeyAssessments] = string(data)
	return nil
}

func (s *MemoryStore) SetManuals(ctx context.Context, manuals []models.ManualReference) error {
	data, err := json.Marshal(manuals)
	if err != nil {
		return fmt.Errorf("failed to marshal manuals: %w", err)
	}
	s.setRaw(KeyManuals, string(data))
	return nil
}

func (s *MemoryStore) SetDraft(ctx context.Context, draft *models.DocumentationDraft) error {
	if draft == nil {
		s.setRaw(KeyDraft, "")
		return nil
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	s.setRaw(KeyDraft, string(data))
	return nil
}

func (s *MemoryStore) SetSelectedAircraft(ctx context.Context, aircraft *models.SelectedAircraft) error {
	if aircraft == nil {
		s.setRaw(KeyAircraft, "")
		return nil
	}
	data, err := json.Marshal(aircraft)
	if err != nil {
		return fmt.Errorf("failed to marshal aircraft: %w", err)
	}
	s.setRaw(KeyAircraft, string(data))
	return nil
}

package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aeromx/backend/internal/metrics"
	"github.com/aeromx/backend/internal/storage/models"
	"github.com/aeromx/backend/pkg/circuitbreaker"
	"github.com/aeromx/backend/pkg/logger"
	"github.com/aeromx/backend/pkg/retry"
)

// RedisStore keeps the shared state as JSON strings in redis. Reads go
// through a circuit breaker so a down redis degrades to the fail-soft
// empty snapshot quickly instead of timing out on every accessor call;
// writes are retried with backoff.
type RedisStore struct {
	client      *redis.Client
	prefix      string
	breaker     *circuitbreaker.Breaker
	retryConfig retry.Config
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		breaker: circuitbreaker.New("state-store", circuitbreaker.Config{
			FailureThreshold: 5,
			Cooldown:         15 * time.Second,
			Probes:           3,
			Logger:           logger.Log,
		}),
		retryConfig: retry.Config{
			Attempts:   3,
			BaseDelay:  50 * time.Millisecond,
			MaxDelay:   time.Second,
			Multiplier: 2.0,
			Logger:     logger.Log,
		},
	}
}

func (s *RedisStore) key(name string) string {
	return fmt.Sprintf("%s:%s", s.prefix, name)
}

// getRaw returns the stored text for a key, or "" on absence or any
// failure. Failures are counted and logged, never propagated.
func (s *RedisStore) getRaw(ctx context.Context, name string) string {
	var raw string
	err := s.breaker.Execute(ctx, func() error {
		val, err := s.client.Get(ctx, s.key(name)).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		raw = val
		return nil
	})
	if err != nil {
		metrics.StateReadFailures.WithLabelValues(name).Inc()
		logger.Warn("Shared state read failed",
			zap.String("key", name),
			zap.Error(err),
		)
		return ""
	}
	return raw
}

func (s *RedisStore) setRaw(ctx context.Context, name string, value []byte) error {
	return retry.Do(ctx, s.retryConfig, func() error {
		return s.client.Set(ctx, s.key(name), value, 0).Err()
	})
}

func (s *RedisStore) Manuals(ctx context.Context) []models.ManualReference {
	return decodeManuals(s.getRaw(ctx, KeyManuals))
}

func (s *RedisStore) Draft(ctx context.Context) *models.DocumentationDraft {
	return decodeDraft(s.getRaw(ctx, KeyDraft))
}

func (s *RedisStore) SelectedAircraft(ctx context.Context) *models.SelectedAircraft {
	return decodeAircraft(s.getRaw(ctx, KeyAircraft))
}

func (s *RedisStore) Assessments(ctx context.Context) []models.AiAssessment {
	return decodeAssessments(s.getRaw(ctx, KeyAssessments))
}

func (s *RedisStore) UpsertAssessment(ctx context.Context, registration string, now time.Time) error {
	assessments := upsert(s.Assessments(ctx), registration, now)
	data, err := json.Marshal(assessments)
	if err != nil {
		return fmt.Errorf("failed to marshal assessments: %w", err)
	}
	if err := s.setRaw(ctx, KeyAssessments, data); err != nil {
		return fmt.Errorf("failed to write assessments: %w", err)
	}
	return nil
}

func (s *RedisStore) SetManuals(ctx context.Context, manuals []models.ManualReference) error {
	data, err := json.Marshal(manuals)
	if err != nil {
		return fmt.Errorf("failed to marshal manuals: %w", err)
	}
	if err := s.setRaw(ctx, KeyManuals, data); err != nil {
		return fmt.Errorf("failed to write manuals: %w", err)
	}
	return nil
}

func (s *RedisStore) SetDraft(ctx context.Context, draft *models.DocumentationDraft) error {
	if draft == nil {
		if err := s.client.Del(ctx, s.key(KeyDraft)).Err(); err != nil {
			return fmt.Errorf("failed to clear draft: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := s.setRaw(ctx, KeyDraft, data); err != nil {
		return fmt.Errorf("failed to write draft: %w", err)
	}
	return nil
}

func (s *RedisStore) SetSelectedAircraft(ctx context.Context, aircraft *models.SelectedAircraft) error {
	if aircraft == nil {
		if err := s.client.Del(ctx, s.key(KeyAircraft)).Err(); err != nil {
			return fmt.Errorf("failed to clear aircraft: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(aircraft)
	if err != nil {
		return fmt.Errorf("failed to marshal aircraft: %w", err)
	}
	if err := s.setRaw(ctx, KeyAircraft, data); err != nil {
		return fmt.Errorf("failed to write aircraft: %w", err)
	}
	return nil
}

// Package cache holds the redis-backed reply cache for the one-shot
// advisory endpoint. Replies are deterministic for a given query and
// state snapshot, so the fingerprint covers both.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aeromx/backend/internal/metrics"
	"github.com/aeromx/backend/internal/storage/models"
	"github.com/aeromx/backend/pkg/logger"
	"github.com/aeromx/backend/pkg/utils"
)

type ReplyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReplyCache(client *redis.Client, ttl time.Duration) *ReplyCache {
	return &ReplyCache{client: client, ttl: ttl}
}

// Fingerprint derives the cache key for a query against a state
// snapshot. Any change to the manuals, draft presence or aircraft
// selection produces a different key.
func Fingerprint(query, contextTag string, manuals []models.ManualReference, draft *models.DocumentationDraft, aircraft *models.SelectedAircraft) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(query)))
	b.WriteString("|")
	b.WriteString(contextTag)
	for _, m := range manuals {
		b.WriteString("|")
		b.WriteString(m.Filename)
		b.WriteString("#")
		b.WriteString(m.CategoryOrDefault())
	}
	if draft != nil {
		raw, _ := json.Marshal(draft)
		b.WriteString("|draft:")
		b.Write(raw)
	}
	if aircraft.Valid() {
		b.WriteString("|acft:")
		b.WriteString(aircraft.Registration)
		b.WriteString("#")
		b.WriteString(aircraft.Model)
	}
	return utils.HashString(b.String())
}

// GetReply returns the cached reply for a fingerprint, if present.
// Cache failures count as misses; the caller recomputes.
func (c *ReplyCache) GetReply(ctx context.Context, fingerprint string) (*models.Message, bool) {
	data, err := c.client.Get(ctx, c.key(fingerprint)).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.Inc()
		return nil, false
	}
	if err != nil {
		metrics.CacheMisses.Inc()
		logger.Warn("Reply cache read failed", zap.Error(err))
		return nil, false
	}

	var reply models.Message
	if err := json.Unmarshal(data, &reply); err != nil {
		metrics.CacheMisses.Inc()
		logger.Warn("Reply cache entry unparseable", zap.Error(err))
		return nil, false
	}

	metrics.CacheHits.Inc()
	logger.Debug("Reply cache hit", zap.String("fingerprint", fingerprint))
	return &reply, true
}

// SetReply stores a reply under its fingerprint. Failures are logged
// and ignored.
func (c *ReplyCache) SetReply(ctx context.Context, fingerprint string, reply models.Message) {
	data, err := json.Marshal(reply)
	if err != nil {
		logger.Warn("Failed to marshal reply for cache", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(fingerprint), data, c.ttl).Err(); err != nil {
		logger.Warn("Reply cache write failed", zap.Error(err))
	}
}

func (c *ReplyCache) key(fingerprint string) string {
	return fmt.Sprintf("reply:%s", fingerprint)
}

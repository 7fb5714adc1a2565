package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"zencalcs-assistant/internal/common/database"
	"zencalcs-assistant/internal/common/metrics"
	"zencalcs-assistant/internal/models"
)

const keyPrefix = "analysis:"

// Cache stores analyses keyed by the hash of the transcript.
type Cache struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewCache(redis *database.RedisClient, ttl time.Duration) *Cache {
	return &Cache{redis: redis, ttl: ttl}
}

// Key is stable for identical transcripts. It hashes the JSON encoding of
// the turns, so message content cannot impersonate a turn boundary.
func Key(history []models.Message) string {
	h := sha256.New()
	// encoding a []Message cannot fail
	_ = json.NewEncoder(h).Encode(history)
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get reports ok=false on a miss. Transport errors are returned so callers
// can log them; they never stop an analysis.
func (c *Cache) Get(ctx context.Context, history []models.Message) (*models.ReportData, bool, error) {
	var data models.ReportData
	err := c.redis.GetJSON(ctx, Key(history), &data)
	switch {
	case err == nil:
		metrics.AnalysisCache.WithLabelValues("hit").Inc()
		return &data, true, nil
	case errors.Is(err, database.ErrCacheMiss):
		metrics.AnalysisCache.WithLabelValues("miss").Inc()
		return nil, false, nil
	default:
		metrics.AnalysisCache.WithLabelValues("error").Inc()
		return nil, false, err
	}
}

func (c *Cache) Set(ctx context.Context, history []models.Message, data *models.ReportData) error {
	return c.redis.SetJSON(ctx, Key(history), data, c.ttl)
}

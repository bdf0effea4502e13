package sentiment

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
)

// SampleCache stores classifier output keyed by event id. Events are
// immutable, so a cached sample never needs re-submission.
type SampleCache interface {
	Get(ctx context.Context, eventID string) (*domain.SentimentSample, error)
	Put(ctx context.Context, sample domain.SentimentSample) error
}

const sampleKeyPrefix = "sentiment:sample:"

// sampleTTL bounds cache growth; long enough to outlive any open case.
const sampleTTL = 90 * 24 * time.Hour

// RedisSampleCache persists samples in Redis as JSON.
type RedisSampleCache struct {
	client *redis.Client
}

// NewRedisSampleCache wraps an existing client.
func NewRedisSampleCache(client *redis.Client) *RedisSampleCache {
	return &RedisSampleCache{client: client}
}

// Get returns the cached sample, or nil on a miss.
func (c *RedisSampleCache) Get(ctx context.Context, eventID string) (*domain.SentimentSample, error) {
	raw, err := c.client.Get(ctx, sampleKeyPrefix+eventID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sample domain.SentimentSample
	if err := json.Unmarshal(raw, &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

// Put stores the sample under its event id.
func (c *RedisSampleCache) Put(ctx context.Context, sample domain.SentimentSample) error {
	raw, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sampleKeyPrefix+sample.EventID, raw, sampleTTL).Err()
}

// MemorySampleCache is the process-local fallback used when Redis is not
// configured, and by tests.
type MemorySampleCache struct {
	mu      sync.RWMutex
	samples map[string]domain.SentimentSample
}

// NewMemorySampleCache creates an empty in-memory cache.
func NewMemorySampleCache() *MemorySampleCache {
	return &MemorySampleCache{samples: make(map[string]domain.SentimentSample)}
}

func (c *MemorySampleCache) Get(_ context.Context, eventID string) (*domain.SentimentSample, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sample, ok := c.samples[eventID]
	if !ok {
		return nil, nil
	}
	return &sample, nil
}

func (c *MemorySampleCache) Put(_ context.Context, sample domain.SentimentSample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples[sample.EventID] = sample
	return nil
}

var (
	_ SampleCache = (*RedisSampleCache)(nil)
	_ SampleCache = (*MemorySampleCache)(nil)
)

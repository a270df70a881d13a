package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"live-quiz-service/internal/domain"
)

// StatusCache shares status projections between pollers for a short TTL.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

func (c *StatusCache) GetStatus(ctx context.Context, pin string) (domain.StatusSummary, bool, error) {
	raw, err := c.client.Get(ctx, c.key(pin)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.StatusSummary{}, false, nil
	}
	if err != nil {
		return domain.StatusSummary{}, false, err
	}
	var summary domain.StatusSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return domain.StatusSummary{}, false, err
	}
	return summary, true, nil
}

func (c *StatusCache) SetStatus(ctx context.Context, pin string, summary domain.StatusSummary) error {
	if c.ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(pin), raw, c.ttl).Err()
}

func (c *StatusCache) Invalidate(ctx context.Context, pin string) error {
	return c.client.Del(ctx, c.key(pin)).Err()
}

func (c *StatusCache) key(pin string) string {
	return "quiz:status:" + pin
}

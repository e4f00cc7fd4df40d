package overrides

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheVersionKey = "pricing:candidates:version"

// CandidateCache is a read-through Redis cache in front of ListCandidates.
// Keys carry a version counter that every registry mutation bumps, so stale
// candidate lists age out immediately. Loads for the same key are collapsed
// through singleflight; when Redis is unavailable the loader is hit directly
// so pricing keeps working.
type CandidateCache struct {
	client *redis.Client
	repo   Repository
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

func NewCandidateCache(client *redis.Client, repo Repository, ttl time.Duration, logger *slog.Logger) *CandidateCache {
	return &CandidateCache{
		client: client,
		repo:   repo,
		ttl:    ttl,
		logger: logger,
	}
}

// ListCandidates returns the cached candidate list, populating on miss.
func (c *CandidateCache) ListCandidates(ctx context.Context, clientID, productID, categoryName string) ([]OverrideRecord, error) {
	if c.client == nil {
		return c.repo.ListCandidates(ctx, clientID, productID, categoryName)
	}

	key, err := c.buildKey(ctx, clientID, productID, categoryName)
	if err != nil {
		c.warn("candidate cache key", err)
		return c.repo.ListCandidates(ctx, clientID, productID, categoryName)
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var records []OverrideRecord
		if err := json.Unmarshal(raw, &records); err == nil {
			return records, nil
		}
		c.warn("candidate cache decode", err)
	} else if err != redis.Nil {
		c.warn("candidate cache get", err)
		return c.repo.ListCandidates(ctx, clientID, productID, categoryName)
	}

	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		records, err := c.repo.ListCandidates(ctx, clientID, productID, categoryName)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(records); err == nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.warn("candidate cache set", err)
			}
		}
		return records, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		records, _ := res.Val.([]OverrideRecord)
		return records, nil
	}
}

// Invalidate bumps the cache version, orphaning every cached candidate list.
func (c *CandidateCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

func (c *CandidateCache) buildKey(ctx context.Context, clientID, productID, categoryName string) (string, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return "", err
		}
		ver = 1
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("pricing:candidates:%d:%s:%s:%s", ver, clientID, productID, categoryName), nil
}

func (c *CandidateCache) warn(msg string, err error) {
	if c.logger != nil {
		c.logger.Warn(msg, slog.Any("error", err))
	}
}

// Package cache memoizes search pages and progress snapshots in Redis.
// A cache failure is never a request failure: reads degrade to the
// uncached path and mutations proceed regardless.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"milestonesvc/internal/model"
	"milestonesvc/pkg/metrics"
)

type ResultCache struct {
	rdb         *redis.Client
	logger      *zap.Logger
	progressTTL time.Duration
	searchTTL   time.Duration
}

func New(rdb *redis.Client, logger *zap.Logger, progressTTL, searchTTL time.Duration) *ResultCache {
	return &ResultCache{
		rdb:         rdb,
		logger:      logger,
		progressTTL: progressTTL,
		searchTTL:   searchTTL,
	}
}

func (c *ResultCache) get(ctx context.Context, key, kind string, out any) bool {
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		metrics.IncrementCacheLookup(kind, "miss")
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", zap.String("key", key), zap.Error(err))
		c.rdb.Del(ctx, key)
		metrics.IncrementCacheLookup(kind, "miss")
		return false
	}
	metrics.IncrementCacheLookup(kind, "hit")
	return true
}

func (c *ResultCache) put(ctx context.Context, key string, val any, ttl time.Duration) {
	raw, err := json.Marshal(val)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Warn("cache put failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *ResultCache) GetProgress(ctx context.Context, milestoneID int64) (*model.ProgressSnapshot, bool) {
	var snap model.ProgressSnapshot
	if !c.get(ctx, ProgressKey(milestoneID), "progress", &snap) {
		return nil, false
	}
	return &snap, true
}

func (c *ResultCache) PutProgress(ctx context.Context, snap *model.ProgressSnapshot) {
	c.put(ctx, ProgressKey(snap.MilestoneID), snap, c.progressTTL)
}

func (c *ResultCache) DropProgress(ctx context.Context, milestoneID int64) {
	if err := c.rdb.Del(ctx, ProgressKey(milestoneID)).Err(); err != nil {
		c.logger.Warn("progress invalidation failed, TTL will reap",
			zap.Int64("milestone_id", milestoneID), zap.Error(err))
	}
}

// ScopeVersion reads the scope's invalidation counter. ok=false means
// the cache is unreachable and the caller should skip caching entirely
// rather than risk serving a page that can no longer be invalidated.
func (c *ResultCache) ScopeVersion(ctx context.Context, scope model.Scope) (int64, bool) {
	v, err := c.rdb.Get(ctx, scopeVersionKey(scope)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, true
		}
		c.logger.Warn("scope version read failed", zap.String("scope", scope.Key()), zap.Error(err))
		return 0, false
	}
	return v, true
}

// BumpScope conservatively invalidates all cached search pages whose
// filters could include milestones of this scope.
func (c *ResultCache) BumpScope(ctx context.Context, scope model.Scope) {
	if err := c.rdb.Incr(ctx, scopeVersionKey(scope)).Err(); err != nil {
		c.logger.Warn("scope version bump failed, TTL will reap",
			zap.String("scope", scope.Key()), zap.Error(err))
	}
}

func (c *ResultCache) GetSearch(ctx context.Context, key string) (*model.SearchResult, bool) {
	var res model.SearchResult
	if !c.get(ctx, key, "search", &res) {
		return nil, false
	}
	return &res, true
}

func (c *ResultCache) PutSearch(ctx context.Context, key string, res *model.SearchResult) {
	c.put(ctx, key, res, c.searchTTL)
}

// InvalidateMilestone is the single write-path hook: drops the snapshot
// for the milestone and bumps its scope so stale search pages stop
// being served.
func (c *ResultCache) InvalidateMilestone(ctx context.Context, milestoneID int64, scope model.Scope) {
	c.DropProgress(ctx, milestoneID)
	c.BumpScope(ctx, scope)
}

package leaderboard

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// cache keeps rankings in Redis under keys that embed a generation number.
// Bumping the generation orphans every older key, which then expires by TTL.
type cache struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func (c *cache) generationKey() string {
	return fmt.Sprintf("%s:leaderboard:generation", c.prefix)
}

func (c *cache) key(ctx context.Context, req RankRequest) (string, error) {
	gen, err := c.redis.Get(ctx, c.generationKey()).Int64()
	if err != nil && !stderrors.Is(err, redis.Nil) {
		return "", fmt.Errorf("get generation: %w", err)
	}

	category := "all"
	if req.Category != nil {
		category = req.Category.Key()
	}

	return fmt.Sprintf("%s:leaderboard:%s:%s:%s:%s:%s",
		c.prefix, strconv.FormatInt(gen, 10), req.Scope, req.Region, category, strconv.Itoa(req.Limit)), nil
}

func (c *cache) get(ctx context.Context, key string) (*Leaderboard, bool) {
	b, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			slog.ErrorContext(ctx, "leaderboard: read cache failed", "key", key, "error", err)
		}
		return nil, false
	}

	var l Leaderboard
	if err := json.Unmarshal(b, &l); err != nil {
		slog.ErrorContext(ctx, "leaderboard: decode cache failed", "key", key, "error", err)
		return nil, false
	}
	return &l, true
}

func (c *cache) set(ctx context.Context, key string, l *Leaderboard) {
	b, err := json.Marshal(l)
	if err != nil {
		slog.ErrorContext(ctx, "leaderboard: encode cache failed", "key", key, "error", err)
		return
	}

	if err := c.redis.Set(ctx, key, b, c.ttl).Err(); err != nil {
		slog.ErrorContext(ctx, "leaderboard: write cache failed", "key", key, "error", err)
	}
}

func (c *cache) bump(ctx context.Context) error {
	if err := c.redis.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}
	return nil
}

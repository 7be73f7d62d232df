package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"upscale-bot/internal/tier"
)

const (
	fieldTier       = "tier"
	fieldDisclosure = "disclosure_seen"
)

// RedisRepo keeps one hash per user under "<prefix>:<userID>".
type RedisRepo struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisRepo(rdb redis.UniversalClient, prefix string) *RedisRepo {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisRepo{rdb: rdb, prefix: prefix}
}

func (r *RedisRepo) key(userID string) string {
	return r.prefix + ":" + userID
}

func (r *RedisRepo) GetTier(ctx context.Context, userID string) (tier.Tier, bool, error) {
	raw, err := r.rdb.HGet(ctx, r.key(userID), fieldTier).Result()
	if errors.Is(err, redis.Nil) {
		return tier.Unset, false, nil
	}
	if err != nil {
		return tier.Unset, false, fmt.Errorf("get tier: %w", err)
	}
	t, err := tier.Parse(raw)
	if err != nil {
		return tier.Unset, false, fmt.Errorf("stored tier %q: %w", raw, err)
	}
	return t, true, nil
}

func (r *RedisRepo) SetTier(ctx context.Context, userID string, t tier.Tier) error {
	if !t.Valid() {
		return ErrInvalidTier
	}
	if err := r.rdb.HSet(ctx, r.key(userID), fieldTier, t.String()).Err(); err != nil {
		return fmt.Errorf("set tier: %w", err)
	}
	return nil
}

// MarkDisclosureSeen uses HSETNX, which Redis applies atomically per key.
func (r *RedisRepo) MarkDisclosureSeen(ctx context.Context, userID string) (bool, error) {
	set, err := r.rdb.HSetNX(ctx, r.key(userID), fieldDisclosure, "1").Result()
	if err != nil {
		return false, fmt.Errorf("mark disclosure: %w", err)
	}
	return set, nil
}

var _ Store = (*RedisRepo)(nil)

// Package cache кэш профилей поверх redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/redis/go-redis/v9"
)

const profileKeyPrefix = "profile:"

func NewRedisClient(addr, pass string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})
}

func Ping(ctx context.Context, c *redis.Client) error {
	return c.Ping(ctx).Err()
}

// ProfileCache хранит профили в JSON с фиксированным TTL
type ProfileCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewProfileCache(client redis.Cmdable, ttl time.Duration) *ProfileCache {
	return &ProfileCache{client: client, ttl: ttl}
}

func profileKey(userID int64) string {
	return fmt.Sprintf("%s%d", profileKeyPrefix, userID)
}

// Get промах кэша возвращает (nil, nil)
func (c *ProfileCache) Get(ctx context.Context, userID int64) (*model.Profile, error) {
	data, err := c.client.Get(ctx, profileKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached profile: %w", err)
	}

	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode cached profile: %w", err)
	}
	return &p, nil
}

func (c *ProfileCache) Set(ctx context.Context, p *model.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := c.client.Set(ctx, profileKey(p.UserID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache profile: %w", err)
	}
	return nil
}

func (c *ProfileCache) Delete(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, profileKey(userID)).Err(); err != nil {
		return fmt.Errorf("evict profile: %w", err)
	}
	return nil
}

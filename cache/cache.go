package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent or the cache is disabled.
var ErrMiss = errors.New("cache miss")

// Cache stores projections of confirmed store documents in redis. A nil
// *Cache is a disabled cache: writes are dropped and reads miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

type projection struct {
	Data     json.RawMessage `json:"data"`
	SyncedAt time.Time       `json:"syncedAt"`
}

func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Key builds "<kind>:<id>".
func Key(kind, id string) string {
	return kind + ":" + id
}

func (c *Cache) SetCache(ctx context.Context, key string, value interface{}) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(projection{Data: data, SyncedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.ttl).Err()
}

// GetCache decodes the cached value into out and reports when it was
// last synced from the store.
func (c *Cache) GetCache(ctx context.Context, key string, out interface{}) (time.Time, error) {
	if c == nil {
		return time.Time{}, ErrMiss
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, ErrMiss
	}
	if err != nil {
		return time.Time{}, err
	}
	var p projection
	if err := json.Unmarshal(payload, &p); err != nil {
		return time.Time{}, err
	}
	if err := json.Unmarshal(p.Data, out); err != nil {
		return time.Time{}, err
	}
	return p.SyncedAt, nil
}

func (c *Cache) DeleteCache(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

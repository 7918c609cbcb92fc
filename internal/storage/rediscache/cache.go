package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"farmScope/internal/model"
)

const (
	latestKeyFmt     = "%s:latest"
	snapshotsChanFmt = "%s:snapshots"
	defaultKeyPrefix = "farmscope"
)

// Cache keeps the latest snapshot in redis and announces new ones on a channel.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewClient connects to redis and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// New wraps a client. A zero ttl keeps the latest snapshot until overwritten.
func New(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

func (c *Cache) LatestKey() string {
	return fmt.Sprintf(latestKeyFmt, c.prefix)
}

func (c *Cache) Channel() string {
	return fmt.Sprintf(snapshotsChanFmt, c.prefix)
}

// Publish stores the snapshot as the latest and publishes it.
func (c *Cache) Publish(ctx context.Context, snapshot *model.Snapshot) error {
	if snapshot == nil {
		return nil
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.LatestKey(), string(payload), c.ttl).Err(); err != nil {
		return fmt.Errorf("set latest snapshot: %w", err)
	}
	if err := c.client.Publish(ctx, c.Channel(), string(payload)).Err(); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Latest reads back the stored snapshot. It returns nil when none is stored.
func (c *Cache) Latest(ctx context.Context) (*model.Snapshot, error) {
	payload, err := c.client.Get(ctx, c.LatestKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	snapshot := new(model.Snapshot)
	if err := json.Unmarshal(payload, snapshot); err != nil {
		return nil, fmt.Errorf("decode latest snapshot: %w", err)
	}
	return snapshot, nil
}

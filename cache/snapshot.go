// Package cache keeps the last reconciled order snapshot per user in Redis so
// a restarted dashboard has something to show before the first poll lands.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"food-delivery/client/config"
	"food-delivery/client/models"

	"github.com/go-redis/redis/v8"
)

type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

type Meta struct {
	Count   int
	SavedAt time.Time
}

func New(cfg config.RedisConfig) *SnapshotCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithClient(rdb, cfg.TTL)
}

func NewWithClient(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

func snapshotKey(userID string) string { return "snapshot:" + models.NormalizeID(userID) }
func metaKey(userID string) string     { return "snapshot:" + models.NormalizeID(userID) + ":meta" }

func (c *SnapshotCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Load returns nil without error when nothing is cached for userID.
func (c *SnapshotCache) Load(ctx context.Context, userID string) ([]models.Order, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot for %s: %w", userID, err)
	}
	return decodeSnapshot(data)
}

func (c *SnapshotCache) Save(ctx context.Context, userID string, orders []models.Order) error {
	data, err := encodeSnapshot(orders)
	if err != nil {
		return err
	}
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, snapshotKey(userID), data, c.ttl)
		pipe.HSet(ctx, metaKey(userID), map[string]interface{}{
			"count":    len(orders),
			"saved_at": time.Now().Unix(),
		})
		if c.ttl > 0 {
			pipe.Expire(ctx, metaKey(userID), c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot for %s: %w", userID, err)
	}
	return nil
}

// Meta describes the cached snapshot; Count is zero when nothing is cached.
func (c *SnapshotCache) Meta(ctx context.Context, userID string) (Meta, error) {
	fields, err := c.rdb.HGetAll(ctx, metaKey(userID)).Result()
	if err != nil {
		return Meta{}, err
	}
	var m Meta
	m.Count, _ = strconv.Atoi(fields["count"])
	if ts, err := strconv.ParseInt(fields["saved_at"], 10, 64); err == nil {
		m.SavedAt = time.Unix(ts, 0)
	}
	return m, nil
}

// Clear drops the cached snapshot. Session.Close calls it on logout.
func (c *SnapshotCache) Clear(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, snapshotKey(userID), metaKey(userID)).Err()
}

func (c *SnapshotCache) Close() error {
	return c.rdb.Close()
}

func encodeSnapshot(orders []models.Order) ([]byte, error) {
	if orders == nil {
		orders = []models.Order{}
	}
	return json.Marshal(orders)
}

// decodeSnapshot goes through the same ingestion rules as a REST response, so
// a cached order that no longer validates is dropped.
func decodeSnapshot(data []byte) ([]models.Order, error) {
	var orders []models.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	out := orders[:0]
	for _, o := range orders {
		if o.Validate() == nil {
			out = append(out, o)
		}
	}
	return out, nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/fleetmaint/core/model"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// Prefix namespaces every key. Defaults to "fleetmaint".
	Prefix string `json:"prefix"`
	// TTL expires snapshots that are not refreshed. Zero keeps them forever.
	TTL time.Duration `json:"ttl"`
}

// RedisStore keeps live vehicle state in Redis: one JSON value per vehicle
// plus a set indexing the known identifiers.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "fleetmaint"
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}, nil
}

func (r *RedisStore) vehicleKey(id string) string {
	return fmt.Sprintf("%s:vehicle:%s:snapshot", r.prefix, id)
}

func (r *RedisStore) indexKey() string {
	return r.prefix + ":vehicles"
}

func (r *RedisStore) Get(ctx context.Context, id string) (model.Snapshot, error) {
	val, err := r.client.Get(ctx, r.vehicleKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("redis get snapshot: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return snap, nil
}

func (r *RedisStore) List(ctx context.Context, f Filter) ([]model.Snapshot, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list vehicles: %w", err)
	}
	res := []model.Snapshot{}
	if len(ids) == 0 {
		return res, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.vehicleKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget snapshots: %w", err)
	}
	var expired []any
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var snap model.Snapshot
		if err := json.Unmarshal([]byte(s), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot %s: %w", ids[i], err)
		}
		if f.Match(snap) {
			res = append(res, snap)
		}
	}
	if len(expired) > 0 {
		_ = r.client.SRem(ctx, r.indexKey(), expired...).Err()
	}
	sortByID(res)
	return res, nil
}

func (r *RedisStore) Upsert(ctx context.Context, snap model.Snapshot) error {
	if snap.VehicleID == "" {
		return ErrMissingID
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.vehicleKey(snap.VehicleID), payload, r.ttl)
	pipe.SAdd(ctx, r.indexKey(), snap.VehicleID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

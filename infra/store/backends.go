package store

import (
	"context"
	"time"

	"github.com/kilianp07/fleetmaint/core/factory"
)

const connectTimeout = 10 * time.Second

// init registers built-in backends.
func init() {
	_ = Register("memory", func(map[string]any) (Store, error) {
		return NewMemoryStore(), nil
	})

	_ = Register("sqlite", func(conf map[string]any) (Store, error) {
		c := struct {
			Path string `json:"path"`
		}{Path: "fleetmaint.db"}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return OpenSQLite(c.Path)
	})

	_ = Register("redis", func(conf map[string]any) (Store, error) {
		var c RedisConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return NewRedisStore(ctx, c)
	})

	_ = Register("postgres", func(conf map[string]any) (Store, error) {
		var c PostgresConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return NewPostgresStore(ctx, c)
	})
}

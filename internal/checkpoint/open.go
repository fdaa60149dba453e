package checkpoint

import (
	"context"
	"fmt"
)

const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Options struct {
	Backend     string
	Dir         string
	RedisURL    string
	DatabaseURL string
}

// Open builds the store selected by o.Backend (file by default).
func Open(ctx context.Context, o Options) (Store, error) {
	switch o.Backend {
	case "", BackendFile:
		return NewFileStore(o.Dir), nil
	case BackendRedis:
		if o.RedisURL == "" {
			return nil, fmt.Errorf("checkpoint backend %q requires REDIS_URL", o.Backend)
		}
		return NewRedisStore(ctx, o.RedisURL, 0)
	case BackendPostgres:
		if o.DatabaseURL == "" {
			return nil, fmt.Errorf("checkpoint backend %q requires DATABASE_URL", o.Backend)
		}
		return NewPGStore(ctx, o.DatabaseURL)
	}
	return nil, fmt.Errorf("unknown checkpoint backend %q", o.Backend)
}

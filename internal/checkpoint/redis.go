package checkpoint

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "novelpipe:checkpoint:"

// RedisStore keeps job metadata in a hash and the completed numbers in a set.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects using a redis:// URL. ttl 0 keeps keys forever.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func metaKey(slug string) string { return redisKeyPrefix + slug }
func setKey(slug string) string  { return redisKeyPrefix + slug + ":completed" }

func (s *RedisStore) Load(ctx context.Context, slug string) (*Checkpoint, error) {
	meta, err := s.client.HGetAll(ctx, metaKey(slug)).Result()
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", slug, err)
	}
	if len(meta) == 0 {
		return nil, ErrNotFound
	}

	members, err := s.client.SMembers(ctx, setKey(slug)).Result()
	if err != nil {
		return nil, fmt.Errorf("load completed set %s: %w", slug, err)
	}

	cp := &Checkpoint{Slug: slug, SourceFile: meta["source_file"]}
	if ts, err := time.Parse(time.RFC3339Nano, meta["updated_at"]); err == nil {
		cp.UpdatedAt = ts
	}
	for _, m := range members {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		cp.Completed = append(cp.Completed, n)
	}
	cp.normalize()

	return cp, nil
}

// Save replaces the stored checkpoint in one MULTI/EXEC transaction.
func (s *RedisStore) Save(ctx context.Context, cp *Checkpoint) error {
	cp.normalize()
	cp.UpdatedAt = time.Now().UTC()

	members := make([]any, len(cp.Completed))
	for i, n := range cp.Completed {
		members[i] = n
	}

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, metaKey(cp.Slug), map[string]any{
			"slug":        cp.Slug,
			"source_file": cp.SourceFile,
			"updated_at":  cp.UpdatedAt.Format(time.RFC3339Nano),
		})
		p.Del(ctx, setKey(cp.Slug))
		if len(members) > 0 {
			p.SAdd(ctx, setKey(cp.Slug), members...)
		}
		if s.ttl > 0 {
			p.Expire(ctx, metaKey(cp.Slug), s.ttl)
			p.Expire(ctx, setKey(cp.Slug), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.Slug, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, slug string) error {
	return s.client.Del(ctx, metaKey(slug), setKey(slug)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

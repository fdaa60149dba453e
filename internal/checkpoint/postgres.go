package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS translation_checkpoints (
	slug        TEXT PRIMARY KEY,
	source_file TEXT NOT NULL DEFAULT '',
	completed   INTEGER[] NOT NULL DEFAULT '{}',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PGStore keeps checkpoints as rows next to the imported novels.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect checkpoint db: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create checkpoint table: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Load(ctx context.Context, slug string) (*Checkpoint, error) {
	var (
		cp        = Checkpoint{Slug: slug}
		completed []int32
	)

	err := s.pool.QueryRow(ctx,
		`SELECT source_file, completed, updated_at FROM translation_checkpoints WHERE slug = $1`,
		slug,
	).Scan(&cp.SourceFile, &completed, &cp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", slug, err)
	}

	for _, n := range completed {
		cp.Completed = append(cp.Completed, int(n))
	}
	cp.normalize()

	return &cp, nil
}

func (s *PGStore) Save(ctx context.Context, cp *Checkpoint) error {
	cp.normalize()
	cp.UpdatedAt = time.Now().UTC()

	completed := make([]int32, len(cp.Completed))
	for i, n := range cp.Completed {
		completed[i] = int32(n)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO translation_checkpoints (slug, source_file, completed, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET
			source_file = EXCLUDED.source_file,
			completed = EXCLUDED.completed,
			updated_at = EXCLUDED.updated_at
	`, cp.Slug, cp.SourceFile, completed, cp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.Slug, err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, slug string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM translation_checkpoints WHERE slug = $1`, slug)
	return err
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

// Package store persists novels, genres and chapters into the relational
// store shared with the web app. Novels and genres are keyed by slug and
// chapters by (novel, number); existing chapters are never overwritten.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}

type Store struct {
	db  *gorm.DB
	log Logger
}

type Options struct {
	Log Logger
	// SQLDebug echoes every statement through gorm's logger.
	SQLDebug bool
}

// Open connects to Postgres for postgres:// DSNs and to SQLite for
// sqlite: / file: DSNs and *.db paths.
func Open(dsn string, o Options) (*Store, error) {
	dialector, isSQLite, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	level := logger.Silent
	if o.SQLDebug {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(level),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if isSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	log := o.Log
	if log == nil {
		log = nopLogger{}
	}

	return &Store{db: db, log: log}, nil
}

func dialectorFor(dsn string) (gorm.Dialector, bool, error) {
	switch {
	case dsn == "":
		return nil, false, errors.New("DATABASE_URL is empty")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		return postgres.Open(dsn), false, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:")), true, nil
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"), dsn == ":memory:":
		return sqlite.Open(dsn), true, nil
	}
	return nil, false, fmt.Errorf("unsupported DATABASE_URL %q (want postgres:// or sqlite:)", redact(dsn))
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return dsn
}

// AutoMigrate creates the tables this package writes. The production schema
// belongs to the web app; this is for local SQLite runs and tests.
func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(allModels()...)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB exposes the handle for read-only inspection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/rotisserie/eris"

	"insights-backend/internal/shared/telemetry"
)

// ErrNoDatabaseURL is returned when a pool is requested without a DSN.
var ErrNoDatabaseURL = errors.New("db: DATABASE_URL is empty")

// Profile picks pool defaults for the kind of process opening the pool.
type Profile int

const (
	// ProfileServer is a long-running API process.
	ProfileServer Profile = iota
	// ProfileLambda keeps few connections so concurrent invocations do not
	// exhaust Postgres.
	ProfileLambda
	// ProfileMigrate is a one-shot CLI run.
	ProfileMigrate
)

func (p Profile) String() string {
	switch p {
	case ProfileLambda:
		return "lambda"
	case ProfileMigrate:
		return "migrate"
	default:
		return "server"
	}
}

// Options controls pool sizing and the connect-time ping.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// Defaults returns the pool options for p.
func (p Profile) Defaults() Options {
	switch p {
	case ProfileLambda:
		return Options{MaxOpenConns: 2, MaxIdleConns: 1, ConnMaxLifetime: 15 * time.Minute, ConnMaxIdleTime: 30 * time.Second, PingTimeout: 3 * time.Second}
	case ProfileMigrate:
		return Options{MaxOpenConns: 1, MaxIdleConns: 1, ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 2 * time.Minute, PingTimeout: 5 * time.Second}
	default:
		return Options{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 2 * time.Minute, PingTimeout: 5 * time.Second}
	}
}

// Merge returns o with every positive field of override applied. Zero values
// in override keep the profile default.
func (o Options) Merge(override Options) Options {
	if override.MaxOpenConns > 0 {
		o.MaxOpenConns = override.MaxOpenConns
	}
	if override.MaxIdleConns > 0 {
		o.MaxIdleConns = override.MaxIdleConns
	}
	if override.ConnMaxLifetime > 0 {
		o.ConnMaxLifetime = override.ConnMaxLifetime
	}
	if override.ConnMaxIdleTime > 0 {
		o.ConnMaxIdleTime = override.ConnMaxIdleTime
	}
	if override.PingTimeout > 0 {
		o.PingTimeout = override.PingTimeout
	}
	if o.MaxIdleConns > o.MaxOpenConns {
		o.MaxIdleConns = o.MaxOpenConns
	}
	return o
}

var openDB = func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) }

// Connect opens a pool for dsn and pings it before returning.
func Connect(ctx context.Context, dsn string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrNoDatabaseURL
	}
	pool, err := openDB(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "db: open")
	}
	pool.SetMaxOpenConns(opts.MaxOpenConns)
	pool.SetMaxIdleConns(opts.MaxIdleConns)
	pool.SetConnMaxLifetime(opts.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = ProfileServer.Defaults().PingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, eris.Wrap(err, "db: ping")
	}

	telemetry.Info("db.connected", map[string]any{
		"max_open":      opts.MaxOpenConns,
		"max_idle":      opts.MaxIdleConns,
		"conn_lifetime": opts.ConnMaxLifetime.String(),
	})
	return pool, nil
}

// Shared hands out one pool per process. A failed connect is not cached, so
// the next caller tries again.
type Shared struct {
	mu   sync.Mutex
	pool *sql.DB
}

// Get returns the cached pool or connects one. Concurrent callers wait for a
// single connect attempt.
func (s *Shared) Get(ctx context.Context, dsn string, opts Options) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		return s.pool, nil
	}
	pool, err := Connect(ctx, dsn, opts)
	if err != nil {
		return nil, err
	}
	s.pool = pool
	return pool, nil
}

var lambdaPool Shared

// LambdaPool returns the pool shared by every invocation of a warm Lambda
// execution environment.
func LambdaPool(ctx context.Context, dsn string, opts Options) (*sql.DB, error) {
	return lambdaPool.Get(ctx, dsn, opts)
}

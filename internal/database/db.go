package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	mu   sync.RWMutex
	pool *pgxpool.Pool
)

const connectTimeout = 10 * time.Second

// Connect opens the shared connection pool and verifies it with a ping. A
// second call while a pool is already open is an error; Close first.
func Connect(ctx context.Context, connString string, maxConns, minConns int, maxLifetime, maxIdleTime time.Duration) error {
	mu.Lock()
	defer mu.Unlock()

	if pool != nil {
		return errors.New("database already connected")
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("parsing database config: %w", err)
	}
	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = int32(minConns)
	cfg.MaxConnLifetime = maxLifetime
	cfg.MaxConnIdleTime = maxIdleTime
	cfg.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return fmt.Errorf("connecting to database: %w", err)
	}

	pool = p
	return nil
}

// Close shuts down the shared pool. Safe to call when never connected.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if pool != nil {
		pool.Close()
		pool = nil
	}
}

// Pool returns the shared connection pool, or nil before Connect.
func Pool() *pgxpool.Pool {
	mu.RLock()
	defer mu.RUnlock()
	return pool
}

// Status pings the database through the shared pool.
func Status(ctx context.Context) error {
	p := Pool()
	if p == nil {
		return errors.New("database not initialized")
	}
	return p.Ping(ctx)
}

// Stats returns connection pool statistics, or nil before Connect.
func Stats() *pgxpool.Stat {
	p := Pool()
	if p == nil {
		return nil
	}
	return p.Stat()
}

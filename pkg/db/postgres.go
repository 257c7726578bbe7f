package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/devlanding/leads-api/pkg/errors"
	"github.com/devlanding/leads-api/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var (
	sharedMu sync.Mutex
	shared   *Pool

	// newConnector builds the physical connector for Init
	newConnector = newPgxConnector
)

// Init constructs the process-wide pool on first call and returns the same
// pool on every later call. Configuration errors are *errors.ConfigError and
// leave no pool behind. No connection is dialled until the first Acquire.
func Init(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		return shared, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	connector, err := newConnector(ctx, cfg)
	if err != nil {
		var cfgErr *apperrors.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, apperrors.NewConfigError("DATABASE_URL", err.Error())
	}

	shared = NewPool(cfg, connector)

	logger.Info("PostgreSQL pool initialized",
		zap.String("environment", cfg.Environment),
		zap.String("tls_mode", string(cfg.TLSMode)),
		zap.Bool("managed_endpoint", cfg.ManagedEndpoint),
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Duration("idle_timeout", cfg.IdleTimeout),
		zap.Duration("connect_timeout", cfg.ConnectTimeout),
	)

	return shared, nil
}

// Shutdown closes the process-wide pool. A later Init builds a new one.
func Shutdown() {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		shared.Close()
		shared = nil
		logger.Info("PostgreSQL connection pool closed")
	}
}

// pgxConnector leases connections from a pgxpool.Pool
type pgxConnector struct {
	pool *pgxpool.Pool
}

func newPgxConnector(ctx context.Context, cfg PoolConfig) (Connector, error) {
	poolCfg, err := buildPgxConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &pgxConnector{pool: pool}, nil
}

func (c *pgxConnector) Connect(ctx context.Context) (Querier, func(), error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	return conn, conn.Release, nil
}

func (c *pgxConnector) Close() {
	c.pool.Close()
}

// buildPgxConfig maps PoolConfig onto pgxpool settings.
// Idle connections are reaped by pgxpool's health check after IdleTimeout.
func buildPgxConfig(cfg PoolConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if err := applyTLS(&poolCfg.ConnConfig.Config, cfg); err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}

	if cfg.ServiceKey != "" {
		poolCfg.ConnConfig.Password = cfg.ServiceKey
	}

	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = 0
	poolCfg.MaxConnIdleTime = cfg.IdleTimeout
	poolCfg.HealthCheckPeriod = healthCheckPeriod(cfg.IdleTimeout)
	poolCfg.MaxConnLifetime = 1 * time.Hour

	return poolCfg, nil
}

func healthCheckPeriod(idle time.Duration) time.Duration {
	period := idle / 2
	if period < time.Second {
		return time.Second
	}
	return period
}

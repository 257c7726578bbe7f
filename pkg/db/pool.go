package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/devlanding/leads-api/pkg/errors"
	"github.com/devlanding/leads-api/pkg/logger"
	"github.com/devlanding/leads-api/pkg/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned by Acquire after Close
var ErrPoolClosed = errors.New("connection pool closed")

// Querier is the statement surface of a single connection.
// Satisfied by *pgxpool.Conn and by pgxmock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connector hands out physical connections. The returned func gives the
// connection back and is called exactly once.
type Connector interface {
	Connect(ctx context.Context) (Querier, func(), error)
	Close()
}

// ConnectorFunc adapts a function to a Connector with a no-op Close
type ConnectorFunc func(ctx context.Context) (Querier, func(), error)

func (f ConnectorFunc) Connect(ctx context.Context) (Querier, func(), error) {
	return f(ctx)
}

func (f ConnectorFunc) Close() {}

// Pool bounds concurrent connection use to MaxConns and turns slow acquisition
// into ErrPoolExhausted / ErrConnectTimeout instead of an unbounded wait.
type Pool struct {
	cfg       PoolConfig
	connector Connector
	slots     *semaphore.Weighted

	inUse     atomic.Int64
	acquired  atomic.Int64
	exhausted atomic.Int64
	closed    atomic.Bool
}

// Stats is a point-in-time view of pool accounting
type Stats struct {
	MaxConns       int32
	InUse          int64
	TotalAcquired  int64
	TotalExhausted int64
}

// NewPool creates a pool over connector. Zero-valued limits and timeouts take
// their defaults. Most callers want Init instead.
func NewPool(cfg PoolConfig, connector Connector) *Pool {
	cfg = cfg.withDefaults()
	metrics.PoolConnectionsMax.Set(float64(cfg.MaxConns))

	return &Pool{
		cfg:       cfg,
		connector: connector,
		slots:     semaphore.NewWeighted(int64(cfg.MaxConns)),
	}
}

// Conn is a connection leased from a Pool. It must be released exactly once;
// extra Release calls are ignored.
type Conn struct {
	Querier
	pool    *Pool
	release func()
	once    sync.Once
}

// Release returns the connection to its pool
func (c *Conn) Release() {
	c.once.Do(func() {
		if c.release != nil {
			c.release()
		}
		c.pool.inUse.Add(-1)
		c.pool.slots.Release(1)
		metrics.PoolConnectionsInUse.Dec()
	})
}

// Acquire leases a connection, waiting at most ConnectTimeout. A cancelled or
// expired ctx aborts the wait and its error is returned wrapped.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	start := time.Now()
	actx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	if err := p.slots.Acquire(actx, 1); err != nil {
		p.observeAcquire(start, "exhausted")
		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquire connection: %w", ctx.Err())
		}
		p.exhausted.Add(1)
		return nil, fmt.Errorf("no free connection within %s: %w", p.cfg.ConnectTimeout, apperrors.ErrPoolExhausted)
	}

	q, release, err := p.connector.Connect(actx)
	if err != nil {
		p.slots.Release(1)
		if ctx.Err() != nil {
			p.observeAcquire(start, "cancelled")
			return nil, fmt.Errorf("acquire connection: %w", ctx.Err())
		}
		if actx.Err() != nil || pgconn.Timeout(err) {
			p.observeAcquire(start, "timeout")
			return nil, fmt.Errorf("%w after %s: %w", apperrors.ErrConnectTimeout, p.cfg.ConnectTimeout, err)
		}
		p.observeAcquire(start, "error")
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	p.observeAcquire(start, "success")
	p.inUse.Add(1)
	p.acquired.Add(1)
	metrics.PoolConnectionsInUse.Inc()

	return &Conn{Querier: q, pool: p, release: release}, nil
}

// Release returns conn to the pool. Safe to call with nil.
func (p *Pool) Release(conn *Conn) {
	if conn != nil {
		conn.Release()
	}
}

// HealthCheck runs the configured read-only probe on a pooled connection.
// Any failure is reported as *errors.UnreachableError.
func (p *Pool) HealthCheck(ctx context.Context) error {
	start := time.Now()
	operation := "healthCheck"

	hctx, cancel := context.WithTimeout(ctx, p.OperationTimeout())
	defer cancel()

	conn, err := p.Acquire(hctx)
	if err != nil {
		metrics.RecordDBOperation(operation, "error", metrics.MeasureDuration(start))
		return apperrors.Unreachable(err)
	}
	defer conn.Release()

	if _, err := conn.Exec(hctx, p.cfg.HealthProbe); err != nil {
		duration := metrics.MeasureDuration(start)
		metrics.RecordDBOperation(operation, "error", duration)
		logger.LogDBCall(ctx, operation, "error", duration, zap.Error(err))
		return apperrors.Unreachable(err)
	}

	metrics.RecordDBOperation(operation, "success", metrics.MeasureDuration(start))
	return nil
}

// OperationTimeout is the call-level deadline for a single statement
func (p *Pool) OperationTimeout() time.Duration {
	return p.cfg.OperationTimeout()
}

// InUse returns the number of leased connections
func (p *Pool) InUse() int64 {
	return p.inUse.Load()
}

// Stats returns pool accounting
func (p *Pool) Stats() Stats {
	return Stats{
		MaxConns:       p.cfg.MaxConns,
		InUse:          p.inUse.Load(),
		TotalAcquired:  p.acquired.Load(),
		TotalExhausted: p.exhausted.Load(),
	}
}

// Close stops handing out connections and closes the underlying connector
func (p *Pool) Close() {
	if p.closed.Swap(true) {
		return
	}
	p.connector.Close()
}

func (p *Pool) observeAcquire(start time.Time, status string) {
	metrics.PoolAcquireDuration.WithLabelValues(status).Observe(metrics.MeasureDuration(start))
}

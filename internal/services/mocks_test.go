package services_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devlanding/leads-api/internal/models"
	"github.com/devlanding/leads-api/pkg/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockLeadRepository is a mock implementation of repository.LeadDataSource
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *models.QualifiedLead) (*models.QualifiedLead, error) {
	args := m.Called(ctx, lead)
	if fn, ok := args.Get(0).(func(context.Context, *models.QualifiedLead) *models.QualifiedLead); ok {
		return fn(ctx, lead), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QualifiedLead), args.Error(1)
}

// MockHealthChecker is a mock implementation of services.HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// fakeBackend is a concurrency-safe stand-in for PostgreSQL that records
// inserted rows and the peak number of simultaneously open connections.
type fakeBackend struct {
	mu      sync.Mutex
	rows    []models.QualifiedLead
	open    atomic.Int64
	peak    atomic.Int64
	latency time.Duration
}

func (b *fakeBackend) connect(ctx context.Context) (db.Querier, func(), error) {
	n := b.open.Add(1)
	for {
		peak := b.peak.Load()
		if n <= peak || b.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	return &fakeConn{backend: b}, func() { b.open.Add(-1) }, nil
}

func (b *fakeBackend) stored() []models.QualifiedLead {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.QualifiedLead(nil), b.rows...)
}

type fakeConn struct {
	backend *fakeBackend
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("SELECT 1"), nil
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("query not supported")
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if c.backend.latency > 0 {
		time.Sleep(c.backend.latency)
	}

	lead := models.QualifiedLead{
		ID:           uuid.NewString(),
		Email:        args[0].(string),
		Phone:        args[1].(string),
		IsProgrammer: args[2].(bool),
		UTMSource:    args[3].(*string),
		UTMMedium:    args[4].(*string),
		UTMCampaign:  args[5].(*string),
		IPAddress:    args[6].(*string),
		UserAgent:    args[7].(*string),
		CreatedAt:    time.Now().UTC(),
	}

	c.backend.mu.Lock()
	c.backend.rows = append(c.backend.rows, lead)
	c.backend.mu.Unlock()

	return fakeRow{lead: lead}
}

type fakeRow struct {
	lead models.QualifiedLead
}

func (r fakeRow) Scan(dest ...any) error {
	*dest[0].(*string) = r.lead.ID
	*dest[1].(*string) = r.lead.Email
	*dest[2].(*string) = r.lead.Phone
	*dest[3].(*bool) = r.lead.IsProgrammer
	*dest[4].(**string) = r.lead.UTMSource
	*dest[5].(**string) = r.lead.UTMMedium
	*dest[6].(**string) = r.lead.UTMCampaign
	*dest[7].(**string) = r.lead.IPAddress
	*dest[8].(**string) = r.lead.UserAgent
	*dest[9].(*time.Time) = r.lead.CreatedAt
	return nil
}

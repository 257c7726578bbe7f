package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/devlanding/leads-api/internal/models"
	"github.com/devlanding/leads-api/pkg/db"
	apperrors "github.com/devlanding/leads-api/pkg/errors"
	"github.com/devlanding/leads-api/pkg/logger"
	"github.com/devlanding/leads-api/pkg/metrics"
	"go.uber.org/zap"
)

// HealthProbeSQL is a cheap read-only probe that also proves the table exists
const HealthProbeSQL = `SELECT 1 FROM qualified_leads LIMIT 1`

const insertQualifiedLeadSQL = `
	INSERT INTO qualified_leads (email, phone, is_programmer, utm_source, utm_medium, utm_campaign, ip_address, user_agent)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id, email, phone, is_programmer, utm_source, utm_medium, utm_campaign, ip_address, user_agent, created_at
`

// ConnectionPool is the part of db.Pool used for writes
type ConnectionPool interface {
	Acquire(ctx context.Context) (*db.Conn, error)
	OperationTimeout() time.Duration
}

// LeadRepository appends qualified leads to PostgreSQL
type LeadRepository struct {
	pool ConnectionPool
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(pool ConnectionPool) *LeadRepository {
	return &LeadRepository{pool: pool}
}

// Create inserts lead and returns the stored row with server-assigned fields.
// Acquire errors are returned unchanged; statement errors are *errors.PersistenceError.
// The connection is released on every path.
func (r *LeadRepository) Create(ctx context.Context, lead *models.QualifiedLead) (*models.QualifiedLead, error) {
	start := time.Now()
	operation := "insertQualifiedLead"

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		metrics.RecordDBOperation(operation, "acquire_error", metrics.MeasureDuration(start))
		return nil, err
	}
	defer conn.Release()

	// pgx has no statement timeout of its own
	wctx, cancel := context.WithTimeout(ctx, r.pool.OperationTimeout())
	defer cancel()

	var stored models.QualifiedLead
	err = conn.QueryRow(wctx, insertQualifiedLeadSQL,
		lead.Email,
		lead.Phone,
		lead.IsProgrammer,
		lead.UTMSource,
		lead.UTMMedium,
		lead.UTMCampaign,
		lead.IPAddress,
		lead.UserAgent,
	).Scan(
		&stored.ID,
		&stored.Email,
		&stored.Phone,
		&stored.IsProgrammer,
		&stored.UTMSource,
		&stored.UTMMedium,
		&stored.UTMCampaign,
		&stored.IPAddress,
		&stored.UserAgent,
		&stored.CreatedAt,
	)

	duration := metrics.MeasureDuration(start)

	if err != nil {
		metrics.RecordDBOperation(operation, "error", duration)
		logger.LogDBCall(ctx, operation, "error", duration, zap.Error(err))
		return nil, apperrors.Persistence(fmt.Errorf("failed to insert qualified lead: %w", err))
	}

	metrics.RecordDBOperation(operation, "success", duration)
	logger.LogDBCall(ctx, operation, "success", duration, zap.String("lead_id", stored.ID))

	return &stored, nil
}

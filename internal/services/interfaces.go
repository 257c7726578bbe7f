package services

import (
	"context"

	"github.com/devlanding/leads-api/internal/models"
)

// LeadServiceInterface defines the interface for lead intake operations
type LeadServiceInterface interface {
	SaveQualifiedLead(ctx context.Context, sub *models.LeadSubmission) (*models.QualifiedLead, error)
	TestConnection(ctx context.Context) models.ConnectionStatus
}

// HealthChecker probes backend reachability. Implemented by *db.Pool.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

var _ LeadServiceInterface = (*LeadService)(nil)

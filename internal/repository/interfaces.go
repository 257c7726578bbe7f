package repository

import (
	"context"

	"github.com/devlanding/leads-api/internal/models"
)

// LeadDataSource defines the append-only write path for qualified leads
type LeadDataSource interface {
	// Create inserts a lead and returns the stored row
	Create(ctx context.Context, lead *models.QualifiedLead) (*models.QualifiedLead, error)
}

var _ LeadDataSource = (*LeadRepository)(nil)

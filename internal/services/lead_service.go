package services

import (
	"context"
	"errors"

	"github.com/devlanding/leads-api/internal/models"
	"github.com/devlanding/leads-api/internal/repository"
	apperrors "github.com/devlanding/leads-api/pkg/errors"
	"github.com/devlanding/leads-api/pkg/logger"
	"github.com/devlanding/leads-api/pkg/metrics"
	"github.com/devlanding/leads-api/pkg/profiling"
	"github.com/devlanding/leads-api/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	connectionOKMessage     = "Database connection established"
	connectionFailedMessage = "Error connecting to database"
)

// LeadService validates, normalizes and persists qualified leads.
// It never retries: a retry after an ambiguous failure could duplicate a row.
type LeadService struct {
	leads    repository.LeadDataSource
	health   HealthChecker
	validate *validator.Validate
}

// NewLeadService creates a new lead service instance
func NewLeadService(leads repository.LeadDataSource, health HealthChecker) *LeadService {
	return &LeadService{
		leads:    leads,
		health:   health,
		validate: newLeadValidator(),
	}
}

// SaveQualifiedLead validates sub and appends exactly one row on success.
// Errors are *errors.ValidationError, errors.ErrPoolExhausted,
// errors.ErrConnectTimeout, *errors.PersistenceError, or the caller's
// context error when it was cancelled before a connection was obtained.
func (s *LeadService) SaveQualifiedLead(ctx context.Context, sub *models.LeadSubmission) (stored *models.QualifiedLead, err error) {
	profiling.Do(ctx, profiling.OperationSaveLead, func(ctx context.Context) {
		stored, err = s.saveQualifiedLead(ctx, sub)
	})
	return stored, err
}

func (s *LeadService) saveQualifiedLead(ctx context.Context, sub *models.LeadSubmission) (*models.QualifiedLead, error) {
	ctx, span := tracing.StartSpan(ctx, "LeadService.SaveQualifiedLead")
	defer span.End()

	if sub == nil {
		err := apperrors.InvalidInputError("submission", "submission is required")
		s.recordRejection(span, err)
		return nil, err
	}

	normalized := normalizeSubmission(sub)
	if err := s.validateSubmission(&normalized); err != nil {
		s.recordRejection(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("lead.is_programmer", normalized.IsProgrammer),
		attribute.Bool("lead.has_utm_source", normalized.UTMSource != nil),
	)

	stored, err := s.leads.Create(ctx, toQualifiedLead(normalized))
	if err != nil {
		status, classified := classifyWriteError(ctx, err)
		metrics.LeadSubmissions.WithLabelValues(status).Inc()
		tracing.Fail(span, status, classified)
		logger.Error("Failed to save qualified lead",
			zap.String("status", status),
			zap.Bool("retryable", apperrors.IsTransient(classified)),
			zap.Error(classified))
		return nil, classified
	}

	metrics.LeadSubmissions.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.String("lead.id", stored.ID))
	logger.Info("Qualified lead captured",
		zap.String("lead_id", stored.ID),
		zap.Bool("is_programmer", stored.IsProgrammer),
		zap.Time("created_at", stored.CreatedAt))

	return stored, nil
}

// TestConnection checks the backend. It reports failures in the result and
// never returns an error.
func (s *LeadService) TestConnection(ctx context.Context) (status models.ConnectionStatus) {
	profiling.Do(ctx, profiling.OperationTestConnection, func(ctx context.Context) {
		status = s.testConnection(ctx)
	})
	return status
}

func (s *LeadService) testConnection(ctx context.Context) models.ConnectionStatus {
	ctx, span := tracing.StartSpan(ctx, "LeadService.TestConnection")
	defer span.End()

	if s.health == nil {
		metrics.ConnectionTests.WithLabelValues("error").Inc()
		return models.ConnectionStatus{
			Success: false,
			Message: connectionFailedMessage + ": connection pool not initialized",
		}
	}

	if err := s.health.HealthCheck(ctx); err != nil {
		metrics.ConnectionTests.WithLabelValues("error").Inc()
		tracing.Fail(span, "unreachable", err)
		logger.Warn("Database connection test failed", zap.Error(err))
		return models.ConnectionStatus{
			Success: false,
			Message: connectionFailedMessage + ": " + err.Error(),
		}
	}

	metrics.ConnectionTests.WithLabelValues("success").Inc()
	return models.ConnectionStatus{
		Success: true,
		Message: connectionOKMessage,
	}
}

func (s *LeadService) recordRejection(span trace.Span, err error) {
	metrics.LeadSubmissions.WithLabelValues("validation_error").Inc()
	tracing.Fail(span, "validation_error", nil)

	var verr *apperrors.ValidationError
	if errors.As(err, &verr) {
		logger.Warn("Lead submission rejected",
			zap.String("field", verr.Field),
			zap.String("reason", verr.Reason))
	}
}

// classifyWriteError maps a repository error onto the error taxonomy and a metrics label
func classifyWriteError(ctx context.Context, err error) (string, error) {
	switch {
	case errors.Is(err, apperrors.ErrPoolExhausted):
		return "pool_exhausted", err
	case errors.Is(err, apperrors.ErrConnectTimeout):
		return "connect_timeout", err
	case errors.Is(err, apperrors.ErrPersistence):
		return "persistence_error", err
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return "cancelled", err
	default:
		return "persistence_error", apperrors.Persistence(err)
	}
}

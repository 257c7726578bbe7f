package services

import (
	"reflect"
	"strings"

	"github.com/devlanding/leads-api/internal/models"
	apperrors "github.com/devlanding/leads-api/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// newLeadValidator reports fields by their JSON names
func newLeadValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// normalizeSubmission trims every field, lower-cases the email and turns empty
// optional fields into nil.
func normalizeSubmission(sub *models.LeadSubmission) models.LeadSubmission {
	return models.LeadSubmission{
		Email:        strings.ToLower(strings.TrimSpace(sub.Email)),
		Phone:        strings.TrimSpace(sub.Phone),
		IsProgrammer: sub.IsProgrammer,
		UTMSource:    nilIfBlank(sub.UTMSource),
		UTMMedium:    nilIfBlank(sub.UTMMedium),
		UTMCampaign:  nilIfBlank(sub.UTMCampaign),
		IPAddress:    nilIfBlank(sub.IPAddress),
		UserAgent:    nilIfBlank(sub.UserAgent),
	}
}

// nilIfBlank returns nil for nil or whitespace-only values
func nilIfBlank(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// validateSubmission returns the first failing field as *errors.ValidationError
func (s *LeadService) validateSubmission(sub *models.LeadSubmission) error {
	err := s.validate.Struct(sub)
	if err == nil {
		return nil
	}

	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return apperrors.InvalidInputError(fe.Field(), getErrorMessage(fe))
	}
	return apperrors.InvalidInputError("submission", err.Error())
}

func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "max":
		return fe.Field() + " must not exceed " + fe.Param() + " characters"
	default:
		return fe.Field() + " is invalid"
	}
}

func toQualifiedLead(sub models.LeadSubmission) *models.QualifiedLead {
	return &models.QualifiedLead{
		Email:        sub.Email,
		Phone:        sub.Phone,
		IsProgrammer: sub.IsProgrammer,
		UTMSource:    sub.UTMSource,
		UTMMedium:    sub.UTMMedium,
		UTMCampaign:  sub.UTMCampaign,
		IPAddress:    sub.IPAddress,
		UserAgent:    sub.UserAgent,
	}
}

package models

import "time"

// LeadSubmission is a candidate lead as posted by the site's intake form.
// Optional fields are pointers: absent (nil) and empty ("") both end up NULL.
type LeadSubmission struct {
	Email        string  `json:"email" validate:"required,max=254,email"`
	Phone        string  `json:"phone" validate:"required,max=32"`
	IsProgrammer bool    `json:"isProgrammer"`
	UTMSource    *string `json:"utmSource,omitempty" validate:"omitempty,max=255"`
	UTMMedium    *string `json:"utmMedium,omitempty" validate:"omitempty,max=255"`
	UTMCampaign  *string `json:"utmCampaign,omitempty" validate:"omitempty,max=255"`
	IPAddress    *string `json:"ipAddress,omitempty" validate:"omitempty,max=64"`
	UserAgent    *string `json:"userAgent,omitempty" validate:"omitempty,max=512"`
}

// QualifiedLead is a persisted lead. ID and CreatedAt are assigned by the
// database; rows are never updated or deleted.
type QualifiedLead struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	IsProgrammer bool      `json:"isProgrammer"`
	UTMSource    *string   `json:"utmSource"`
	UTMMedium    *string   `json:"utmMedium"`
	UTMCampaign  *string   `json:"utmCampaign"`
	IPAddress    *string   `json:"ipAddress"`
	UserAgent    *string   `json:"userAgent"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ConnectionStatus is the outcome of a backend connection test
type ConnectionStatus struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the JSON body for failed lead requests
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

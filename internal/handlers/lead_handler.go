package handlers

import (
	"errors"
	"net/http"

	"github.com/devlanding/leads-api/internal/models"
	"github.com/devlanding/leads-api/internal/services"
	"github.com/gin-gonic/gin"
)

type LeadHandler struct {
	service services.LeadServiceInterface
}

func NewLeadHandler(service services.LeadServiceInterface) *LeadHandler {
	return &LeadHandler{service: service}
}

// SubmitLead handles POST /api/v1/leads
func (h *LeadHandler) SubmitLead(c *gin.Context) {
	var req models.LeadSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondServiceError(c, err)
			return
		}
		respondErrorWithDetails(c, http.StatusBadRequest, "Invalid request", err.Error(), err)
		return
	}

	// Provenance comes from the connection when the form did not send it
	if req.IPAddress == nil || *req.IPAddress == "" {
		if ip := c.ClientIP(); ip != "" {
			req.IPAddress = &ip
		}
	}
	if req.UserAgent == nil || *req.UserAgent == "" {
		if ua := c.Request.UserAgent(); ua != "" {
			req.UserAgent = &ua
		}
	}

	lead, err := h.service.SaveQualifiedLead(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lead)
}

// TestConnection handles GET /api/v1/leads/connection
func (h *LeadHandler) TestConnection(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	status := h.service.TestConnection(c.Request.Context())
	if !status.Success {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}

	c.JSON(http.StatusOK, status)
}

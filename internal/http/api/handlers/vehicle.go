package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carvista/rcview/internal/search"
)

// VehicleHandler exposes the vehicle lookup endpoints.
type VehicleHandler struct {
	svc *search.Service
}

// NewVehicleHandler constructs a VehicleHandler.
func NewVehicleHandler(svc *search.Service) *VehicleHandler {
	return &VehicleHandler{svc: svc}
}

// searchRequest defines the request body for vehicle search and unmask.
type searchRequest struct {
	RegistrationNumber string `json:"registrationNumber"`
}

// Search runs a vehicle lookup for the authenticated user.
//
// Rejections map to 429 (rate/quota) and 400 (bad input). Provider errors
// and "no data" are 200 with success=false: the request itself was handled.
func (h *VehicleHandler) Search(c *gin.Context) {
	var body searchRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "errorMessage": "invalid json"})
		return
	}

	resp := h.svc.Search(c.Request.Context(), actorFrom(c), body.RegistrationNumber)
	switch resp.Outcome {
	case search.OutcomeRateLimited, search.OutcomeQuotaExceeded:
		c.JSON(http.StatusTooManyRequests, resp)
	case search.OutcomeInvalid:
		c.JSON(http.StatusBadRequest, resp)
	default:
		c.JSON(http.StatusOK, resp)
	}
}

// Unmask returns the full registration number after the client confirmed
// the sensitive-data warning. The acknowledgement is audited.
func (h *VehicleHandler) Unmask(c *gin.Context) {
	var body searchRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.RegistrationNumber) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing registration number"})
		return
	}

	full, ok := h.svc.Unmask(c.Request.Context(), actorFrom(c), body.RegistrationNumber)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration number"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"registrationNumber": full})
}

// RateLimit reports the actor's remaining daily allowance.
func (h *VehicleHandler) RateLimit(c *gin.Context) {
	info := h.svc.RateLimitInfo(c.Request.Context(), actorFrom(c))
	c.JSON(http.StatusOK, info)
}

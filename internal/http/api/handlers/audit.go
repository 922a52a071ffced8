package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carvista/rcview/internal/audit"
	"github.com/carvista/rcview/internal/models"
)

// AuditHandler exposes audit history and aggregated search stats.
type AuditHandler struct {
	recorder *audit.Recorder
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(recorder *audit.Recorder) *AuditHandler {
	return &AuditHandler{recorder: recorder}
}

// List returns audit events newest first, paged, optionally filtered by
// action.
func (h *AuditHandler) List(c *gin.Context) {
	page := intQuery(c, "page", 0)
	size := intQuery(c, "size", 50)
	action := models.AuditAction(strings.TrimSpace(c.Query("action")))

	events, total := h.recorder.List(c.Request.Context(), action, page, size)
	out := make([]gin.H, 0, len(events))
	for _, e := range events {
		out = append(out, gin.H{
			"id":         e.ID,
			"actorId":    e.ActorID,
			"actorEmail": e.ActorEmail,
			"action":     e.Action,
			"plate":      e.Plate,
			"fromCache":  e.FromCache,
			"detail":     e.Detail,
			"createdAt":  e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"logs": out, "total": total, "page": page, "size": size})
}

// Stats returns aggregate search activity.
func (h *AuditHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.recorder.SearchStats(c.Request.Context()))
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, errParse := strconv.Atoi(raw)
	if errParse != nil || v < 0 {
		return fallback
	}
	return v
}

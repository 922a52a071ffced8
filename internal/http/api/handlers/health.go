package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	dbutil "github.com/carvista/rcview/internal/db"
)

// HealthHandler reports service liveness and durable store availability.
type HealthHandler struct {
	health *dbutil.Health
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(health *dbutil.Health) *HealthHandler {
	return &HealthHandler{health: health}
}

// Healthz always returns 200; the body says whether the durable store is
// reachable so probes can tell degraded from down. The probe is a live
// ping, so it also recovers a tripped breaker as soon as the database is
// back.
func (h *HealthHandler) Healthz(c *gin.Context) {
	durable := h.health.Ping()
	mode := "ok"
	if !durable {
		mode = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": mode, "durableStore": durable})
}

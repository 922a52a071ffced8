package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carvista/rcview/internal/audit"
	"github.com/carvista/rcview/internal/models"
	"github.com/carvista/rcview/internal/settings"
)

// ConfigHandler exposes the runtime configuration endpoints.
type ConfigHandler struct {
	settings *settings.Store
	recorder *audit.Recorder
}

// NewConfigHandler constructs a ConfigHandler.
func NewConfigHandler(settingsStore *settings.Store, recorder *audit.Recorder) *ConfigHandler {
	return &ConfigHandler{settings: settingsStore, recorder: recorder}
}

func configBody(snap settings.Snapshot) gin.H {
	return gin.H{
		"cacheTtlDays":      snap.CacheTTLDays,
		"burstPerSecond":    snap.BurstPerSecond,
		"dailyQuotaDefault": snap.DailyQuotaDefault,
		"updatedAt":         snap.UpdatedAt,
		"updatedBy":         snap.UpdatedBy,
		"adminConfigured":   snap.AdminConfigured(),
	}
}

// Get returns the current runtime configuration.
func (h *ConfigHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, configBody(h.settings.Snapshot(c.Request.Context())))
}

// updateConfigRequest defines the request body for config updates.
type updateConfigRequest struct {
	CacheTTLDays      int `json:"cacheTtlDays"`
	BurstPerSecond    int `json:"burstPerSecond"`
	DailyQuotaDefault int `json:"dailyQuotaDefault"`
}

// Update saves new runtime configuration values and audits the change.
func (h *ConfigHandler) Update(c *gin.Context) {
	var body updateConfigRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	actorEmail := c.GetString(ContextActorEmail)
	snap, errUpdate := h.settings.Update(c.Request.Context(), body.CacheTTLDays, body.BurstPerSecond, body.DailyQuotaDefault, actorEmail)
	if errUpdate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errUpdate.Error()})
		return
	}

	h.recorder.Record(c.Request.Context(), audit.Event{
		ActorID:    c.GetUint64(ContextActorID),
		ActorEmail: actorEmail,
		Action:     models.ActionConfigUpdated,
		Detail:     "Updated runtime config",
		CreatedAt:  time.Now().UTC(),
	})
	c.JSON(http.StatusOK, configBody(snap))
}

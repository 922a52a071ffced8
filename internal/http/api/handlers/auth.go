package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/carvista/rcview/internal/audit"
	"github.com/carvista/rcview/internal/config"
	dbutil "github.com/carvista/rcview/internal/db"
	"github.com/carvista/rcview/internal/models"
	"github.com/carvista/rcview/internal/security"
)

// AuthHandler manages login and identity endpoints.
type AuthHandler struct {
	db       *gorm.DB
	health   *dbutil.Health
	recorder *audit.Recorder
	jwtCfg   config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, health *dbutil.Health, recorder *audit.Recorder, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, health: health, recorder: recorder, jwtCfg: jwtCfg}
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a token. Credentials live in the
// durable store, so login needs it reachable; already-issued tokens keep
// working without it.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing credentials"})
		return
	}

	if !h.health.Available() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "login unavailable"})
		return
	}

	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error
	if errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			h.health.MarkFailure(errFind)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "login unavailable"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.Active || !security.CheckPassword(user.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	now := time.Now().UTC()
	token, errSign := security.SignUserToken(h.jwtCfg, &user, now)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	h.recorder.Record(c.Request.Context(), audit.Event{
		ActorID:    user.ID,
		ActorEmail: user.Email,
		Action:     models.ActionUserLogin,
		CreatedAt:  now,
	})

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
	})
}

// Me returns the identity carried by the presented token.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"id":    c.GetUint64(ContextActorID),
		"email": c.GetString(ContextActorEmail),
		"role":  c.GetString(ContextActorRole),
	})
}

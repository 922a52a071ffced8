package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/carvista/rcview/internal/audit"
	dbutil "github.com/carvista/rcview/internal/db"
	"github.com/carvista/rcview/internal/models"
	"github.com/carvista/rcview/internal/security"
)

// UserHandler manages user account endpoints. User management always hits
// the durable store; it is not available in degraded mode.
type UserHandler struct {
	db       *gorm.DB
	health   *dbutil.Health
	recorder *audit.Recorder
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, health *dbutil.Health, recorder *audit.Recorder) *UserHandler {
	return &UserHandler{db: db, health: health, recorder: recorder}
}

func (h *UserHandler) requireDurable(c *gin.Context) bool {
	if h.health.Available() {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "user management unavailable"})
	return false
}

func userBody(row models.User) gin.H {
	return gin.H{
		"id":         row.ID,
		"email":      row.Email,
		"name":       row.Name,
		"role":       row.Role,
		"active":     row.Active,
		"created_at": row.CreatedAt,
		"updated_at": row.UpdatedAt,
	}
}

// List returns users with an optional case-insensitive search filter.
func (h *UserHandler) List(c *gin.Context) {
	if !h.requireDurable(c) {
		return
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if searchQ := strings.TrimSpace(c.Query("search")); searchQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+searchQ+"%")
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "email")+" OR "+
				dbutil.CaseInsensitiveLikeExpr(h.db, "name"),
			pattern,
			pattern,
		)
	}

	var rows []models.User
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		h.health.MarkFailure(errFind)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, userBody(row))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// addUserRequest defines the request body for adding a user.
type addUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Add creates a user, or reactivates a previously removed account with the
// same email.
func (h *UserHandler) Add(c *gin.Context) {
	if !h.requireDurable(c) {
		return
	}

	var body addUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing email"})
		return
	}
	password := strings.TrimSpace(body.Password)
	if password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing password"})
		return
	}
	role := strings.TrimSpace(body.Role)
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()

	var user models.User
	errFind := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case errFind == nil:
		if user.Active {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		user.Name = strings.TrimSpace(body.Name)
		user.Password = hash
		user.Role = role
		user.Active = true
		user.UpdatedAt = now
		if errSave := h.db.WithContext(ctx).Save(&user).Error; errSave != nil {
			h.health.MarkFailure(errSave)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
			return
		}
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		user = models.User{
			Email:     email,
			Name:      strings.TrimSpace(body.Name),
			Password:  hash,
			Role:      role,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if errCreate := h.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
			h.health.MarkFailure(errCreate)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
			return
		}
	default:
		h.health.MarkFailure(errFind)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	h.recorder.Record(ctx, audit.Event{
		ActorID:    c.GetUint64(ContextActorID),
		ActorEmail: c.GetString(ContextActorEmail),
		Action:     models.ActionUserAdded,
		Detail:     "Added user " + user.Email,
		CreatedAt:  now,
	})
	c.JSON(http.StatusCreated, userBody(user))
}

// Deactivate marks a user inactive. The row is kept so its audit history
// stays attributable.
func (h *UserHandler) Deactivate(c *gin.Context) {
	if !h.requireDurable(c) {
		return
	}

	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if id == c.GetUint64(ContextActorID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot deactivate yourself"})
		return
	}

	ctx := c.Request.Context()
	var user models.User
	if errFind := h.db.WithContext(ctx).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.health.MarkFailure(errFind)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	res := h.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"active": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		h.health.MarkFailure(res.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deactivate failed"})
		return
	}

	h.recorder.Record(ctx, audit.Event{
		ActorID:    c.GetUint64(ContextActorID),
		ActorEmail: c.GetString(ContextActorEmail),
		Action:     models.ActionUserRemoved,
		Detail:     "Removed user " + user.Email,
		CreatedAt:  time.Now().UTC(),
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// changeRoleRequest defines the request body for role changes.
type changeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeRole updates a user's role.
func (h *UserHandler) ChangeRole(c *gin.Context) {
	if !h.requireDurable(c) {
		return
	}

	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body changeRoleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	role := strings.TrimSpace(body.Role)
	if !models.ValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role"})
		return
	}

	ctx := c.Request.Context()
	var user models.User
	if errFind := h.db.WithContext(ctx).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.health.MarkFailure(errFind)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	res := h.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"role": role, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		h.health.MarkFailure(res.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update role failed"})
		return
	}

	h.recorder.Record(ctx, audit.Event{
		ActorID:    c.GetUint64(ContextActorID),
		ActorEmail: c.GetString(ContextActorEmail),
		Action:     models.ActionUserRoleChanged,
		Detail:     "Changed role of " + user.Email + " from " + user.Role + " to " + role,
		CreatedAt:  time.Now().UTC(),
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

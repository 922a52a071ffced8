// Package api wires the HTTP surface: routes, auth middleware, and
// role gates.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/carvista/rcview/internal/audit"
	"github.com/carvista/rcview/internal/config"
	dbutil "github.com/carvista/rcview/internal/db"
	"github.com/carvista/rcview/internal/http/api/handlers"
	"github.com/carvista/rcview/internal/models"
	"github.com/carvista/rcview/internal/search"
	"github.com/carvista/rcview/internal/security"
	"github.com/carvista/rcview/internal/settings"
)

// RegisterRoutes registers all routes, middleware, and handlers.
func RegisterRoutes(r *gin.Engine, conn *gorm.DB, health *dbutil.Health, settingsStore *settings.Store, recorder *audit.Recorder, svc *search.Service, jwtCfg config.JWTConfig) {
	if r == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(health)
	r.GET("/healthz", healthHandler.Healthz)

	authHandler := handlers.NewAuthHandler(conn, health, recorder, jwtCfg)
	r.POST("/auth/login", authHandler.Login)

	authed := r.Group("")
	authed.Use(userAuthMiddleware(jwtCfg.Secret))
	authed.GET("/auth/me", authHandler.Me)

	vehicleHandler := handlers.NewVehicleHandler(svc)
	authed.POST("/vehicle/search", vehicleHandler.Search)
	authed.POST("/vehicle/unmask", vehicleHandler.Unmask)
	authed.GET("/vehicle/rate-limit", vehicleHandler.RateLimit)

	admin := authed.Group("/admin")
	admin.Use(requireRole(models.RoleAdmin, models.RoleSuperAdmin))

	userHandler := handlers.NewUserHandler(conn, health, recorder)
	admin.GET("/users", userHandler.List)
	admin.POST("/users", userHandler.Add)
	admin.DELETE("/users/:id", userHandler.Deactivate)

	superOnly := admin.Group("")
	superOnly.Use(requireRole(models.RoleSuperAdmin))
	superOnly.PATCH("/users/:id/role", userHandler.ChangeRole)

	configHandler := handlers.NewConfigHandler(settingsStore, recorder)
	admin.GET("/config", configHandler.Get)
	admin.PUT("/config", configHandler.Update)

	auditHandler := handlers.NewAuditHandler(recorder)
	admin.GET("/audit-logs", auditHandler.List)
	admin.GET("/stats", auditHandler.Stats)
}

// userAuthMiddleware validates bearer tokens and loads the actor into the
// request context. Identity comes from the token claims alone, so
// authenticated requests keep working while the database is down.
func userAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseUserToken(secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(handlers.ContextActorID, claims.UserID)
		c.Set(handlers.ContextActorEmail, claims.Email)
		c.Set(handlers.ContextActorRole, claims.Role)
		c.Next()
	}
}

// requireRole rejects requests whose token role is not in the allow list.
func requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(handlers.ContextActorRole)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

// Package handlers implements the HTTP endpoint handlers.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/carvista/rcview/internal/search"
)

// Context keys set by the auth middleware.
const (
	ContextActorID    = "actorID"
	ContextActorEmail = "actorEmail"
	ContextActorRole  = "actorRole"
)

// actorFrom reads the authenticated actor from the request context.
func actorFrom(c *gin.Context) search.Actor {
	return search.Actor{
		ID:    c.GetUint64(ContextActorID),
		Email: c.GetString(ContextActorEmail),
	}
}

// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules implement for route registration.
package http

import (
	"affiliate_portal_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router groups.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared route groups for module registration.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the /api/v1 route group without authentication.
	V1 *gin.RouterGroup
	// Public is /api/v1/public, rate limited per client IP.
	Public *gin.RouterGroup
	// Agent is /api/v1/agent, authenticated and restricted to closers.
	Agent *gin.RouterGroup
	// Admin is /api/v1/admin, authenticated and restricted to admins.
	Admin *gin.RouterGroup
	// Config is the JWT configuration for modules that need scoped auth.
	Config config.JWTConfig
}

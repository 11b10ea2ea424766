// Package partners provides the partner tracking bounded context module.
package partners

import (
	apphttp "affiliate_portal_backend/internal/http"
	"affiliate_portal_backend/internal/partners/handler"
	"affiliate_portal_backend/internal/partners/repository"
	"affiliate_portal_backend/internal/partners/service"
	"affiliate_portal_backend/platform/config"
	"affiliate_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the partners bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the partners module. cooldown may be nil when Redis is not configured.
func NewModule(pool *pgxpool.Pool, cooldown service.Cooldown, cfg config.TrackingConfig, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), cooldown, cfg, log)
	return &Module{handler: handler.New(svc), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "partners"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts partner routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.Public)
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/partners"))
}

var _ apphttp.Module = (*Module)(nil)

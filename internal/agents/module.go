// Package agents provides the closer assignment bounded context module.
package agents

import (
	"affiliate_portal_backend/internal/agents/handler"
	"affiliate_portal_backend/internal/agents/repository"
	"affiliate_portal_backend/internal/agents/service"
	"affiliate_portal_backend/internal/events"
	apphttp "affiliate_portal_backend/internal/http"
	"affiliate_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the agents bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	assigner *service.Assigner
}

// NewModule wires the agents repository, assigner and handler.
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) *Module {
	assigner := service.New(repository.New(pool), bus, log)
	return &Module{handler: handler.New(assigner), assigner: assigner}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "agents"
}

// Assigner is used by appointments and the reconcile job.
func (m *Module) Assigner() *service.Assigner {
	return m.assigner
}

// RegisterRoutes mounts agent administration routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)

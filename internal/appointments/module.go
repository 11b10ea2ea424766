// Package appointments provides the appointments bounded context module.
package appointments

import (
	"affiliate_portal_backend/internal/appointments/handler"
	"affiliate_portal_backend/internal/appointments/repository"
	"affiliate_portal_backend/internal/appointments/service"
	"affiliate_portal_backend/internal/audit"
	apphttp "affiliate_portal_backend/internal/http"
	"affiliate_portal_backend/platform/logger"
	"affiliate_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the appointments bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule wires the appointments repository, service and handler.
func NewModule(pool *pgxpool.Pool, assigner service.Assigner, recorder service.BookingRecorder, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, assigner, recorder, audit.New(pool), log)
	return &Module{handler: handler.New(svc, val), service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "appointments"
}

// Service returns the service layer for the scheduling webhook.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes appointment lookups to attribution diagnostics.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts appointment routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAgentRoutes(ctx.Agent.Group("/appointments"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/appointments"))
}

var _ apphttp.Module = (*Module)(nil)

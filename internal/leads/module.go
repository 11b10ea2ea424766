// Package leads provides the quiz-session bounded context module.
package leads

import (
	apphttp "affiliate_portal_backend/internal/http"
	"affiliate_portal_backend/internal/leads/handler"
	"affiliate_portal_backend/internal/leads/repository"
	"affiliate_portal_backend/internal/leads/service"
	"affiliate_portal_backend/platform/logger"
	"affiliate_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule wires the leads repository, service and handler.
func NewModule(pool *pgxpool.Pool, recorder service.ConversionRecorder, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, recorder, log)
	return &Module{handler: handler.New(svc, val), service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes lead lookups to attribution.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.Public.Group("/leads"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/leads"))
}

var _ apphttp.Module = (*Module)(nil)

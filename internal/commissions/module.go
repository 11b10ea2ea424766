// Package commissions provides the conversion recorder, commission ledger and
// payout bounded context module.
package commissions

import (
	"affiliate_portal_backend/internal/commissions/handler"
	"affiliate_portal_backend/internal/commissions/repository"
	"affiliate_portal_backend/internal/commissions/service"
	"affiliate_portal_backend/internal/events"
	apphttp "affiliate_portal_backend/internal/http"
	"affiliate_portal_backend/platform/logger"
	"affiliate_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the commissions bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	recorder *service.Recorder
	ledger   *service.Ledger
	payouts  *service.Payouts
}

// NewModule wires the commissions repository, services and handler.
func NewModule(pool *pgxpool.Pool, leads service.LeadMatcher, settings service.Settings, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	recorder := service.NewRecorder(repo, leads, settings, bus, log)
	ledger := service.NewLedger(repo, bus, log)
	payouts := service.NewPayouts(repo, settings, bus, log)
	return &Module{
		handler:  handler.New(recorder, ledger, payouts, val),
		recorder: recorder,
		ledger:   ledger,
		payouts:  payouts,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "commissions"
}

// Recorder is used by leads and appointments to record zero-value conversions.
func (m *Module) Recorder() *service.Recorder {
	return m.recorder
}

// Ledger is used by the scheduled release job.
func (m *Module) Ledger() *service.Ledger {
	return m.ledger
}

// RegisterRoutes mounts commission routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAgentRoutes(ctx.Agent)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)

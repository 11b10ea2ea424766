package attribution

import (
	apphttp "affiliate_portal_backend/internal/http"
)

// Module exposes attribution diagnostics. The matcher itself is shared with
// the commission recorder through Service.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule wires the attribution service from its read-side stores.
func NewModule(leads LeadStore, targets TargetReader, anomalies AnomalyLog) *Module {
	svc := NewService(leads, targets, anomalies)
	return &Module{handler: NewHandler(svc), service: svc}
}

func (m *Module) Name() string {
	return "attribution"
}

func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/attribution"))
}

var _ apphttp.Module = (*Module)(nil)

// Package webhook provides the scheduling-provider webhook bounded context module.
package webhook

import (
	apphttp "affiliate_portal_backend/internal/http"
	"affiliate_portal_backend/platform/config"
	"affiliate_portal_backend/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	key     string
}

// NewModule creates and initializes the webhook module.
func NewModule(appointments Appointments, cfg config.WebhookConfig, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(NewService(appointments, log), log),
		key:     cfg.GetSchedulingWebhookSigningKey(),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the provider endpoint. It authenticates by signature, not JWT.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhooks/scheduling", SignatureMiddleware(m.key), m.handler.HandleScheduling)
}

var _ apphttp.Module = (*Module)(nil)

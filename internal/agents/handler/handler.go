package handler

import (
	"net/http"

	"affiliate_portal_backend/internal/agents/service"
	"affiliate_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes assignment administration.
type Handler struct {
	svc *service.Assigner
}

// New creates a new agents handler.
func New(svc *service.Assigner) *Handler {
	return &Handler{svc: svc}
}

// RegisterAdminRoutes mounts admin routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/appointments/reconcile", h.Reconcile)
	rg.GET("/agents/:id", h.Get)
}

func (h *Handler) Reconcile(c *gin.Context) {
	result, err := h.svc.ReconcileUnassigned(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

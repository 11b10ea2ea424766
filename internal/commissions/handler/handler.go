package handler

import (
	"net/http"

	"affiliate_portal_backend/internal/commissions/service"
	"affiliate_portal_backend/internal/commissions/transport"
	"affiliate_portal_backend/platform/httpkit"
	"affiliate_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles outcome marking and the admin ledger endpoints.
type Handler struct {
	recorder *service.Recorder
	ledger   *service.Ledger
	payouts  *service.Payouts
	val      *validator.Validator
}

// New creates a new commissions handler.
func New(recorder *service.Recorder, ledger *service.Ledger, payouts *service.Payouts, val *validator.Validator) *Handler {
	return &Handler{recorder: recorder, ledger: ledger, payouts: payouts, val: val}
}

// RegisterAgentRoutes mounts routes reachable by closers.
func (h *Handler) RegisterAgentRoutes(rg *gin.RouterGroup) {
	rg.POST("/appointments/:id/outcome", h.MarkOutcome)
}

// RegisterAdminRoutes mounts ledger administration.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/appointments/:id/outcome", h.MarkOutcome)
	rg.POST("/payouts", h.RequestPayout)
	rg.POST("/commissions/release", h.ReleaseDue)
	rg.POST("/commissions/:id/release", h.Release)
	rg.GET("/partners/:id/balance", h.Balance)
	rg.GET("/partners/:id/conversions", h.ListConversions)
}

func (h *Handler) MarkOutcome(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.MarkOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.recorder.MarkOutcome(c.Request.Context(), actor(c), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) RequestPayout(c *gin.Context) {
	var req transport.PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if req.PartnerID == uuid.Nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, "partnerId is required")
		return
	}

	result, err := h.payouts.RequestPayout(c.Request.Context(), actor(c), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) ReleaseDue(c *gin.Context) {
	result, err := h.ledger.ReleaseDue(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Release(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.ledger.Release(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Balance(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.ledger.Balance(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) ListConversions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.ledger.ListConversions(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": result})
}

// actor resolves the caller. Admin wins when both roles are present.
func actor(c *gin.Context) service.Actor {
	id := httpkit.GetIdentity(c)
	role := httpkit.RoleAgent
	if id.HasRole(httpkit.RoleAdmin) {
		role = httpkit.RoleAdmin
	}
	return service.Actor{ID: id.UserID(), Role: role}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

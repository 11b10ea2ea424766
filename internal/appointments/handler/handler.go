package handler

import (
	"net/http"

	"affiliate_portal_backend/internal/appointments/domain"
	"affiliate_portal_backend/internal/appointments/service"
	"affiliate_portal_backend/internal/appointments/transport"
	"affiliate_portal_backend/platform/httpkit"
	"affiliate_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for appointments.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new appointments handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterAgentRoutes mounts the closer work queue.
func (h *Handler) RegisterAgentRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListMine)
}

// RegisterAdminRoutes mounts manual booking and the activity timeline.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreateBooking)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/timeline", h.Timeline)
}

func (h *Handler) ListMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	var req transport.ListAppointmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.ListForAgent(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	var req transport.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	userID := identity.UserID()
	result, err := h.svc.CreateBooking(c.Request.Context(), service.Actor{ID: &userID, Role: httpkit.RoleAdmin}, domain.Booking{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		ScheduledAt:   req.ScheduledAt,
		EndsAt:        req.EndsAt,
		ReferralCode:  req.ReferralCode,
		UTMSource:     req.UTMSource,
		UTMMedium:     req.UTMMedium,
		UTMCampaign:   req.UTMCampaign,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Timeline(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	result, err := h.svc.Timeline(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

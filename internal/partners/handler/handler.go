package handler

import (
	"net/http"

	"affiliate_portal_backend/internal/partners/service"
	"affiliate_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const trackingCookie = "rac_ref"

// Handler handles partner tracking and admin partner lookups.
type Handler struct {
	svc *service.Service
}

// New creates a new partners handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the tracking endpoint.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/track/:code", h.Track)
}

// RegisterAdminRoutes mounts partner lookups.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.GetByID)
}

// Track records the click and hands the canonical tracking code back to the
// browser in a cookie that the quiz flow forwards on lead start.
func (h *Handler) Track(c *gin.Context) {
	result, err := h.svc.TrackClick(c.Request.Context(), service.ClickInput{
		Code:        c.Param("code"),
		UserAgent:   c.Request.UserAgent(),
		ClientIP:    c.ClientIP(),
		LandingPath: c.Query("landing"),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(trackingCookie, result.TrackingCode, 30*24*60*60, "/", "", c.Request.TLS != nil, true)
	httpkit.OK(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

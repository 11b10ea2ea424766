package attribution

import (
	"net/http"
	"strconv"

	"affiliate_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes attribution diagnostics to admins.
type Handler struct {
	svc *Service
}

// NewHandler creates an attribution handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts diagnostics under an admin group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/appointments/:id", h.Diagnose)
	rg.GET("/anomalies", h.ListAnomalies)
}

type diagnosisResponse struct {
	Diagnosis
	Issue *httpkit.ErrorResponse `json:"issue,omitempty"`
}

func (h *Handler) Diagnose(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	result, err := h.svc.Diagnose(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	resp := diagnosisResponse{Diagnosis: result}
	if result.Anomaly != nil {
		issue := httpkit.ErrorBody(result.Anomaly.Err())
		resp.Issue = &issue
	}
	httpkit.OK(c, resp)
}

func (h *Handler) ListAnomalies(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	result, err := h.svc.ListAnomalies(c.Request.Context(), limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": result})
}

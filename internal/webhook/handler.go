package webhook

import (
	"errors"
	"io"
	"net/http"

	"affiliate_portal_backend/platform/httpkit"
	"affiliate_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Handler receives scheduling-provider deliveries.
type Handler struct {
	svc *Service
	log *logger.Logger
}

func NewHandler(svc *Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// HandleScheduling processes a delivery. Processing failures are logged and
// still acknowledged so the provider does not retry into a partial state.
func (h *Handler) HandleScheduling(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	evt, err := Parse(body)
	if errors.Is(err, ErrMalformedPayload) {
		httpkit.Error(c, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}

	ctx := c.Request.Context()
	result, err := h.svc.Process(ctx, evt)
	if err != nil {
		h.log.WithContext(ctx).Error("webhook processing failed", "event", evt.Name(), "error", err)
		httpkit.OK(c, gin.H{"event": evt.Name(), "handled": false})
		return
	}
	httpkit.OK(c, result)
}

package api

import (
	"errors"
	"io"
	"net/http"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/verify"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// receiveWebhook passes the exact request bytes to the webhook pipeline.
// Every handled outcome is acknowledged with 200 so the provider stops retrying.
func (h *Handler) receiveWebhook(c *gin.Context) {
	provider := models.Provider(c.Param("provider"))

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	headers := verify.TransportHeaders{
		Header: c.Request.Header,
		Query:  c.Request.URL.Query(),
	}

	result, err := h.webhooks.HandleDelivery(c.Request.Context(), provider, body, headers)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Debug("Webhook acknowledged",
		zap.String("provider", string(provider)),
		zap.String("outcome", string(result.Outcome)))

	resp := gin.H{
		"status":  "accepted",
		"outcome": result.Outcome,
	}
	if result.OrderID != "" {
		resp["order_id"] = result.OrderID
	}
	c.JSON(http.StatusOK, resp)
}

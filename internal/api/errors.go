package api

import (
	"errors"
	"net/http"

	"reconciliation-service/internal/parser"
	"reconciliation-service/internal/service"
	"reconciliation-service/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps domain errors to an HTTP status and a public message.
// Verification details never leave the process.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid signature"
	case errors.Is(err, parser.ErrMalformedPayload):
		return http.StatusBadRequest, "malformed payload"
	case errors.Is(err, service.ErrUnknownProvider), errors.Is(err, parser.ErrUnsupportedProvider):
		return http.StatusNotFound, "unknown provider"
	case errors.Is(err, store.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, store.ErrAnomalyNotFound):
		return http.StatusNotFound, "anomaly not found"
	case errors.Is(err, service.ErrInvalidStatus):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrNoReplayBody):
		return http.StatusUnprocessableEntity, "anomaly has no stored delivery"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": message})
}

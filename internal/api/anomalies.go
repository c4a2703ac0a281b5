package api

import (
	"net/http"
	"strconv"

	"reconciliation-service/internal/models"

	"github.com/gin-gonic/gin"
)

type replayRequest struct {
	RequestedBy string `json:"requested_by"`
}

// listAnomalies handles GET /anomalies?kind=&provider=&include_resolved=&limit=
func (h *Handler) listAnomalies(c *gin.Context) {
	filter := models.AnomalyFilter{
		Kind:     models.AnomalyKind(c.Query("kind")),
		Provider: models.Provider(c.Query("provider")),
	}
	if v := c.Query("include_resolved"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid include_resolved"})
			return
		}
		filter.IncludeResolved = include
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		filter.Limit = limit
	}

	anomalies, err := h.anomalies.ListAnomalies(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}

	c.JSON(http.StatusOK, gin.H{
		"anomalies": anomalies,
		"count":     len(anomalies),
	})
}

func (h *Handler) getAnomaly(c *gin.Context) {
	anomaly, err := h.anomalies.GetAnomaly(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, anomaly)
}

// replayAnomaly queues a stored delivery for another reconciliation attempt
func (h *Handler) replayAnomaly(c *gin.Context) {
	var req replayRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
			return
		}
	}
	if req.RequestedBy == "" {
		req.RequestedBy = c.GetHeader("X-Actor")
	}

	id := c.Param("id")
	if err := h.anomalies.RequestReplay(c.Request.Context(), id, req.RequestedBy); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":     "replay requested",
		"anomaly_id": id,
	})
}

func (h *Handler) resolveAnomaly(c *gin.Context) {
	id := c.Param("id")
	if err := h.anomalies.ResolveAnomaly(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "resolved",
		"anomaly_id": id,
	})
}

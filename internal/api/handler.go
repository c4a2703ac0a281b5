package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/service"
	"reconciliation-service/internal/util"
	"reconciliation-service/internal/verify"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// WebhookProcessor handles one provider delivery
type WebhookProcessor interface {
	HandleDelivery(ctx context.Context, provider models.Provider, rawBody []byte, headers verify.TransportHeaders) (*service.Result, error)
}

// OrderManager serves the operator view of orders
type OrderManager interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	UpdateFulfillmentStatus(ctx context.Context, orderID string, req service.UpdateStatusRequest) (*models.Order, error)
}

// AnomalyManager serves the operator view of anomalies
type AnomalyManager interface {
	ListAnomalies(ctx context.Context, filter models.AnomalyFilter) ([]models.Anomaly, error)
	GetAnomaly(ctx context.Context, id string) (*models.Anomaly, error)
	ResolveAnomaly(ctx context.Context, id string) error
	RequestReplay(ctx context.Context, id, requestedBy string) error
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	webhooks  WebhookProcessor
	orders    OrderManager
	anomalies AnomalyManager
	store     Pinger
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(webhooks WebhookProcessor, orders OrderManager, anomalies AnomalyManager, store Pinger) *Handler {
	return &Handler{
		webhooks:  webhooks,
		orders:    orders,
		anomalies: anomalies,
		store:     store,
		logger:    util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhooks/:provider", h.receiveWebhook)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", h.updateOrderStatus)

		v1.GET("/anomalies", h.listAnomalies)
		v1.GET("/anomalies/:id", h.getAnomaly)
		v1.POST("/anomalies/:id/replay", h.replayAnomaly)
		v1.POST("/anomalies/:id/resolve", h.resolveAnomaly)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the store answers
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"time":   time.Now().Unix(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// updateOrderStatus handles a dashboard fulfillment status change
func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if req.Actor == "" {
		req.Actor = c.GetHeader("X-Actor")
	}

	order, err := h.orders.UpdateFulfillmentStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

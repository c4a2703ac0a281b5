package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reconciliation-service/config"
	"reconciliation-service/internal/api"
	"reconciliation-service/internal/bootstrap"
	"reconciliation-service/internal/broker"
	"reconciliation-service/internal/models"
	"reconciliation-service/internal/redisclient"
	"reconciliation-service/internal/service"
	"reconciliation-service/internal/util"
	"reconciliation-service/internal/verify"
	"reconciliation-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting reconciliation service")

	tp, err := util.InitTracer("reconciliation-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	ctx := context.Background()

	db, closeStore, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer closeStore()
	logger.Info("Store connected", zap.String("driver", cfg.Store.Driver))

	// Redis only backs caches and locks; the store stays the source of truth.
	var (
		deliveries service.DeliveryCache
		tokenCache verify.TokenCache
		locker     worker.Locker
	)
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, running without delivery cache", zap.Error(err))
	} else {
		defer redisClient.Close()
		deliveries = redisClient
		tokenCache = redisClient
		locker = redisClient
		logger.Info("Redis connected")
	}

	notifyProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications)
	defer notifyProducer.Close()
	replayProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicReplays)
	defer replayProducer.Close()
	logger.Info("Kafka producers initialized")

	parsers := bootstrap.Parsers(cfg)

	notifications := service.NewNotificationHook(broker.NewNotificationPublisher(notifyProducer), cfg.Webhooks.NotifyTimeout)
	reconciler := service.NewReconciler(db, db, cfg.Webhooks.MaxApplyAttempts,
		service.NewMetricsHook(), notifications)

	webhookService := service.NewWebhookService(parsers, reconciler, deliveries, cfg.Webhooks.DeliveryCacheTTL)
	registerProviders(cfg, webhookService, tokenCache)

	orderService := service.NewOrderService(db, cfg.Webhooks.MaxApplyAttempts)
	anomalyService := service.NewAnomalyService(db, parsers, reconciler, broker.NewReplayPublisher(replayProducer))

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	replayConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicReplays, cfg.Kafka.ConsumerGroup)
	replayWorker := worker.NewReplayWorker(replayConsumer, anomalyService, locker)
	go func() {
		if err := replayWorker.Start(workerCtx); err != nil {
			logger.Error("Replay worker error", zap.Error(err))
		}
	}()

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(webhookService, orderService, anomalyService, db)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	replayWorker.Stop()
	notifications.Wait()

	logger.Info("Server exited")
}

// registerProviders enables each provider that has a parser, with its verifier and secret
func registerProviders(cfg *config.Config, webhooks *service.WebhookService, tokenCache verify.TokenCache) {
	logger := util.GetLogger()

	if cfg.Webhooks.SkipVerification {
		for _, p := range []models.Provider{models.ProviderPayPal, models.ProviderStripe, models.ProviderMercadoPago} {
			webhooks.RegisterProvider(p, verify.NewBypassVerifier(string(p)), "")
		}
		return
	}

	tokens := verify.NewPayPalTokenSource(cfg.PayPal.APIBase(), cfg.PayPal.ClientID, cfg.PayPal.ClientSecret, tokenCache)
	webhooks.RegisterProvider(models.ProviderPayPal,
		verify.NewPayPalVerifier(cfg.PayPal.APIBase(), tokens, cfg.Webhooks.VerifyTimeout),
		cfg.PayPal.WebhookID)
	webhooks.RegisterProvider(models.ProviderStripe,
		verify.NewStripeVerifier(cfg.Stripe.Tolerance),
		cfg.Stripe.WebhookSecret)
	webhooks.RegisterProvider(models.ProviderMercadoPago,
		verify.NewMercadoPagoVerifier(),
		cfg.MercadoPago.WebhookSecret)

	for _, missing := range []struct {
		provider models.Provider
		secret   string
	}{
		{models.ProviderPayPal, cfg.PayPal.WebhookID},
		{models.ProviderStripe, cfg.Stripe.WebhookSecret},
		{models.ProviderMercadoPago, cfg.MercadoPago.WebhookSecret},
	} {
		if missing.secret == "" {
			logger.Warn("Webhook secret not configured, deliveries will be rejected",
				zap.String("provider", string(missing.provider)))
		}
	}
}

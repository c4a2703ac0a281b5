package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhooks_received_total",
		Help: "Total number of webhook deliveries received",
	}, []string{"provider"})

	WebhookSignatureFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_signature_failures_total",
		Help: "Total number of webhook deliveries rejected by signature verification",
	}, []string{"provider"})

	WebhookParseFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_parse_failures_total",
		Help: "Total number of webhook deliveries with malformed bodies",
	}, []string{"provider"})

	WebhookDuplicatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_duplicates_total",
		Help: "Total number of deliveries short-circuited by the delivery cache",
	}, []string{"provider"})

	SignatureVerifyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signature_verify_latency_seconds",
		Help:    "Latency of webhook signature verification",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	ReconcileOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_outcomes_total",
		Help: "Total number of reconciled events by outcome",
	}, []string{"provider", "event_type", "outcome"})

	PaymentTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transitions_total",
		Help: "Total number of committed payment status transitions",
	}, []string{"from", "to"})

	StoreConflictRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "store_conflict_retries_total",
		Help: "Total number of re-evaluations after a lost compare-and-swap",
	})

	AnomaliesRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anomalies_recorded_total",
		Help: "Total number of anomalies escalated for manual reconciliation",
	}, []string{"kind"})

	NotificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of order notifications published",
	})

	NotificationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of order notifications that could not be published",
	})

	ReplaysProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "replays_processed_total",
		Help: "Total number of anomaly replays processed",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

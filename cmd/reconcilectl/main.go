package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"reconciliation-service/config"
	"reconciliation-service/internal/bootstrap"
	"reconciliation-service/internal/service"
	"reconciliation-service/internal/util"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "reconcilectl",
		Short:   "Operator tool for the payment reconciliation store",
		Version: Version,
	}

	rootCmd.AddCommand(anomaliesCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(ordersCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the services a command runs against
type app struct {
	store     bootstrap.Backend
	orders    *service.OrderService
	anomalies *service.AnomalyService
	close     func() error
}

// openApp connects to the configured store. Replays run inline, without Kafka.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, closeStore, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reconciler := service.NewReconciler(db, db, cfg.Webhooks.MaxApplyAttempts, service.NewMetricsHook())
	return &app{
		store:     db,
		orders:    service.NewOrderService(db, cfg.Webhooks.MaxApplyAttempts),
		anomalies: service.NewAnomalyService(db, bootstrap.Parsers(cfg), reconciler, nil),
		close: func() error {
			util.SyncLogger()
			return closeStore()
		},
	}, nil
}

// withApp runs fn against a freshly opened app and closes it afterwards
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Package bootstrap builds the components shared by the server and the operator CLI.
package bootstrap

import (
	"context"
	"fmt"

	"reconciliation-service/config"
	"reconciliation-service/internal/gateway"
	"reconciliation-service/internal/models"
	"reconciliation-service/internal/parser"
	"reconciliation-service/internal/service"
	"reconciliation-service/internal/store"
	"reconciliation-service/internal/store/dynamo"
	"reconciliation-service/internal/util"

	"go.uber.org/zap"
)

// Backend is what both store drivers provide
type Backend interface {
	service.OrderStore
	service.AnomalyStore
	CreateOrder(ctx context.Context, order *models.Order) error
	Ping(ctx context.Context) error
}

// OpenStore connects the driver selected by STORE_DRIVER. The returned func releases it.
func OpenStore(ctx context.Context, cfg *config.Config) (Backend, func() error, error) {
	switch cfg.Store.Driver {
	case "postgres", "":
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, db.Close, nil
	case "dynamodb":
		client, err := dynamo.NewClient(ctx, cfg.Dynamo.Region, cfg.Dynamo.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		return dynamo.NewStore(client, cfg.Dynamo.TablePrefix), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Parsers registers a parser for every provider that can be served with cfg.
// MercadoPago needs API access to resolve notifications and is left out without a token.
func Parsers(cfg *config.Config) *parser.Registry {
	registry := parser.NewRegistry()
	registry.Register(models.ProviderPayPal, parser.NewPayPalParser())
	registry.Register(models.ProviderStripe, parser.NewStripeParser())

	mp, err := gateway.NewMercadoPagoGateway(cfg.MercadoPago.AccessToken)
	if err != nil {
		util.GetLogger().Warn("MercadoPago webhooks disabled", zap.Error(err))
		return registry
	}
	registry.Register(models.ProviderMercadoPago, parser.NewMercadoPagoParser(mp))
	return registry
}

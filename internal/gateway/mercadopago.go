package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"reconciliation-service/internal/parser"
	"reconciliation-service/internal/util"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"go.uber.org/zap"
)

var ErrMissingMercadoPagoAccessToken = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")

// MercadoPagoGateway reads payment state from the MercadoPago API
type MercadoPagoGateway struct {
	client payment.Client
	logger *zap.Logger
}

// NewMercadoPagoGateway creates a new gateway
func NewMercadoPagoGateway(accessToken string) (*MercadoPagoGateway, error) {
	if accessToken == "" {
		return nil, ErrMissingMercadoPagoAccessToken
	}

	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create mercadopago config: %w", err)
	}

	return newMercadoPagoGateway(payment.NewClient(cfg)), nil
}

func newMercadoPagoGateway(client payment.Client) *MercadoPagoGateway {
	return &MercadoPagoGateway{
		client: client,
		logger: util.GetLogger(),
	}
}

// GetPayment implements parser.PaymentLookup
func (g *MercadoPagoGateway) GetPayment(ctx context.Context, paymentID string) (*parser.MercadoPagoPayment, error) {
	ctx, span := util.StartSpan(ctx, "MercadoPagoGateway.GetPayment")
	defer span.End()

	id, err := strconv.Atoi(paymentID)
	if err != nil {
		return nil, fmt.Errorf("invalid payment id %q: %w", paymentID, err)
	}

	resp, err := g.client.Get(ctx, id)
	if err != nil {
		util.EndSpan(span, err)
		g.logger.Error("MercadoPago payment lookup failed",
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment: %w", err)
	}

	g.logger.Debug("MercadoPago payment fetched",
		zap.String("payment_id", paymentID),
		zap.String("status", resp.Status),
		zap.String("status_detail", resp.StatusDetail))

	return &parser.MercadoPagoPayment{
		ID:                strconv.Itoa(resp.ID),
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		Amount:            formatAmount(resp.TransactionAmount),
		AmountRefunded:    formatAmount(resp.TransactionAmountRefunded),
		Currency:          resp.CurrencyID,
		Raw:               raw,
	}, nil
}

func formatAmount(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

package main

import (
	"context"
	"fmt"

	"reconciliation-service/internal/models"

	"github.com/spf13/cobra"
)

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and seed orders",
	}

	cmd.AddCommand(ordersShowCmd())
	cmd.AddCommand(ordersSeedCmd())

	return cmd
}

func ordersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show an order with its payment metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				order, err := a.orders.GetOrder(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, order)
			})
		},
	}
}

func ordersSeedCmd() *cobra.Command {
	var (
		orderNumber string
		paymentID   string
		captureID   string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a pending order, as checkout would, for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if orderNumber == "" && paymentID == "" && captureID == "" {
				return fmt.Errorf("at least one of --order-number, --payment-id or --capture-id is required")
			}

			order := &models.Order{OrderNumber: orderNumber}
			if paymentID != "" {
				order.Metadata.CorrelationKeys = append(order.Metadata.CorrelationKeys,
					models.CorrelationKey{Kind: models.KeyPaymentID, Value: paymentID})
			}
			if captureID != "" {
				order.Metadata.CorrelationKeys = append(order.Metadata.CorrelationKeys,
					models.CorrelationKey{Kind: models.KeyCaptureID, Value: captureID})
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.store.CreateOrder(ctx, order); err != nil {
					return err
				}
				return printJSON(cmd, order)
			})
		},
	}

	cmd.Flags().StringVar(&orderNumber, "order-number", "", "Merchant order number sent to the provider")
	cmd.Flags().StringVar(&paymentID, "payment-id", "", "Provider payment id returned at checkout")
	cmd.Flags().StringVar(&captureID, "capture-id", "", "Provider capture id")

	return cmd
}

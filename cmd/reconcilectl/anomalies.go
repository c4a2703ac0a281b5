package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"reconciliation-service/internal/models"

	"github.com/spf13/cobra"
)

func anomaliesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "Inspect events escalated for manual reconciliation",
	}

	cmd.AddCommand(anomaliesListCmd())
	cmd.AddCommand(anomaliesShowCmd())
	cmd.AddCommand(anomaliesResolveCmd())

	return cmd
}

func anomaliesListCmd() *cobra.Command {
	var (
		kind     string
		provider string
		all      bool
		limit    int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open anomalies, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				anomalies, err := a.anomalies.ListAnomalies(ctx, models.AnomalyFilter{
					Kind:            models.AnomalyKind(kind),
					Provider:        models.Provider(provider),
					IncludeResolved: all,
					Limit:           limit,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd, anomalies)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tKIND\tPROVIDER\tEVENT\tTYPE\tCREATED\tRESOLVED")
				for _, an := range anomalies {
					resolved := "-"
					if an.ResolvedAt != nil {
						resolved = an.ResolvedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						an.ID, an.Kind, an.Provider, an.EventID, an.EventType,
						an.CreatedAt.Format(time.RFC3339), resolved)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Filter by kind (unmatched_order, ambiguous_order, transition_conflict)")
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "Filter by provider")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include resolved anomalies")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum results")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}

func anomaliesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show one anomaly with its stored delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				anomaly, err := a.anomalies.GetAnomaly(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, anomaly)
			})
		},
	}
}

func anomaliesResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [id]",
		Short: "Mark an anomaly as handled by hand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.anomalies.ResolveAnomaly(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Resolved %s\n", args[0])
				return nil
			})
		},
	}
}

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay [anomaly-id]",
		Short: "Reconcile an anomaly's stored delivery again",
		Long: `Replay parses the delivery stored with the anomaly and runs it through
the reconciler. Signatures are not checked again. The anomaly is resolved
when the replay reaches a final outcome.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.anomalies.Replay(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Outcome: %s\n", result.Outcome)
				if result.OrderID != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Order:   %s\n", result.OrderID)
				}
				if result.Reason != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Reason:  %s\n", result.Reason)
				}
				return nil
			})
		},
	}
}

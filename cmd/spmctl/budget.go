package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"spm/internal/derived"
	"spm/internal/events"
	"spm/internal/model"
	"spm/internal/notice"
)

func budgetNoticeCmd(g *globalFlags) *cobra.Command {
	var (
		requestPath string
		force       bool
	)
	cmd := &cobra.Command{
		Use:   "budget-notice",
		Short: "Tell the requester a request exceeds the available budget",
		Long: `Budget-notice recomputes the budget balance of a request from its
analysis. When the balance is negative, or --force is given, it sends a
direct message to the requester and flags the request status. Both calls
are attempted and reported individually.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(requestPath)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()
			return runBudgetNotice(cmd.Context(), a, req, force, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&requestPath, "request", "r", "", "Request record (JSON)")
	cmd.Flags().BoolVar(&force, "force", false, "Send even when the budget is sufficient")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

func runBudgetNotice(ctx context.Context, a *app, req model.Request, force bool, out io.Writer) error {
	analysis, err := a.client.AnalyzeRequest(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("analyze request %d: %w", req.ID, err)
	}
	bal := derived.Budget(req.Items, analysis.Summary)
	printBudget(out, bal)
	if bal.Sufficient && !force {
		fmt.Fprintln(out, "sin aviso: el presupuesto alcanza")
		return nil
	}

	results, err := notice.InsufficientBudget(ctx, a.client, req, bal)
	printResults(out, results)
	a.metrics.BudgetNotices.Inc()
	a.record(ctx, events.TypeBudgetNotice, req.ID, map[string]any{
		"costo":      bal.Cost.String(),
		"disponible": bal.Available.String(),
		"saldo":      bal.Balance.String(),
		"fallidas":   len(notice.Failed(results)),
	})
	return err
}

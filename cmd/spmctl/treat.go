package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"spm/internal/model"
	"spm/internal/wizard"
)

func treatCmd(g *globalFlags) *cobra.Command {
	var requestPath, planPath string
	cmd := &cobra.Command{
		Use:   "treat",
		Short: "Run the treatment wizard for one request",
		Long: `Treat loads the analysis of a request, applies the decisions of a plan
file item by item and then submits, rejects or asks the requester for
information. Decisions are saved as a draft after every selection, so an
interrupted or incomplete run resumes where it stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(requestPath)
			if err != nil {
				return err
			}
			plan, err := loadPlan(planPath)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					a.logger.Warn("close failed", slog.String("error", err.Error()))
				}
			}()
			return runTreat(cmd.Context(), a, req, plan, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&requestPath, "request", "r", "", "Request record (JSON)")
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Plan file (YAML)")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

// runTreat drives a wizard for req through plan.
func runTreat(ctx context.Context, a *app, req model.Request, plan Plan, out io.Writer) error {
	w := wizard.New(a.client, a.drafts,
		wizard.WithLogger(a.logger),
		wizard.WithMetrics(a.metrics),
		wizard.WithJournal(a.journal),
		wizard.WithSession(a.session),
		wizard.WithAllowList(a.allow),
		wizard.WithOnComplete(func(c wizard.Completion) {
			fmt.Fprintf(out, "\nsolicitud #%d: %s\n", c.RequestID, c.Outcome)
		}),
	)
	defer w.Close()

	if err := w.Open(ctx, req); err != nil {
		return err
	}
	av, err := w.AnalysisView()
	if err != nil {
		return err
	}
	printAnalysis(out, req.ID, av)

	switch plan.Action {
	case ActionReject:
		return w.Reject(ctx, plan.Reason)
	case ActionInfo:
		results, err := w.RequestInfo(ctx, plan.Message)
		printResults(out, results)
		return err
	}

	if err := w.Continue(ctx); err != nil {
		return err
	}
	filter, _ := wizard.ParseFilter(plan.Filter)
	total := len(w.State().ItemIndices)
	for i := 0; i < total; i++ {
		if err := decideCurrent(ctx, w, plan, filter, out); err != nil {
			return err
		}
		if i < total-1 {
			if err := w.Next(ctx); err != nil {
				return err
			}
		}
	}

	if err := w.AdvanceToReview(); err != nil {
		var werr *wizard.Error
		if errors.As(err, &werr) && werr.Remaining > 0 {
			fmt.Fprintf(out, "\n%s; el borrador queda guardado\n", werr.Message)
		}
		return err
	}
	rv, err := w.ReviewView()
	if err != nil {
		return err
	}
	printReview(out, rv)
	if plan.Action == ActionReview {
		fmt.Fprintln(out, "\nrevisión lista; el borrador queda guardado")
		return nil
	}
	return w.Submit(ctx)
}

// decideCurrent renders the item under the cursor and applies the plan's
// choice for it. A failed options load is retried once.
func decideCurrent(ctx context.Context, w *wizard.Wizard, plan Plan, filter wizard.OptionFilter, out io.Writer) error {
	v, err := w.SourcingView(filter)
	if err != nil {
		return err
	}
	if v.OptionsError != "" {
		_ = w.FetchOptions(ctx, v.Item.ItemIndex)
		if v, err = w.SourcingView(filter); err != nil {
			return err
		}
	}
	printSourcing(out, v)
	if v.OptionsError != "" {
		if _, planned := plan.Decisions[v.Item.ItemIndex]; planned {
			return fmt.Errorf("item %d: %s", v.Item.ItemIndex, v.OptionsError)
		}
		return nil
	}

	all, err := w.SourcingView(wizard.FilterAll)
	if err != nil {
		return err
	}
	opts := make([]model.SourcingOption, 0, len(all.Options))
	for _, row := range all.Options {
		opts = append(opts, row.Option)
	}
	opt, ok, err := plan.choose(v.Item.ItemIndex, opts)
	if err != nil || !ok {
		return err
	}
	fmt.Fprintf(out, "  -> %s (%s)\n", opt.ID, opt.Name)
	return w.SelectCurrent(opt.ID)
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"spm/internal/derived"
	"spm/internal/notice"
	"spm/internal/wizard"
)

func printAnalysis(out io.Writer, requestID int64, v wizard.AnalysisView) {
	fmt.Fprintf(out, "Solicitud #%d: análisis\n", requestID)
	printBudget(out, v.Budget)
	if len(v.Conflicts) > 0 {
		fmt.Fprintf(out, "Conflictos (%d críticos):\n", v.CriticalConflicts)
		for _, c := range v.Conflicts {
			mark := " "
			if c.Critical {
				mark = "!"
			}
			fmt.Fprintf(out, "  %s %s: %s\n", mark, c.Type, c.Description)
		}
	}
	for _, r := range v.Recommendations {
		fmt.Fprintf(out, "  [%d] %s\n", r.Priority, r.Action)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tCÓDIGO\tCANT\tCRITICIDAD\tSTOCK\tMRP")
	for _, group := range [][]wizard.ItemRow{v.Critical, v.Normal, v.Low} {
		for _, r := range group {
			mrp := "-"
			if r.MRP.Planned {
				mrp = derived.FormatQuantity(r.MRP.Total)
				if r.MRP.Warn {
					mrp += " (bajo punto de pedido)"
				}
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ItemIndex, r.Code, derived.FormatQuantity(r.Quantity), r.Criticality, r.Stock.Text, mrp)
		}
	}
	_ = tw.Flush()
}

func printBudget(out io.Writer, b derived.BudgetBalance) {
	state := "suficiente"
	if !b.Sufficient {
		state = "insuficiente"
	}
	fmt.Fprintf(out, "Presupuesto: disponible %s, costo %s (%s), saldo %s: %s\n",
		b.Available.StringFixed(2), b.Cost.StringFixed(2), b.Source, b.Balance.StringFixed(2), state)
}

func printSourcing(out io.Writer, v wizard.SourcingView) {
	fmt.Fprintf(out, "\nÍtem %d/%d: #%d %s %s x%s [%s]\n", v.Position+1, v.Total, v.Item.ItemIndex,
		v.Item.Code, v.Item.Description, derived.FormatQuantity(v.Item.Quantity), v.Item.Stock.Text)
	if v.OptionsError != "" {
		fmt.Fprintf(out, "  error: %s\n", v.OptionsError)
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  \tID\tTIPO\tNOMBRE\tPRECIO\tPLAZO\tSCORE\tUBICACIONES")
	for _, row := range v.Options {
		mark := " "
		switch {
		case row.Selected:
			mark = "*"
		case row.Option.Recommended:
			mark = "+"
		}
		locs := ""
		for i, l := range row.Locations {
			if i > 0 {
				locs += ", "
			}
			locs += fmt.Sprintf("%s:%s", l.Warehouse, derived.FormatQuantity(l.Quantity))
		}
		if row.OtherLocations > 0 {
			locs += fmt.Sprintf(" (+%d)", row.OtherLocations)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%.2f\t%dd\t%.0f\t%s\n", mark, row.Option.ID, row.Option.Type,
			row.Option.Name, row.Option.UnitPrice, row.Option.LeadTimeDays, row.Option.RecommendationScore, locs)
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "  decididos %d, pendientes %d\n", v.Decided, v.Remaining)
}

func printReview(out io.Writer, v wizard.ReviewView) {
	fmt.Fprintln(out, "\nRevisión final")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tCÓDIGO\tDECISIÓN\tCANT\tPRECIO\tTOTAL")
	for _, e := range v.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s %s\t%s\t%.2f\t%s\n", e.Item.ItemIndex, e.Item.Code, e.Option.Type, e.Option.ID,
			derived.FormatQuantity(e.ApprovedQuantity), e.Option.UnitPrice, e.LineTotal.StringFixed(2))
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "Total %s de %s disponibles\n", v.Total.StringFixed(2), v.Available.StringFixed(2))
}

func printResults(out io.Writer, results []notice.Result) {
	for _, r := range results {
		if r.OK() {
			fmt.Fprintf(out, "  %s: ok\n", r.Op)
			continue
		}
		fmt.Fprintf(out, "  %s: %v\n", r.Op, r.Err)
	}
}

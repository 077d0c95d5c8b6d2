// Package notice runs best-effort side flows: several independent backend
// calls that are all attempted and reported one by one, with no rollback.
package notice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spm/internal/backend"
	"spm/internal/derived"
	"spm/internal/model"
)

// Op is one named operation of a side flow.
type Op struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result is the outcome of one Op.
type Result struct {
	Op  string
	Err error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Fanout runs every op in order, regardless of earlier failures, and returns
// one result per op plus the joined failures.
func Fanout(ctx context.Context, ops ...Op) ([]Result, error) {
	results := make([]Result, 0, len(ops))
	var errs []error
	for _, op := range ops {
		err := op.Run(ctx)
		results = append(results, Result{Op: op.Name, Err: err})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", op.Name, err))
		}
	}
	return results, errors.Join(errs...)
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// StatusInsufficientBudget is the request status set by the notice.
const StatusInsufficientBudget = "presupuesto_insuficiente"

// Operation names reported by InsufficientBudget.
const (
	OpSendMessage  = "send_message"
	OpUpdateStatus = "update_status"
)

// InsufficientBudget tells the requester their request exceeds the available
// budget and flags the request status. Both calls are always attempted.
func InsufficientBudget(ctx context.Context, c backend.Client, req model.Request, bal derived.BudgetBalance) ([]Result, error) {
	body := strings.Join([]string{
		fmt.Sprintf("La solicitud #%d supera el presupuesto disponible.", req.ID),
		fmt.Sprintf("Costo: %s", bal.Cost.StringFixed(2)),
		fmt.Sprintf("Disponible: %s", bal.Available.StringFixed(2)),
		fmt.Sprintf("Diferencia: %s", bal.Balance.StringFixed(2)),
	}, "\n")
	msg := backend.DirectMessage{
		RecipientID: req.RequesterID,
		Subject:     fmt.Sprintf("Presupuesto insuficiente - solicitud #%d", req.ID),
		Body:        body,
		RequestID:   req.ID,
		Type:        backend.MessageTypeInsufficientBudget,
		Metadata: map[string]any{
			"centro":     req.Center,
			"almacen":    req.Warehouse,
			"costo":      bal.Cost.String(),
			"disponible": bal.Available.String(),
		},
	}
	return Fanout(ctx,
		Op{Name: OpSendMessage, Run: func(ctx context.Context) error { return c.SendMessage(ctx, msg) }},
		Op{Name: OpUpdateStatus, Run: func(ctx context.Context) error {
			return c.UpdateStatus(ctx, req.ID, StatusInsufficientBudget)
		}},
	)
}

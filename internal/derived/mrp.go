package derived

import (
	"fmt"
	"strings"

	"spm/internal/model"
)

// PlannedState is the planning state value that marks an item as planned.
const PlannedState = "planificado"

// MRPStatus is the planning status of a line item.
type MRPStatus struct {
	Planned bool
	Warn    bool
	Total   float64
	Detail  string
}

// MRP derives the planning status of item. Presence of parameters implies
// planning even without the explicit flag.
func MRP(item model.LineItem) MRPStatus {
	return MRPFor(item.Planned, item.PlanningState, item.MRP)
}

// MRPFor is MRP over loose fields, for callers holding an analysed material
// rather than a request line.
func MRPFor(planned bool, state string, params *model.MRPParams) MRPStatus {
	planned = planned || strings.EqualFold(strings.TrimSpace(state), PlannedState) || !params.IsZero()
	if !planned {
		return MRPStatus{Detail: "sin planificación MRP"}
	}
	var p model.MRPParams
	if params != nil {
		p = *params
	}
	total := p.StockOnHand + p.OrdersInProgress
	st := MRPStatus{
		Planned: true,
		Total:   total,
		Warn:    p.ReorderPoint > 0 && total < p.ReorderPoint,
	}
	st.Detail = fmt.Sprintf("stock %s + en curso %s = %s (punto de pedido %s, seguridad %s, máximo %s)",
		FormatQuantity(p.StockOnHand), FormatQuantity(p.OrdersInProgress), FormatQuantity(total),
		FormatQuantity(p.ReorderPoint), FormatQuantity(p.SafetyStock), FormatQuantity(p.MaxStock))
	return st
}

package wizard

import "spm/internal/model"

// approvedQuantity is the first non-zero of the option's approved, requested
// and available quantities, falling back to the item quantity.
func approvedQuantity(opt model.SourcingOption, itemQty float64) float64 {
	for _, q := range []float64{opt.ApprovedQuantity, opt.RequestedQuantity, opt.AvailableQuantity} {
		if q != 0 {
			return q
		}
	}
	return itemQty
}

// BuildTreatment expands decisions into the save-treatment payload, one entry
// per decided working item in traversal order.
func BuildTreatment(req model.Request, items []model.Material, decisions model.Decisions) model.Treatment {
	t := model.Treatment{RequestID: req.ID, Decisions: make([]model.DecisionEntry, 0, len(decisions))}
	for _, it := range items {
		opt, ok := decisions[it.ItemIndex]
		if !ok {
			continue
		}
		qty := it.Quantity
		code := it.Code
		if it.ItemIndex >= 0 && it.ItemIndex < len(req.Items) {
			line := req.Items[it.ItemIndex]
			if qty == 0 {
				qty = line.Quantity
			}
			if code == "" {
				code = line.Code
			}
		}
		if opt.MaterialCode != "" {
			code = opt.MaterialCode
		}
		t.Decisions = append(t.Decisions, model.DecisionEntry{
			ItemIndex:        it.ItemIndex,
			DecisionType:     opt.Type,
			ApprovedQuantity: approvedQuantity(opt, qty),
			MaterialCode:     code,
			ProviderID:       opt.ProviderID,
			FinalUnitPrice:   opt.UnitPrice,
			LeadTimeDays:     opt.LeadTimeDays,
			Compatibility:    opt.Compatibility,
			Observations:     opt.Observations,
			OptionID:         opt.ID,
		})
	}
	return t
}

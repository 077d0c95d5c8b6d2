package wizard

import (
	"github.com/shopspring/decimal"

	"spm/internal/model"
)

// ReviewEntry pairs a decision with the item it settles.
type ReviewEntry struct {
	Item             ItemRow
	Option           model.SourcingOption
	ApprovedQuantity float64
	LineTotal        decimal.Decimal
}

// ReviewView is the read-only summary shown before submission.
type ReviewView struct {
	Entries   []ReviewEntry
	Total     decimal.Decimal
	Available decimal.Decimal
	Remaining int
	Busy      bool
	Error     string
}

func (w *Wizard) ReviewView() (ReviewView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStepLocked("review_view", StepReview); err != nil {
		return ReviewView{}, err
	}
	v := ReviewView{
		Total:     decimal.Zero,
		Remaining: remaining(w.items, w.decisions),
		Busy:      w.busy,
		Error:     w.submitErr,
	}
	if w.analysis != nil {
		v.Available = decimal.NewFromFloat(w.analysis.Summary.AvailableBudget)
	}
	for _, it := range w.items {
		opt, ok := w.decisions[it.ItemIndex]
		if !ok {
			continue
		}
		row := itemRow(it, w.req, w.allow)
		qty := approvedQuantity(opt, row.Quantity)
		line := decimal.NewFromFloat(opt.UnitPrice).Mul(decimal.NewFromFloat(qty))
		v.Entries = append(v.Entries, ReviewEntry{Item: row, Option: opt, ApprovedQuantity: qty, LineTotal: line})
		v.Total = v.Total.Add(line)
	}
	return v, nil
}

package derived

import (
	"github.com/shopspring/decimal"

	"spm/internal/model"
)

// CostSource names where the request cost figure came from.
type CostSource string

const (
	CostFromItems        CostSource = "items"
	CostFromRealRequired CostSource = "real_required"
	CostFromTotal        CostSource = "total_solicitation"
)

// BudgetBalance compares the request cost with the available budget.
type BudgetBalance struct {
	Available  decimal.Decimal
	Cost       decimal.Decimal
	Balance    decimal.Decimal
	Sufficient bool
	Source     CostSource
}

// Budget computes the balance for a request. The cost is the sum of
// unit price times quantity over items when positive, otherwise the
// backend's real required budget, otherwise its total solicitation cost.
func Budget(items []model.LineItem, summary model.Summary) BudgetBalance {
	cost := ItemsCost(items)
	src := CostFromItems
	if !cost.IsPositive() {
		if rr := decimal.NewFromFloat(summary.RealRequiredBudget); rr.IsPositive() {
			cost, src = rr, CostFromRealRequired
		} else {
			cost, src = decimal.NewFromFloat(summary.TotalSolicitationCost), CostFromTotal
		}
	}
	available := decimal.NewFromFloat(summary.AvailableBudget)
	balance := available.Sub(cost)
	return BudgetBalance{
		Available:  available,
		Cost:       cost,
		Balance:    balance,
		Sufficient: !balance.IsNegative(),
		Source:     src,
	}
}

// ItemsCost is Σ unit_price × quantity.
func ItemsCost(items []model.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.UnitPrice).Mul(decimal.NewFromFloat(it.Quantity)))
	}
	return sum
}

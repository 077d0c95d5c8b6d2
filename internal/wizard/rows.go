package wizard

import (
	"spm/internal/derived"
	"spm/internal/model"
)

// ItemRow is a working item with its derived displays.
type ItemRow struct {
	ItemIndex   int
	Code        string
	Description string
	Quantity    float64
	UnitPrice   float64
	Criticality model.Criticality
	Stock       derived.StockDisplay
	MRP         derived.MRPStatus
}

// itemRow pairs an analysed material with its request line. Stock detail and
// MRP parameters come from the analysis when present, else from the line.
func itemRow(m model.Material, req model.Request, allow derived.AllowList) ItemRow {
	var line model.LineItem
	if m.ItemIndex >= 0 && m.ItemIndex < len(req.Items) {
		line = req.Items[m.ItemIndex]
	}
	detail := m.StockDetail
	if len(detail) == 0 {
		detail = line.StockDetail
	}
	params := m.MRP
	if params.IsZero() {
		params = line.MRP
	}
	row := ItemRow{
		ItemIndex:   m.ItemIndex,
		Code:        m.Code,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Criticality: m.Criticality,
		Stock:       derived.Stock(detail, allow),
		MRP:         derived.MRPFor(line.Planned, line.PlanningState, params),
	}
	if row.Code == "" {
		row.Code = line.Code
	}
	if row.Description == "" {
		row.Description = line.Description
	}
	if row.Quantity == 0 {
		row.Quantity = line.Quantity
	}
	if row.UnitPrice == 0 {
		row.UnitPrice = line.UnitPrice
	}
	return row
}

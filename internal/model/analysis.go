package model

// AnalysisResult is the backend's pre-treatment analysis of a request.
type AnalysisResult struct {
	Summary         Summary          `json:"resumen"`
	Conflicts       []Conflict       `json:"conflictos"`
	Advisories      []Advisory       `json:"advertencias"`
	Recommendations []Recommendation `json:"recomendaciones"`
	Materials       MaterialGroups   `json:"materiales"`
}

// Summary carries the budget figures and the item count.
type Summary struct {
	AvailableBudget       float64 `json:"presupuesto_disponible"`
	RequiredBudget        float64 `json:"presupuesto_requerido"`
	RealRequiredBudget    float64 `json:"presupuesto_real_requerido,omitempty"`
	TotalSolicitationCost float64 `json:"costo_total_solicitud,omitempty"`
	BudgetDifference      float64 `json:"diferencia_presupuesto"`
	TotalItems            int     `json:"total_items"`
}

type Conflict struct {
	Type        string `json:"tipo"`
	Description string `json:"descripcion"`
	Critical    bool   `json:"critico"`
	Suggestion  string `json:"sugerencia,omitempty"`
}

type Advisory struct {
	Level   string `json:"nivel"`
	Message string `json:"mensaje"`
}

type Recommendation struct {
	Action   string `json:"accion"`
	Reason   string `json:"razon"`
	Priority int    `json:"prioridad"`
}

// MaterialGroups holds the analysed materials bucketed by criticality tier.
type MaterialGroups struct {
	Critical []Material `json:"Critico"`
	Normal   []Material `json:"Normal"`
	Low      []Material `json:"Bajo"`
}

// Material is an analysed request line. ItemIndex points back into Request.Items.
type Material struct {
	ItemIndex   int          `json:"item_index"`
	Code        string       `json:"codigo"`
	Description string       `json:"descripcion"`
	Quantity    float64      `json:"cantidad"`
	UnitPrice   float64      `json:"precio_unitario"`
	Criticality Criticality  `json:"criticidad"`
	StockDetail []StockEntry `json:"stock_detalle,omitempty"`
	MRP         *MRPParams   `json:"mrp,omitempty"`
}

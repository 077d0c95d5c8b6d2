package model

// DecisionEntry is one line of the save-treatment payload.
type DecisionEntry struct {
	ItemIndex        int        `json:"item_index"`
	DecisionType     OptionType `json:"tipo_decision"`
	ApprovedQuantity float64    `json:"cantidad_aprobada"`
	MaterialCode     string     `json:"codigo_material"`
	ProviderID       string     `json:"id_proveedor,omitempty"`
	FinalUnitPrice   float64    `json:"precio_unitario_final"`
	LeadTimeDays     int        `json:"plazo_entrega_dias"`
	Compatibility    float64    `json:"compatibilidad"`
	Observations     string     `json:"observaciones,omitempty"`
	OptionID         string     `json:"id_opcion"`
}

// Treatment is the body sent to the save-treatment endpoint.
type Treatment struct {
	RequestID int64           `json:"id_solicitud"`
	Decisions []DecisionEntry `json:"decisiones"`
}

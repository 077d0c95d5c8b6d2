package model

import "encoding/json"

// Criticality is the backend-assigned urgency tier of a line item.
type Criticality string

const (
	CriticalityCritical Criticality = "Critico"
	CriticalityNormal   Criticality = "Normal"
	CriticalityLow      Criticality = "Bajo"
)

// Request is the material requisition being treated. Read-mostly here.
type Request struct {
	ID          int64      `json:"id"`
	Center      string     `json:"centro"`
	Warehouse   string     `json:"almacen"`
	Sector      string     `json:"sector"`
	RequesterID int64      `json:"id_usuario"`
	Requester   string     `json:"usuario"`
	Criticality string     `json:"criticidad"`
	Items       []LineItem `json:"items"`
}

// LineItem is one material line of a request.
type LineItem struct {
	Code          string       `json:"codigo"`
	Description   string       `json:"descripcion"`
	Quantity      float64      `json:"cantidad"`
	UnitPrice     float64      `json:"precio_unitario"`
	StockDetail   []StockEntry `json:"stock_detalle,omitempty"`
	Criticality   string       `json:"criticidad,omitempty"`
	Planned       bool         `json:"planificado,omitempty"`
	PlanningState string       `json:"estado_mrp,omitempty"`
	MRP           *MRPParams   `json:"mrp,omitempty"`
}

// StockEntry is the stock a material holds at one warehouse.
type StockEntry struct {
	Warehouse string  `json:"almacen"`
	Center    string  `json:"centro,omitempty"`
	Quantity  float64 `json:"cantidad"`
}

// MRPParams are the planning parameters of a material at a center/warehouse.
type MRPParams struct {
	SafetyStock      float64 `json:"stock_seguridad,omitempty"`
	ReorderPoint     float64 `json:"punto_pedido,omitempty"`
	MaxStock         float64 `json:"stock_maximo,omitempty"`
	StockOnHand      float64 `json:"stock_actual,omitempty"`
	OrdersInProgress float64 `json:"pedidos_en_curso,omitempty"`

	// present is set when decoded from an object with at least one key.
	present bool
}

// UnmarshalJSON records whether the object carried any key, so parameters
// sent with every value at zero still count as given.
func (p *MRPParams) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	type plain MRPParams
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = MRPParams(v)
	p.present = len(keys) > 0
	return nil
}

// IsZero reports whether no parameter was given: nil, an empty object, or a
// value built without any field set.
func (p *MRPParams) IsZero() bool {
	return p == nil || (!p.present && *p == MRPParams{})
}

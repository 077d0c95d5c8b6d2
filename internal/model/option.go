package model

import "sort"

// OptionType is the way a sourcing option fulfils a line item.
type OptionType string

const (
	OptionStock       OptionType = "stock"
	OptionProvider    OptionType = "provider"
	OptionEquivalence OptionType = "equivalence"
	OptionMix         OptionType = "mix"
)

// Valid reports whether t is one of the known option types.
func (t OptionType) Valid() bool {
	switch t {
	case OptionStock, OptionProvider, OptionEquivalence, OptionMix:
		return true
	}
	return false
}

// StockBacked reports whether options of this type carry per-location stock.
func (t OptionType) StockBacked() bool {
	return t == OptionStock || t == OptionEquivalence || t == OptionMix
}

// SourcingOption is one backend-computed way to fulfil a line item.
type SourcingOption struct {
	ID                  string          `json:"id"`
	Type                OptionType      `json:"tipo"`
	Name                string          `json:"nombre"`
	MaterialCode        string          `json:"codigo_material,omitempty"`
	ProviderID          string          `json:"id_proveedor,omitempty"`
	UnitPrice           float64         `json:"precio_unitario"`
	LeadTimeDays        int             `json:"plazo_entrega_dias"`
	ApprovedQuantity    float64         `json:"cantidad_aprobada,omitempty"`
	RequestedQuantity   float64         `json:"cantidad_solicitada,omitempty"`
	AvailableQuantity   float64         `json:"cantidad_disponible,omitempty"`
	Compatibility       float64         `json:"compatibilidad"`
	Rating              float64         `json:"rating,omitempty"`
	Recommended         bool            `json:"recomendado"`
	RecommendationScore float64         `json:"score_recomendacion"`
	Observations        string          `json:"observaciones,omitempty"`
	Locations           []StockLocation `json:"stock_ubicaciones,omitempty"`
}

// StockLocation is stock backing an option at one warehouse.
type StockLocation struct {
	Warehouse     string  `json:"almacen"`
	Center        string  `json:"centro"`
	Quantity      float64 `json:"cantidad"`
	Lot           string  `json:"lote,omitempty"`
	Responsible   string  `json:"responsable,omitempty"`
	FreeAvailable bool    `json:"libre_disponibilidad"`
}

// Decisions maps a line item index to the option chosen for it. An index
// without an entry is pending.
type Decisions map[int]SourcingOption

// Clone returns a shallow copy of d.
func (d Decisions) Clone() Decisions {
	out := make(Decisions, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Indices returns the decided item indices in ascending order.
func (d Decisions) Indices() []int {
	out := make([]int, 0, len(d))
	for k := range d {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

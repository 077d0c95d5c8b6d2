// Package derived holds the pure display rules the treatment steps render:
// stock availability, MRP planning status and budget balance.
package derived

import (
	"sort"
	"strconv"
	"strings"

	"spm/internal/model"
)

// RequiresAuthorizationText is shown instead of a quantity when no
// allow-listed stock exists.
const RequiresAuthorizationText = "requiere autorización"

// NormalizeWarehouse trims code and left-pads it with zeros to 4 digits.
// Longer codes are returned trimmed but otherwise untouched.
func NormalizeWarehouse(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if len(code) < 4 {
		code = strings.Repeat("0", 4-len(code)) + code
	}
	return code
}

// AllowList is a set of normalized warehouse codes whose stock may be shown
// as directly available.
type AllowList map[string]struct{}

// NewAllowList normalizes codes into a set. Blank codes are ignored.
func NewAllowList(codes ...string) AllowList {
	out := make(AllowList, len(codes))
	for _, c := range codes {
		if n := NormalizeWarehouse(c); n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

func (a AllowList) Contains(code string) bool {
	_, ok := a[NormalizeWarehouse(code)]
	return ok
}

// Codes returns the members in ascending order.
func (a AllowList) Codes() []string {
	out := make([]string, 0, len(a))
	for c := range a {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// StockDisplay is what the sourcing step shows for an item's stock.
type StockDisplay struct {
	Quantity              float64
	RequiresAuthorization bool
	Text                  string
}

// Stock sums detail quantities over allow-listed warehouses only. Stock held
// elsewhere never counts as available.
func Stock(detail []model.StockEntry, allow AllowList) StockDisplay {
	var sum float64
	for _, e := range detail {
		if allow.Contains(e.Warehouse) {
			sum += e.Quantity
		}
	}
	if sum <= 0 {
		return StockDisplay{RequiresAuthorization: true, Text: RequiresAuthorizationText}
	}
	return StockDisplay{Quantity: sum, Text: FormatQuantity(sum) + " un."}
}

// FormatQuantity renders q without trailing zeros.
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

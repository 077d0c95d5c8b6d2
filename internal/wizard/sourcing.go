package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"spm/internal/model"
)

// OptionFilter narrows the options shown for an item.
type OptionFilter string

const (
	FilterAll         OptionFilter = "all"
	FilterStock       OptionFilter = OptionFilter(model.OptionStock)
	FilterProvider    OptionFilter = OptionFilter(model.OptionProvider)
	FilterEquivalence OptionFilter = OptionFilter(model.OptionEquivalence)
	FilterMix         OptionFilter = OptionFilter(model.OptionMix)
)

// ParseFilter accepts the filter names case-insensitively; "" means all.
func ParseFilter(s string) (OptionFilter, error) {
	f := OptionFilter(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterStock, FilterProvider, FilterEquivalence, FilterMix:
		return f, nil
	}
	return "", fmt.Errorf("unknown option filter %q", s)
}

// FilterOptions returns the options matching f in their original order.
func FilterOptions(opts []model.SourcingOption, f OptionFilter) []model.SourcingOption {
	if f == FilterAll || f == "" {
		return append([]model.SourcingOption(nil), opts...)
	}
	var out []model.SourcingOption
	for _, o := range opts {
		if OptionFilter(o.Type) == f {
			out = append(out, o)
		}
	}
	return out
}

// Recommended picks the option to preselect: the best scored option flagged
// as recommended, else the best scored option overall.
func Recommended(opts []model.SourcingOption) (model.SourcingOption, bool) {
	if len(opts) == 0 {
		return model.SourcingOption{}, false
	}
	ranked := append([]model.SourcingOption(nil), opts...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Recommended != ranked[j].Recommended {
			return ranked[i].Recommended
		}
		return ranked[i].RecommendationScore > ranked[j].RecommendationScore
	})
	return ranked[0], true
}

// Next moves the item cursor forward and fetches the new item's options. On
// the last item it instead attempts the transition to review, which is
// refused while items remain undecided.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	if err := w.requireStepLocked("next", StepSourcing); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.cursor >= len(w.items)-1 {
		err := w.advanceLocked()
		w.mu.Unlock()
		return err
	}
	w.cursor++
	target := w.items[w.cursor].ItemIndex
	reqID, pos := w.req.ID, w.cursor
	w.mu.Unlock()

	w.log(reqID).Debug("cursor moved", slog.Int("position", pos), slog.Int("item_index", target))
	_ = w.FetchOptions(ctx, target)
	return nil
}

// Prev moves the item cursor back, stopping at the first item.
func (w *Wizard) Prev() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStepLocked("prev", StepSourcing); err != nil {
		return err
	}
	if w.cursor > 0 {
		w.cursor--
	}
	return nil
}

// SelectCurrent selects the cached option with id for the item under the
// cursor.
func (w *Wizard) SelectCurrent(optionID string) error {
	w.mu.Lock()
	if err := w.requireStepLocked("select", StepSourcing); err != nil {
		w.mu.Unlock()
		return err
	}
	if len(w.items) == 0 {
		w.mu.Unlock()
		return validation("select", "la solicitud no tiene ítems", ErrUnknownItem)
	}
	idx := w.items[w.cursor].ItemIndex
	var (
		chosen model.SourcingOption
		found  bool
	)
	for _, o := range w.options[idx] {
		if o.ID == optionID {
			chosen, found = o, true
			break
		}
	}
	w.mu.Unlock()
	if !found {
		return validation("select", fmt.Sprintf("opción %q no disponible para el ítem %d", optionID, idx), ErrUnknownItem)
	}
	return w.SelectDecision(idx, chosen)
}

func (w *Wizard) requireStepLocked(op string, s Step) error {
	if w.step == StepClosed {
		return validation(op, ErrNotOpen.Error(), ErrNotOpen)
	}
	if w.step != s {
		return validation(op, ErrWrongStep.Error(), ErrWrongStep)
	}
	return nil
}

// OptionRow is one option as shown for the current item.
type OptionRow struct {
	Option   model.SourcingOption
	Selected bool
	// Locations lists allow-listed stock backing the option.
	Locations []model.StockLocation
	// OtherLocations counts stock locations outside the allow-list.
	OtherLocations int
}

// ItemStatus is one entry of the per-item completion list.
type ItemStatus struct {
	ItemIndex int
	Code      string
	Decided   bool
	Current   bool
}

// SourcingView is what the sourcing step renders.
type SourcingView struct {
	Position     int
	Total        int
	Item         ItemRow
	Loading      bool
	OptionsError string
	Filter       OptionFilter
	Options      []OptionRow
	TypeCounts   map[model.OptionType]int
	Selected     *model.SourcingOption
	Items        []ItemStatus
	Decided      int
	Remaining    int
}

// SourcingView renders the item under the cursor with options narrowed by f.
func (w *Wizard) SourcingView(f OptionFilter) (SourcingView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.requireStepLocked("sourcing_view", StepSourcing); err != nil {
		return SourcingView{}, err
	}
	if f == "" {
		f = FilterAll
	}
	v := SourcingView{
		Position:   w.cursor,
		Total:      len(w.items),
		Filter:     f,
		TypeCounts: make(map[model.OptionType]int),
		Remaining:  remaining(w.items, w.decisions),
	}
	v.Decided = v.Total - v.Remaining
	for i, it := range w.items {
		_, decided := w.decisions[it.ItemIndex]
		v.Items = append(v.Items, ItemStatus{ItemIndex: it.ItemIndex, Code: it.Code, Decided: decided, Current: i == w.cursor})
	}
	if len(w.items) == 0 {
		return v, nil
	}

	cur := w.items[w.cursor]
	v.Item = itemRow(cur, w.req, w.allow)
	opts, cached := w.options[cur.ItemIndex]
	v.OptionsError = w.optionErrs[cur.ItemIndex]
	v.Loading = !cached && v.OptionsError == ""
	if sel, ok := w.decisions[cur.ItemIndex]; ok {
		v.Selected = &sel
	}
	for _, o := range opts {
		v.TypeCounts[o.Type]++
	}
	for _, o := range FilterOptions(opts, f) {
		row := OptionRow{Option: o, Selected: v.Selected != nil && v.Selected.ID == o.ID}
		if o.Type.StockBacked() {
			for _, loc := range o.Locations {
				if w.allow.Contains(loc.Warehouse) {
					row.Locations = append(row.Locations, loc)
				} else {
					row.OtherLocations++
				}
			}
		}
		v.Options = append(v.Options, row)
	}
	return v, nil
}

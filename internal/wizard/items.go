package wizard

import (
	"sort"

	"spm/internal/model"
)

// WorkingItems flattens the analysed materials into traversal order. Tiers
// are concatenated Critical, Normal, Low and the result is stably sorted by
// ascending item index, so the request's own line order wins over the
// backend's grouping. A repeated index keeps its first occurrence.
//
// When the analysis carries no materials the request lines are used as-is.
func WorkingItems(groups model.MaterialGroups, req model.Request) []model.Material {
	merged := make([]model.Material, 0, len(groups.Critical)+len(groups.Normal)+len(groups.Low))
	seen := make(map[int]bool)
	for _, tier := range [][]model.Material{groups.Critical, groups.Normal, groups.Low} {
		for _, m := range tier {
			if seen[m.ItemIndex] {
				continue
			}
			seen[m.ItemIndex] = true
			merged = append(merged, m)
		}
	}
	if len(merged) == 0 {
		for i, li := range req.Items {
			merged = append(merged, model.Material{
				ItemIndex:   i,
				Code:        li.Code,
				Description: li.Description,
				Quantity:    li.Quantity,
				UnitPrice:   li.UnitPrice,
				Criticality: model.Criticality(li.Criticality),
				StockDetail: li.StockDetail,
				MRP:         li.MRP,
			})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].ItemIndex < merged[j].ItemIndex })
	return merged
}

// remaining counts working items without a decision. Decisions for indices
// outside items do not count.
func remaining(items []model.Material, d model.Decisions) int {
	n := 0
	for _, it := range items {
		if _, ok := d[it.ItemIndex]; !ok {
			n++
		}
	}
	return n
}

func positionOf(items []model.Material, itemIndex int) int {
	for i, it := range items {
		if it.ItemIndex == itemIndex {
			return i
		}
	}
	return -1
}

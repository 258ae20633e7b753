package snapshot

import "sort"

// Collapse reduces raw view rows to one row per item: when several rows for
// the same item exist at or before the cutoff, the most recent date wins and
// older rows are shadowed, not summed. Output is sorted by item name, so
// collapsing the same input twice yields identical results.
func Collapse(rows []Row) []Row {
	latest := make(map[string]Row, len(rows))
	for _, row := range rows {
		current, ok := latest[row.ItemName]
		if !ok || row.Date.After(current.Date) {
			latest[row.ItemName] = row
		}
	}
	out := make([]Row, 0, len(latest))
	for _, row := range latest {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ItemName < out[j].ItemName
	})
	return out
}

// ActiveOnly drops rows whose buckets are all exactly zero. Negative
// quantities count as active; nothing is clamped.
func ActiveOnly(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if !row.IsZero() {
			out = append(out, row)
		}
	}
	return out
}

// OnHandByItem indexes total on-hand quantities per item, the figure a count
// sheet is compared against.
func OnHandByItem(rows []Row) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ItemName] = row.OnHand.Total()
	}
	return out
}

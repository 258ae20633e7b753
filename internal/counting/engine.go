package counting

import "sort"

// ComputeVariances compares count records against calculated on-hand figures
// indexed by item. Items absent from the snapshot count against zero on-hand.
// Zero variances are kept here so the caller can show a complete sheet; they
// are dropped at adjustment generation.
func ComputeVariances(counts []CountRecord, onHand map[string]int64) []Variance {
	variances := make([]Variance, 0, len(counts))
	for _, count := range counts {
		calculated := onHand[count.ItemName]
		variances = append(variances, Variance{
			ItemName:      count.ItemName,
			PhysicalCount: count.Quantity,
			OnHand:        calculated,
			Variance:      count.Quantity - calculated,
		})
	}
	sort.Slice(variances, func(i, j int) bool {
		return variances[i].ItemName < variances[j].ItemName
	})
	return variances
}

// NonZero drops variances that require no correction.
func NonZero(variances []Variance) []Variance {
	out := make([]Variance, 0, len(variances))
	for _, v := range variances {
		if v.Variance != 0 {
			out = append(out, v)
		}
	}
	return out
}

package counting

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeVariances(t *testing.T) {
	counts := []CountRecord{
		{ItemName: "widget", Quantity: 45},
		{ItemName: "gadget", Quantity: 12},
		{ItemName: "sprocket", Quantity: 3},
	}
	onHand := map[string]int64{
		"widget": 50,
		"gadget": 12,
		// sprocket never hit the snapshot
	}

	variances := ComputeVariances(counts, onHand)
	require.Len(t, variances, 3)

	// Sorted by item name.
	require.Equal(t, "gadget", variances[0].ItemName)
	require.EqualValues(t, 0, variances[0].Variance)

	require.Equal(t, "sprocket", variances[1].ItemName)
	require.EqualValues(t, 3, variances[1].Variance, "uncounted-by-snapshot items vary against zero")

	require.Equal(t, "widget", variances[2].ItemName)
	require.EqualValues(t, -5, variances[2].Variance)
	require.EqualValues(t, 45, variances[2].PhysicalCount)
	require.EqualValues(t, 50, variances[2].OnHand)
}

func TestNonZero(t *testing.T) {
	variances := []Variance{
		{ItemName: "a", Variance: -5},
		{ItemName: "b", Variance: 0},
		{ItemName: "c", Variance: 3},
	}
	kept := NonZero(variances)
	require.Len(t, kept, 2)
	require.Equal(t, "a", kept[0].ItemName)
	require.Equal(t, "c", kept[1].ItemName)
}

func TestVarianceComment(t *testing.T) {
	require.Equal(t, CommentOverage, Variance{Variance: 3}.Comment())
	require.Equal(t, CommentShortage, Variance{Variance: -5}.Comment())
}

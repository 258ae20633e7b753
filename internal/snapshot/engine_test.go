package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestCollapseLastWriteWins(t *testing.T) {
	rows := []Row{
		{ItemName: "widget", Warehouse: "WH-EAST", Date: day(1), OnHand: BucketSet{Stock: 100}},
		{ItemName: "widget", Warehouse: "WH-EAST", Date: day(10), OnHand: BucketSet{Stock: 40}},
		{ItemName: "widget", Warehouse: "WH-EAST", Date: day(5), OnHand: BucketSet{Stock: 70}},
		{ItemName: "gadget", Warehouse: "WH-EAST", Date: day(3), OnHand: BucketSet{Consignment: 12}},
	}

	collapsed := Collapse(rows)
	require.Len(t, collapsed, 2)

	// Sorted by item name; the most recent widget row shadows the others.
	require.Equal(t, "gadget", collapsed[0].ItemName)
	require.Equal(t, "widget", collapsed[1].ItemName)
	require.EqualValues(t, 40, collapsed[1].OnHand.Stock, "shadowed rows must not be summed")
	require.Equal(t, day(10), collapsed[1].Date)
}

func TestCollapseIdempotent(t *testing.T) {
	rows := []Row{
		{ItemName: "widget", Date: day(1), OnHand: BucketSet{Stock: 5}},
		{ItemName: "widget", Date: day(2), OnHand: BucketSet{Stock: 8}},
		{ItemName: "gadget", Date: day(2), Inbound: BucketSet{Hold: 3}},
	}
	first := Collapse(rows)
	second := Collapse(rows)
	require.Equal(t, first, second)
}

func TestCollapseKeepsNegativeOnHand(t *testing.T) {
	rows := []Row{
		{ItemName: "widget", Date: day(2), OnHand: BucketSet{Stock: -15}},
	}
	collapsed := Collapse(rows)
	require.EqualValues(t, -15, collapsed[0].OnHand.Stock, "negative on-hand must not be clamped")
	require.EqualValues(t, -15, collapsed[0].OnHand.Total())
}

func TestActiveOnly(t *testing.T) {
	rows := []Row{
		{ItemName: "zeroed", Date: day(1)},
		{ItemName: "stocked", Date: day(1), OnHand: BucketSet{Stock: 4}},
		{ItemName: "negative", Date: day(1), OnHand: BucketSet{Stock: -2}},
		{ItemName: "held", Date: day(1), Future: BucketSet{Hold: 1}},
	}
	active := ActiveOnly(rows)
	require.Len(t, active, 3)
	for _, row := range active {
		require.NotEqual(t, "zeroed", row.ItemName)
	}
}

func TestOnHandByItem(t *testing.T) {
	rows := []Row{
		{ItemName: "widget", OnHand: BucketSet{Stock: 10, Consignment: 5, Hold: -2}},
		{ItemName: "gadget", OnHand: BucketSet{}},
	}
	index := OnHandByItem(rows)
	require.EqualValues(t, 13, index["widget"])
	require.EqualValues(t, 0, index["gadget"])
}

package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddBusinessDays(t *testing.T) {
	// Monday + 2 business days = Wednesday.
	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Wednesday, AddBusinessDays(monday, 2).Weekday())

	// Thursday + 2 business days skips the weekend.
	thursday := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	got := AddBusinessDays(thursday, 2)
	require.Equal(t, time.Monday, got.Weekday())
	require.Equal(t, 18, got.Day())

	// Friday + 2 = Tuesday.
	friday := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Tuesday, AddBusinessDays(friday, 2).Weekday())
}

func TestBuildMirror(t *testing.T) {
	primary := Header{
		ID:            "primary-id",
		Type:          TxOutbound,
		Date:          time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Warehouse:     "WH-EAST",
		ReferenceType: ReferenceTypeTransferOrder,
	}
	details := []Detail{
		{ItemName: "widget", Quantity: 10, InventoryStatus: InvStock, Status: StatusShipped},
		{ItemName: "gadget", Quantity: 3, InventoryStatus: InvConsignment, Status: StatusPending},
	}

	mirror, mirrored := BuildMirror(primary, details, TransferFields{DestinationWarehouse: "WH-WEST"})

	require.Equal(t, TxInbound, mirror.Type)
	require.Equal(t, "WH-WEST", mirror.Warehouse)
	require.Equal(t, "primary-id", mirror.RelatedTransactionID)
	require.Equal(t, AddBusinessDays(primary.Date, 2), mirror.Date)
	require.Empty(t, mirror.ReferenceNumber)

	require.Len(t, mirrored, 2)
	for _, d := range mirrored {
		require.Equal(t, StatusPending, d.Status)
	}
	require.Equal(t, InvStock, mirrored[0].InventoryStatus)
	require.Equal(t, InvConsignment, mirrored[1].InventoryStatus)
}

func TestBuildMirrorOverrides(t *testing.T) {
	primary := Header{ID: "p", Type: TxOutbound, Date: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)}
	details := []Detail{{ItemName: "widget", Quantity: 5, InventoryStatus: InvStock, Status: StatusShipped}}

	explicit := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	mirror, mirrored := BuildMirror(primary, details, TransferFields{
		DestinationWarehouse:    "WH-WEST",
		TransferDate:            explicit,
		InventoryStatusOverride: InvHold,
	})

	require.Equal(t, explicit, mirror.Date)
	require.Equal(t, InvHold, mirrored[0].InventoryStatus)
}

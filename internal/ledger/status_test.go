package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidStatusTable(t *testing.T) {
	statuses := []DetailStatus{StatusPending, StatusReceived, StatusShipped, StatusCompleted, DetailStatus("BOGUS")}

	expected := map[TxType]map[DetailStatus]bool{
		TxInbound: {
			StatusPending:  true,
			StatusReceived: true,
		},
		TxOutbound: {
			StatusPending: true,
			StatusShipped: true,
		},
		TxAdjustment: {
			StatusPending:   true,
			StatusCompleted: true,
		},
	}

	for txType, allowed := range expected {
		for _, status := range statuses {
			got := ValidStatus(txType, status)
			require.Equalf(t, allowed[status], got, "type=%s status=%s", txType, status)
		}
	}

	// Types outside the table accept any status; they only fail on advance.
	for _, status := range statuses {
		require.True(t, ValidStatus(TxType("RETURN"), status))
	}
}

func TestNextStatus(t *testing.T) {
	cases := []struct {
		txType TxType
		next   DetailStatus
		ok     bool
	}{
		{TxInbound, StatusReceived, true},
		{TxOutbound, StatusShipped, true},
		{TxAdjustment, StatusCompleted, true},
		{TxType("RETURN"), "", false},
		{TxType(""), "", false},
	}
	for _, tc := range cases {
		next, ok := NextStatus(tc.txType)
		require.Equalf(t, tc.ok, ok, "type=%s", tc.txType)
		require.Equalf(t, tc.next, next, "type=%s", tc.txType)
	}
}

func TestKnownType(t *testing.T) {
	require.True(t, KnownType(TxInbound))
	require.True(t, KnownType(TxOutbound))
	require.True(t, KnownType(TxAdjustment))
	require.False(t, KnownType(TxType("RETURN")))
}

package snapshot

import "strconv"

// ExportRows renders snapshot rows as CSV records, header first.
func ExportRows(rows []Row) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, []string{
		"item", "warehouse", "date",
		"onhand_stock", "onhand_consignment", "onhand_hold",
		"inbound_stock", "inbound_consignment", "inbound_hold",
		"outbound_stock", "outbound_consignment", "outbound_hold",
		"future_stock", "future_consignment", "future_hold",
	})
	for _, row := range rows {
		out = append(out, []string{
			row.ItemName, row.Warehouse, row.Date.Format("2006-01-02"),
			formatQty(row.OnHand.Stock), formatQty(row.OnHand.Consignment), formatQty(row.OnHand.Hold),
			formatQty(row.Inbound.Stock), formatQty(row.Inbound.Consignment), formatQty(row.Inbound.Hold),
			formatQty(row.Outbound.Stock), formatQty(row.Outbound.Consignment), formatQty(row.Outbound.Hold),
			formatQty(row.Future.Stock), formatQty(row.Future.Consignment), formatQty(row.Future.Hold),
		})
	}
	return out
}

func formatQty(v int64) string {
	return strconv.FormatInt(v, 10)
}

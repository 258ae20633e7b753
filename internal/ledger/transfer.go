package ledger

import "time"

// defaultTransferLeadDays is the business-day lead applied when a transfer
// request does not specify an arrival date.
const defaultTransferLeadDays = 2

// BuildMirror synthesizes the inbound counterpart of a transfer's outbound
// leg. The mirror lands at the destination warehouse, back-references the
// primary header, and clones the primary's detail lines with status forced
// to Pending. IDs and the reference number are left blank for the create
// path to fill; the mirror draws from the inbound sequence like any other
// inbound transaction.
func BuildMirror(primary Header, details []Detail, fields TransferFields) (Header, []Detail) {
	date := fields.TransferDate
	if date.IsZero() {
		date = AddBusinessDays(primary.Date, defaultTransferLeadDays)
	}
	mirror := Header{
		Type:                 TxInbound,
		Date:                 date,
		Warehouse:            fields.DestinationWarehouse,
		ReferenceType:        primary.ReferenceType,
		ShipmentCarrier:      primary.ShipmentCarrier,
		ShippingDocument:     primary.ShippingDocument,
		Comments:             primary.Comments,
		RelatedTransactionID: primary.ID,
	}
	mirrored := make([]Detail, len(details))
	for i, d := range details {
		invStatus := d.InventoryStatus
		if fields.InventoryStatusOverride != "" {
			invStatus = fields.InventoryStatusOverride
		}
		mirrored[i] = Detail{
			ItemName:        d.ItemName,
			Quantity:        d.Quantity,
			InventoryStatus: invStatus,
			Status:          StatusPending,
			LotNumber:       d.LotNumber,
			Comments:        d.Comments,
		}
	}
	return mirror, mirrored
}

// AddBusinessDays advances from by n weekdays, skipping Saturday and Sunday.
func AddBusinessDays(from time.Time, n int) time.Time {
	d := from
	for added := 0; added < n; {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return d
}

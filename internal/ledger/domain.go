package ledger

import (
	"errors"
	"time"
)

// TxType enumerates supported transaction headers.
type TxType string

const (
	// TxInbound represents an inbound receipt.
	TxInbound TxType = "INBOUND"
	// TxOutbound represents an outbound shipment, including the outbound leg of a transfer.
	TxOutbound TxType = "OUTBOUND"
	// TxAdjustment represents a manual or count-driven adjustment.
	TxAdjustment TxType = "ADJUSTMENT"
)

// DetailStatus enumerates line lifecycle states.
type DetailStatus string

const (
	// StatusPending is the initial state of every ordinary detail line.
	StatusPending DetailStatus = "PENDING"
	// StatusReceived is the terminal state for inbound lines.
	StatusReceived DetailStatus = "RECEIVED"
	// StatusShipped is the terminal state for outbound lines.
	StatusShipped DetailStatus = "SHIPPED"
	// StatusCompleted is the terminal state for adjustment lines.
	StatusCompleted DetailStatus = "COMPLETED"
)

// InventoryStatus classifies a quantity bucket.
type InventoryStatus string

const (
	// InvStock marks regular sellable stock.
	InvStock InventoryStatus = "STOCK"
	// InvConsignment marks consignment stock.
	InvConsignment InventoryStatus = "CONSIGNMENT"
	// InvHold marks quantities on hold.
	InvHold InventoryStatus = "HOLD"
)

// ReferenceTypeTransferOrder triggers mirror creation on the create path.
const ReferenceTypeTransferOrder = "Transfer Order"

// ReferenceTypeInventoryCount marks adjustments generated from a count session.
const ReferenceTypeInventoryCount = "Inventory Count"

// Header models one movement event in the ledger.
type Header struct {
	ID                   string
	Type                 TxType
	Date                 time.Time
	Warehouse            string
	ReferenceType        string
	ReferenceNumber      string
	ShipmentCarrier      string
	ShippingDocument     string
	CustomerPO           string
	CustomerName         string
	Comments             string
	RelatedTransactionID string
	CreatedAt            time.Time
}

// Detail models one item-quantity line owned by a header. Quantity is always
// a magnitude; direction is implied by the header type.
type Detail struct {
	ID              string
	TransactionID   string
	ItemName        string
	Quantity        int64
	InventoryStatus InventoryStatus
	Status          DetailStatus
	LotNumber       string
	Comments        string
}

// ItemInput describes one requested detail line.
type ItemInput struct {
	ItemName  string
	Quantity  int64
	LotNumber string
	Comments  string
}

// TransferFields carries the extra inputs of a transfer create request.
type TransferFields struct {
	DestinationWarehouse    string
	TransferDate            time.Time
	InventoryStatusOverride InventoryStatus
}

// CreateInput describes a transaction create request.
type CreateInput struct {
	Type             TxType
	Date             time.Time
	Warehouse        string
	ReferenceType    string
	Items            []ItemInput
	Status           DetailStatus
	InventoryStatus  InventoryStatus
	ShipmentCarrier  string
	ShippingDocument string
	CustomerPO       string
	CustomerName     string
	Comments         string
	Transfer         *TransferFields
	IdempotencyKey   string
}

// HeaderUpdate lists the editable scalar header fields. Type and reference
// number are immutable after create.
type HeaderUpdate struct {
	Date             *time.Time
	Warehouse        *string
	ReferenceType    *string
	ShipmentCarrier  *string
	ShippingDocument *string
	CustomerPO       *string
	CustomerName     *string
	Comments         *string
}

// DetailUpdate lists the editable detail fields.
type DetailUpdate struct {
	Quantity        *int64
	InventoryStatus *InventoryStatus
	Status          *DetailStatus
	LotNumber       *string
	Comments        *string
}

// ListFilter narrows transaction listings.
type ListFilter struct {
	Warehouse string
	Type      TxType
	Page      int
	PerPage   int
}

// ErrReferenceConflict indicates a reference number collided with a
// concurrent create; the mint loop retries on it.
var ErrReferenceConflict = errors.New("ledger: reference number conflict")

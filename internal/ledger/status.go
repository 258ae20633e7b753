package ledger

// validStatuses is the line-status table per header type. A status may only
// be written when it appears here for the owning header's type.
var validStatuses = map[TxType][]DetailStatus{
	TxInbound:    {StatusPending, StatusReceived},
	TxOutbound:   {StatusPending, StatusShipped},
	TxAdjustment: {StatusPending, StatusCompleted},
}

// terminalStatus maps each type to the status its pending lines advance to.
var terminalStatus = map[TxType]DetailStatus{
	TxInbound:    StatusReceived,
	TxOutbound:   StatusShipped,
	TxAdjustment: StatusCompleted,
}

// ValidStatus reports whether status is legal for the given header type.
// Types outside the table accept any status; they only fail on advance.
func ValidStatus(t TxType, status DetailStatus) bool {
	allowed, ok := validStatuses[t]
	if !ok {
		return true
	}
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

// NextStatus returns the terminal status pending lines of the given type
// advance to. ok is false when the type has no next step defined.
func NextStatus(t TxType) (DetailStatus, bool) {
	s, ok := terminalStatus[t]
	return s, ok
}

// KnownType reports whether t is one of the closed set of creatable types.
func KnownType(t TxType) bool {
	_, ok := validStatuses[t]
	return ok
}

// KnownInventoryStatus reports whether s is a recognised sub-status.
func KnownInventoryStatus(s InventoryStatus) bool {
	switch s {
	case InvStock, InvConsignment, InvHold:
		return true
	}
	return false
}

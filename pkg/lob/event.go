package lob

// EventKind is a closed tagged set matching spec §6.
type EventKind uint8

const (
	Accepted EventKind = iota
	Rejected
	Cancelled
	Modified
	Trade
	// Halted is not in spec §6's literal event list but is the "final
	// diagnostic event" §7 requires on a fatal invariant violation.
	Halted
)

func (k EventKind) String() string {
	switch k {
	case Accepted:
		return "ACCEPTED"
	case Rejected:
		return "REJECTED"
	case Cancelled:
		return "CANCELLED"
	case Modified:
		return "MODIFIED"
	case Trade:
		return "TRADE"
	case Halted:
		return "HALTED"
	default:
		return "UNKNOWN_EVENT"
	}
}

// RejectReason enumerates the non-fatal rejection taxonomy of spec §7.
type RejectReason uint8

const (
	ReasonNone RejectReason = iota
	ReasonDuplicateID
	ReasonUnknownOrder
	ReasonInsufficientLiquidity
	ReasonFillOrKillUnsatisfied
	ReasonArenaExhausted
	ReasonMalformedCommand
)

func (r RejectReason) String() string {
	switch r {
	case ReasonDuplicateID:
		return "DuplicateId"
	case ReasonUnknownOrder:
		return "UnknownOrder"
	case ReasonInsufficientLiquidity:
		return "InsufficientLiquidity"
	case ReasonFillOrKillUnsatisfied:
		return "FillOrKillUnsatisfied"
	case ReasonArenaExhausted:
		return "ArenaExhausted"
	case ReasonMalformedCommand:
		return "MalformedCommand"
	default:
		return "None"
	}
}

// Event is the record the engine publishes to the event ring. One struct
// shape carries every kind; unused fields are zero. This keeps the event
// ring a fixed-size value type with no heap allocation per publish.
type Event struct {
	Kind      EventKind
	Sequence  Sequence
	Timestamp Timestamp
	ClientTag uint64

	OrderID OrderID

	// Accepted
	RestingQty Quantity

	// Rejected
	Reason RejectReason

	// Cancelled
	RemainingQty Quantity

	// Trade
	MakerID        OrderID
	TakerID        OrderID
	TradePrice     Price
	TradeQuantity  Quantity
	MakerRemaining Quantity
	TakerRemaining Quantity

	// Halted
	Diagnostic string
}

// Package lob defines the wire-level vocabulary shared between the matching
// core and its external producers/consumers: prices, quantities, order ids,
// commands and events. Nothing in this package touches the book or the
// arena directly; it is the contract described in spec §3 and §6.
package lob

import "fmt"

// Price is a signed fixed-point integer in exchange-defined ticks. No
// floating point is used anywhere on the hot path.
type Price int64

// Quantity is an unsigned integer number of lots.
type Quantity uint64

// OrderID is opaque to the engine; producers map foreign identifiers
// (string UUIDs, exchange order numbers) to stable uint64 values
// themselves, typically via a collision-resistant hash (see
// internal/ingress for a demo mapper).
type OrderID uint64

// Sequence is the engine-assigned total order over every event it emits.
type Sequence uint64

// Timestamp is a monotonic counter assigned by the engine, advanced by
// one for each command it processes. It is not wall-clock time and
// does not measure nanoseconds or any other unit of time.
type Timestamp uint64

// Side identifies which book a price lives on.
type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "BID"
	case Ask:
		return "ASK"
	default:
		return "UNKNOWN_SIDE"
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// TimeInForce governs what happens to unfilled residual quantity.
type TimeInForce uint8

const (
	// GTC rests any residual quantity on the book.
	GTC TimeInForce = iota
	// IOC matches what it can immediately and discards the residual.
	IOC
	// FOK requires the full quantity to match immediately or the whole
	// order is rejected with no partial fill.
	FOK
)

func (t TimeInForce) String() string {
	switch t {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	default:
		return "UNKNOWN_TIF"
	}
}

// OrderType distinguishes priced limit orders from unpriced market orders.
type OrderType uint8

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "LIMIT"
	case Market:
		return "MARKET"
	default:
		return "UNKNOWN_TYPE"
	}
}

// String renders a price at two implied decimal places for log/CLI
// output only; the engine itself never divides or scales a Price.
func (p Price) String() string {
	sign := ""
	if p < 0 {
		sign = "-"
	}
	v := abs64(int64(p))
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

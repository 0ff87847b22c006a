package book

import "github.com/cedrichaddad/flash-lob/pkg/lob"

// LevelView is one row of a book snapshot: a price and its aggregate
// resting quantity/order count, with no reference back into the
// arena — a reader can hold a Snapshot indefinitely without pinning
// any live handle (spec §6).
type LevelView struct {
	Price      lob.Price
	Quantity   lob.Quantity
	OrderCount uint32
}

// Snapshot is the read-only, depth-truncated view of both sides of the
// book, best price first on each side.
type Snapshot struct {
	Symbol    string
	Sequence  lob.Sequence
	Timestamp lob.Timestamp
	Bids      []LevelView
	Asks      []LevelView
}

// Snapshot builds a depth-truncated, point-in-time copy of the book.
// Building is O(depth), not O(book size): it only walks the first
// `depth` price levels of each side. Callers typically invoke this
// from the engine loop at a configured cadence and publish the result
// through a double-buffered slot (spec §5) rather than calling it from
// an external reader directly.
func (b *Book) Snapshot(depth int) Snapshot {
	return Snapshot{
		Symbol:    b.Symbol,
		Sequence:  b.nextSequence,
		Timestamp: b.nextTimestamp,
		Bids:      levelViews(b.bids.depth(depth)),
		Asks:      levelViews(b.asks.depth(depth)),
	}
}

func levelViews(levels []*PriceLevel) []LevelView {
	out := make([]LevelView, len(levels))
	for i, lvl := range levels {
		out[i] = LevelView{
			Price:      lvl.Price,
			Quantity:   lvl.AggregateQty,
			OrderCount: lvl.OrderCount,
		}
	}
	return out
}

// Package book implements the price-time priority order book: sorted
// price levels per side, O(1) order lookup and mutation via the arena,
// and the matching algorithm of spec §4.3-§4.4.
package book

import (
	"github.com/cedrichaddad/flash-lob/internal/arena"
	"github.com/cedrichaddad/flash-lob/pkg/lob"
	"go.uber.org/zap"
)

// Book owns the two sorted price-level maps, the order-id index, and
// the arena every resting order lives in. A Book is never mutated by
// more than one goroutine at a time (spec §5): the engine is its sole
// writer.
type Book struct {
	Symbol string

	bids *sideBook
	asks *sideBook

	index map[lob.OrderID]arena.Handle
	nodes *arena.Arena

	nextTimestamp lob.Timestamp
	nextSequence  lob.Sequence

	log *zap.Logger
}

// New constructs an empty book backed by an arena of the given
// capacity (one arena per book, per spec §4.1/§9 "one instance per
// symbol").
func New(symbol string, arenaCapacity int, log *zap.Logger) *Book {
	if log == nil {
		log = zap.NewNop()
	}
	return &Book{
		Symbol: symbol,
		bids:   newSideBook(true),
		asks:   newSideBook(false),
		index:  make(map[lob.OrderID]arena.Handle),
		nodes:  arena.New(arenaCapacity),
		log:    log.With(zap.String("symbol", symbol)),
	}
}

// sideMap returns the side map an order of the given side rests on.
func (b *Book) sideMap(s lob.Side) *sideBook {
	if s == lob.Bid {
		return b.bids
	}
	return b.asks
}

// BestBid returns the best (highest) bid price, if any bids rest.
func (b *Book) BestBid() (lob.Price, bool) { return b.bids.bestPrice() }

// BestAsk returns the best (lowest) ask price, if any asks rest.
func (b *Book) BestAsk() (lob.Price, bool) { return b.asks.bestPrice() }

// OrderCount returns the number of resting orders currently indexed.
func (b *Book) OrderCount() int { return len(b.index) }

// ArenaLive returns the arena's live-slot count, for metrics/snapshots.
func (b *Book) ArenaLive() int { return b.nodes.Live() }

// ArenaCapacity returns the arena's total slot count.
func (b *Book) ArenaCapacity() int { return b.nodes.Capacity() }

func (b *Book) nextTS() lob.Timestamp {
	b.nextTimestamp++
	return b.nextTimestamp
}

func (b *Book) nextSeq() lob.Sequence {
	b.nextSequence++
	return b.nextSequence
}

// RestingQuantity returns the current remaining quantity of order id,
// used by callers (e.g. Modify) that need to read a live order without
// exposing the raw handle.
func (b *Book) RestingQuantity(id lob.OrderID) (lob.Quantity, bool) {
	h, ok := b.index[id]
	if !ok {
		return 0, false
	}
	node, err := b.nodes.Get(h)
	if err != nil {
		return 0, false
	}
	return node.RemainingQty, true
}

package book

import (
	"github.com/cedrichaddad/flash-lob/internal/arena"
	apperrors "github.com/cedrichaddad/flash-lob/pkg/errors"
	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

// Place processes an incoming order (spec §4.3): it assigns
// timestamp/sequence, rejects duplicate ids, matches against the
// opposite side under price-time priority, and disposes of any
// residual quantity according to TimeInForce. It returns the ordered
// event stream for this one command — zero or more Trade events
// followed by exactly one terminal event, except that an IOC order
// with an unfilled residual gets no terminal event — or a FatalError if an
// invariant is violated along the way, in which case the engine must
// halt.
func (b *Book) Place(cmd lob.Command) ([]lob.Event, error) {
	ts := b.nextTS()

	if _, exists := b.index[cmd.OrderID]; exists {
		return []lob.Event{b.rejectedEvent(cmd, ts, lob.ReasonDuplicateID)}, nil
	}

	remaining := cmd.Quantity
	opp := b.sideMap(cmd.Side.Opposite())

	if cmd.TIF == lob.FOK {
		if !enoughLiquidity(opp, cmd) {
			return []lob.Event{b.rejectedEvent(cmd, ts, lob.ReasonFillOrKillUnsatisfied)}, nil
		}
	}

	trades, remaining, err := b.matchAgainst(opp, cmd, ts, remaining)
	if err != nil {
		return nil, err
	}

	switch cmd.TIF {
	case lob.FOK:
		// The pre-scan guarantees full fill; remaining must be zero.
		if remaining > 0 {
			return nil, apperrors.Fatalf(apperrors.CodeInvariantViolation,
				"FOK order %d left %d unmatched after a satisfied liquidity pre-scan", cmd.OrderID, remaining)
		}
		return append(trades, b.acceptedEvent(cmd, ts, 0)), nil

	case lob.IOC:
		if remaining > 0 {
			return trades, nil // residual discarded, no terminal event for it
		}
		return append(trades, b.acceptedEvent(cmd, ts, 0)), nil

	default: // GTC
		if cmd.OrderType == lob.Market {
			if remaining > 0 {
				return append(trades, b.rejectedEvent(cmd, ts, lob.ReasonInsufficientLiquidity)), nil
			}
			return append(trades, b.acceptedEvent(cmd, ts, 0)), nil
		}

		if remaining == 0 {
			return append(trades, b.acceptedEvent(cmd, ts, 0)), nil
		}

		_, err := b.rest(cmd, ts, remaining)
		if err != nil {
			if err == arenaExhaustedMarker {
				return append(trades, b.rejectedEvent(cmd, ts, lob.ReasonArenaExhausted)), nil
			}
			return nil, err
		}
		return append(trades, b.acceptedEvent(cmd, ts, remaining)), nil
	}
}

// enoughLiquidity implements the FOK non-destructive pre-scan (spec
// §4.3 strategy (a)): sum the aggregate quantity of every eligible
// opposing level without mutating any state, short-circuiting once Q
// is covered.
func enoughLiquidity(opp *sideBook, cmd lob.Command) bool {
	need := cmd.Quantity
	for _, lvl := range opp.prices {
		level := opp.levels[lvl]
		if !eligible(cmd, level.Price) {
			break
		}
		if level.AggregateQty >= need {
			return true
		}
		need -= level.AggregateQty
	}
	return need == 0
}

// eligible reports whether a resting level at price levelPrice crosses
// an incoming order (spec §4.3 step 3): always for Market orders; for
// Limit orders, only if the level's price crosses the incoming price.
func eligible(cmd lob.Command, levelPrice lob.Price) bool {
	if cmd.OrderType == lob.Market {
		return true
	}
	if cmd.Side == lob.Bid {
		return levelPrice <= cmd.Price
	}
	return levelPrice >= cmd.Price
}

// matchAgainst walks the opposing side best-price-first, and within
// each level head-first, consuming liquidity until remaining reaches
// zero or no eligible level remains. It is the sole place book state
// is mutated during matching.
func (b *Book) matchAgainst(opp *sideBook, cmd lob.Command, ts lob.Timestamp, remaining lob.Quantity) ([]lob.Event, lob.Quantity, error) {
	var trades []lob.Event

	for remaining > 0 {
		level := opp.best()
		if level == nil || !eligible(cmd, level.Price) {
			break
		}

		for remaining > 0 && !level.Head.IsNull() {
			headHandle := level.Head
			head, err := b.nodes.GetMut(headHandle)
			if err != nil {
				return nil, remaining, apperrors.Fatalf(apperrors.CodeInvalidHandle,
					"level at price %v head handle %v failed to dereference", level.Price, headHandle).WithCause(err)
			}

			m := remaining
			if head.RemainingQty < m {
				m = head.RemainingQty
			}

			makerID := head.OrderID
			makerRemBefore := head.RemainingQty

			ev := b.tradeEvent(ts, cmd.ClientTag, makerID, cmd.OrderID, level.Price, m, makerRemBefore-m, remaining-m)
			trades = append(trades, ev)

			remaining -= m
			head.RemainingQty -= m
			level.AggregateQty -= m

			if head.RemainingQty == 0 {
				delete(b.index, makerID)
				if err := unlink(b.nodes, level, headHandle); err != nil {
					return nil, remaining, apperrors.Fatalf(apperrors.CodeTornListLinks,
						"unlinking filled maker %d from level %v", makerID, level.Price).WithCause(err)
				}
				if err := b.nodes.Free(headHandle); err != nil {
					return nil, remaining, apperrors.Fatalf(apperrors.CodeInvalidHandle,
						"freeing filled maker %d handle %v", makerID, headHandle).WithCause(err)
				}
			}
		}

		if level.isEmpty() {
			opp.remove(level.Price)
		}
	}

	return trades, remaining, nil
}

// arenaExhaustedMarker is a sentinel distinguishing "ran out of arena
// slots" (a Rejected, not fatal) from every other rest() failure.
var arenaExhaustedMarker = &sentinelErr{"arena exhausted"}

type sentinelErr struct{ msg string }

func (e *sentinelErr) Error() string { return e.msg }

// rest allocates a node for the unfilled residual of a GTC limit order
// and appends it to the tail of its price level, creating the level if
// this is the first order at that price (spec §4.3 step 4).
func (b *Book) rest(cmd lob.Command, ts lob.Timestamp, qty lob.Quantity) (arena.Handle, error) {
	h, err := b.nodes.Alloc()
	if err != nil {
		return arena.NullHandle, arenaExhaustedMarker
	}

	node, err := b.nodes.GetMut(h)
	if err != nil {
		return arena.NullHandle, apperrors.Fatalf(apperrors.CodeInvalidHandle, "freshly allocated handle %v failed to dereference", h).WithCause(err)
	}
	node.OrderID = cmd.OrderID
	node.Price = cmd.Price
	node.RemainingQty = qty
	node.Side = cmd.Side
	node.OrderType = cmd.OrderType
	node.TIF = cmd.TIF
	node.Timestamp = ts
	node.Sequence = b.nextSeq()

	side := b.sideMap(cmd.Side)
	lvl := side.getOrCreate(cmd.Price)
	node.Level = arena.NullHandle // level is addressed by price, not handle; see DESIGN.md

	if err := pushTail(b.nodes, lvl, h); err != nil {
		return arena.NullHandle, apperrors.Fatalf(apperrors.CodeTornListLinks, "pushing new order %d onto level %v", cmd.OrderID, cmd.Price).WithCause(err)
	}

	b.index[cmd.OrderID] = h
	return h, nil
}

// acceptedEvent, rejectedEvent, and tradeEvent each mint their own
// sequence number via b.nextSeq() rather than taking one as a
// parameter: spec §8's property P4 requires the Sequence field to form
// a single strictly-increasing series across every event a command
// emits, not one shared value per command.
func (b *Book) acceptedEvent(cmd lob.Command, ts lob.Timestamp, resting lob.Quantity) lob.Event {
	return lob.Event{
		Kind:       lob.Accepted,
		Sequence:   b.nextSeq(),
		Timestamp:  ts,
		ClientTag:  cmd.ClientTag,
		OrderID:    cmd.OrderID,
		RestingQty: resting,
	}
}

func (b *Book) rejectedEvent(cmd lob.Command, ts lob.Timestamp, reason lob.RejectReason) lob.Event {
	return lob.Event{
		Kind:      lob.Rejected,
		Sequence:  b.nextSeq(),
		Timestamp: ts,
		ClientTag: cmd.ClientTag,
		OrderID:   cmd.OrderID,
		Reason:    reason,
	}
}

func (b *Book) tradeEvent(ts lob.Timestamp, clientTag uint64, makerID, takerID lob.OrderID, price lob.Price, qty, makerRemaining, takerRemaining lob.Quantity) lob.Event {
	return lob.Event{
		Kind:           lob.Trade,
		Sequence:       b.nextSeq(),
		Timestamp:      ts,
		ClientTag:      clientTag,
		MakerID:        makerID,
		TakerID:        takerID,
		TradePrice:     price,
		TradeQuantity:  qty,
		MakerRemaining: makerRemaining,
		TakerRemaining: takerRemaining,
	}
}

package book

import (
	apperrors "github.com/cedrichaddad/flash-lob/pkg/errors"
	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

// Cancel removes a resting order in O(1) (spec §4.4). Cancelling an
// unknown id is a no-op that emits Rejected(UnknownOrder) and never
// mutates the book (property P7).
func (b *Book) Cancel(cmd lob.Command) ([]lob.Event, error) {
	ts := b.nextTS()

	h, ok := b.index[cmd.OrderID]
	if !ok {
		return []lob.Event{b.rejectedEvent(cmd, ts, lob.ReasonUnknownOrder)}, nil
	}

	node, err := b.nodes.Get(h)
	if err != nil {
		return nil, apperrors.Fatalf(apperrors.CodeInvalidHandle, "cancel: indexed order %d handle %v failed to dereference", cmd.OrderID, h).WithCause(err)
	}
	remaining := node.RemainingQty
	price := node.Price
	side := node.Side

	lvl := b.sideMap(side).get(price)
	if lvl == nil {
		return nil, apperrors.Fatalf(apperrors.CodeInvariantViolation, "cancel: order %d references price %v with no level on side %v", cmd.OrderID, price, side)
	}

	if err := unlink(b.nodes, lvl, h); err != nil {
		return nil, apperrors.Fatalf(apperrors.CodeTornListLinks, "cancel: unlinking order %d", cmd.OrderID).WithCause(err)
	}
	lvl.AggregateQty -= remaining
	if lvl.isEmpty() {
		b.sideMap(side).remove(price)
	}

	delete(b.index, cmd.OrderID)
	if err := b.nodes.Free(h); err != nil {
		return nil, apperrors.Fatalf(apperrors.CodeInvalidHandle, "cancel: freeing order %d handle %v", cmd.OrderID, h).WithCause(err)
	}

	return []lob.Event{{
		Kind:         lob.Cancelled,
		Sequence:     b.nextSeq(),
		Timestamp:    ts,
		ClientTag:    cmd.ClientTag,
		OrderID:      cmd.OrderID,
		RemainingQty: remaining,
	}}, nil
}

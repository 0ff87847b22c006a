package book

import (
	"github.com/cedrichaddad/flash-lob/internal/arena"
	apperrors "github.com/cedrichaddad/flash-lob/pkg/errors"
	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

// Modify implements spec §4.4's cancel-then-place semantics. A
// quantity-only reduction at the unchanged price is mutated in place,
// preserving time priority and emitting a single Modified event; any
// other change (new price, or a quantity increase) loses priority and
// is a genuine cancel followed by a synthetic Place, which may match
// immediately.
func (b *Book) Modify(cmd lob.Command) ([]lob.Event, error) {
	h, ok := b.index[cmd.OrderID]
	if !ok {
		ts := b.nextTS()
		return []lob.Event{b.rejectedEvent(cmd, ts, lob.ReasonUnknownOrder)}, nil
	}

	node, err := b.nodes.Get(h)
	if err != nil {
		return nil, apperrors.Fatalf(apperrors.CodeInvalidHandle, "modify: indexed order %d handle %v failed to dereference", cmd.OrderID, h).WithCause(err)
	}

	if cmd.NewPrice == node.Price && cmd.NewQuantity <= node.RemainingQty {
		return b.modifyInPlace(cmd, h)
	}

	side, orderType, tif := node.Side, node.OrderType, node.TIF

	cancelEvents, err := b.Cancel(lob.Command{
		Kind:      lob.CancelCommand,
		OrderID:   cmd.OrderID,
		ClientTag: cmd.ClientTag,
	})
	if err != nil {
		return nil, err
	}

	placeEvents, err := b.Place(lob.Command{
		Kind:      lob.PlaceCommand,
		OrderID:   cmd.OrderID,
		Side:      side,
		OrderType: orderType,
		TIF:       tif,
		Price:     cmd.NewPrice,
		Quantity:  cmd.NewQuantity,
		ClientTag: cmd.ClientTag,
	})
	if err != nil {
		return nil, err
	}

	return append(cancelEvents, placeEvents...), nil
}

// modifyInPlace reduces a resting order's quantity without touching
// its position in the price level's list, preserving time priority.
func (b *Book) modifyInPlace(cmd lob.Command, h arena.Handle) ([]lob.Event, error) {
	ts := b.nextTS()

	node, err := b.nodes.GetMut(h)
	if err != nil {
		return nil, apperrors.Fatalf(apperrors.CodeInvalidHandle, "modify: order %d handle %v failed to dereference", cmd.OrderID, h).WithCause(err)
	}

	lvl := b.sideMap(node.Side).get(node.Price)
	if lvl == nil {
		return nil, apperrors.Fatalf(apperrors.CodeInvariantViolation, "modify: order %d references price %v with no level on side %v", cmd.OrderID, node.Price, node.Side)
	}

	diff := node.RemainingQty - cmd.NewQuantity
	node.RemainingQty = cmd.NewQuantity
	lvl.AggregateQty -= diff
	// node.Timestamp and node.Sequence are deliberately left untouched:
	// this path exists to preserve the order's position in the level's
	// time-priority list (I5), and re-stamping either would move it to
	// the back of that ordering without actually moving it in the list.

	return []lob.Event{{
		Kind:         lob.Modified,
		Sequence:     b.nextSeq(),
		Timestamp:    ts,
		ClientTag:    cmd.ClientTag,
		OrderID:      cmd.OrderID,
		RemainingQty: cmd.NewQuantity,
	}}, nil
}

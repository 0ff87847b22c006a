package book

import (
	"github.com/cedrichaddad/flash-lob/internal/arena"
	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

// PriceLevel is the intrusive doubly linked list of order handles
// resting at one price (spec §3, §4.2). The list itself lives in the
// arena: Head/Tail are handles, and each node's Prev/Next fields are
// the actual links. PriceLevel only remembers the ends and the
// aggregates that would otherwise require a full scan to recompute.
type PriceLevel struct {
	Price        lob.Price
	Head         arena.Handle
	Tail         arena.Handle
	AggregateQty lob.Quantity
	OrderCount   uint32
}

func newPriceLevel(price lob.Price) *PriceLevel {
	return &PriceLevel{
		Price: price,
		Head:  arena.NullHandle,
		Tail:  arena.NullHandle,
	}
}

// pushTail links node h onto the tail of the level's list in O(1),
// preserving time priority: the new order is always the most recent.
func pushTail(a *arena.Arena, lvl *PriceLevel, h arena.Handle) error {
	node, err := a.GetMut(h)
	if err != nil {
		return err
	}
	node.Prev = lvl.Tail
	node.Next = arena.NullHandle

	if lvl.Tail.IsNull() {
		lvl.Head = h
	} else {
		tail, err := a.GetMut(lvl.Tail)
		if err != nil {
			return err
		}
		tail.Next = h
	}
	lvl.Tail = h

	lvl.AggregateQty += node.RemainingQty
	lvl.OrderCount++
	return nil
}

// unlink removes node h from the level's list in O(1) using its own
// Prev/Next fields directly — no search. It does not free the slot or
// touch AggregateQty; callers adjust those themselves since they
// already know the quantity being removed.
func unlink(a *arena.Arena, lvl *PriceLevel, h arena.Handle) error {
	node, err := a.GetMut(h)
	if err != nil {
		return err
	}

	if node.Prev.IsNull() {
		lvl.Head = node.Next
	} else {
		prev, err := a.GetMut(node.Prev)
		if err != nil {
			return err
		}
		prev.Next = node.Next
	}

	if node.Next.IsNull() {
		lvl.Tail = node.Prev
	} else {
		next, err := a.GetMut(node.Next)
		if err != nil {
			return err
		}
		next.Prev = node.Prev
	}

	lvl.OrderCount--
	return nil
}

// isEmpty reports whether the level has no resting orders (spec I4: a
// level is present in the side map iff OrderCount > 0).
func (lvl *PriceLevel) isEmpty() bool {
	return lvl.OrderCount == 0
}

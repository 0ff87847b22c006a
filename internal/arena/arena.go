// Package arena implements the fixed-capacity slot allocator spec §4.1
// describes: O(1) alloc/free via an intrusive free list, 32-bit compact
// handles in place of pointers, and generation tags that turn
// use-after-free into a detectable InvalidHandle rather than silently
// reading stale data.
package arena

import (
	"errors"
	"fmt"
)

// ErrExhausted is returned by Alloc when no free slot remains.
var ErrExhausted = errors.New("arena: exhausted")

// ErrInvalidHandle is returned by Get/GetMut/Free when a handle's
// generation tag does not match the slot's current generation, or the
// slot index is out of range.
var ErrInvalidHandle = errors.New("arena: invalid handle")

// Arena is a contiguous, pre-allocated slab of Node slots plus a
// parallel generation-tag array and an intrusive free list threaded
// through the Next field of free slots. Capacity is fixed at
// construction; there is no dynamic growth on the hot path.
type Arena struct {
	nodes       []Node
	generations []uint32
	freeHead    Handle // NullHandle when the free list is empty
	live        int
}

// New allocates an Arena with room for capacity live nodes. capacity
// must be less than 2^20 (the handle's slot-index width).
func New(capacity int) *Arena {
	if capacity <= 0 {
		panic("arena: capacity must be positive")
	}
	if capacity >= maxSlots {
		panic(fmt.Sprintf("arena: capacity %d exceeds max slot count %d", capacity, maxSlots-1))
	}

	a := &Arena{
		nodes:       make([]Node, capacity),
		generations: make([]uint32, capacity),
	}
	a.reset()
	return a
}

// reset threads every slot onto the free list in index order, slot 0
// first. It is only ever called from New: a live Arena never resets
// itself mid-flight.
func (a *Arena) reset() {
	a.freeHead = NullHandle
	for i := len(a.nodes) - 1; i >= 0; i-- {
		a.nodes[i] = Node{}
		a.nodes[i].Next = a.freeHead
		a.freeHead = newHandle(uint32(i), a.generations[i])
	}
	a.live = 0
}

// Capacity returns the total number of slots the arena was built with.
func (a *Arena) Capacity() int { return len(a.nodes) }

// Live returns the number of currently allocated slots.
func (a *Arena) Live() int { return a.live }

// Alloc pops the free-list head in O(1) and returns a handle whose
// generation is the slot's current tag (bumped by the Free call that
// last returned this slot, so it is distinct from any handle a caller
// may still be holding into this slot from before).
func (a *Arena) Alloc() (Handle, error) {
	if a.freeHead.IsNull() {
		return NullHandle, ErrExhausted
	}

	h := a.freeHead
	slot := h.slot()
	a.freeHead = a.nodes[slot].Next

	a.nodes[slot] = Node{}
	a.nodes[slot].Generation = a.generations[slot]
	a.live++

	return newHandle(slot, a.generations[slot]), nil
}

// Free pushes the slot back onto the free-list head and bumps its
// generation tag, invalidating every handle into the slot issued
// before this call. O(1).
func (a *Arena) Free(h Handle) error {
	slot, err := a.checkedSlot(h)
	if err != nil {
		return err
	}

	a.generations[slot] = (a.generations[slot] + 1) & generationMask
	a.nodes[slot] = Node{}
	a.nodes[slot].Generation = a.generations[slot]
	a.nodes[slot].Next = a.freeHead
	a.freeHead = newHandle(slot, a.generations[slot])
	a.live--

	return nil
}

// Get returns a pointer to the node at h, or ErrInvalidHandle if the
// generation tag does not match. The pointer is the same one GetMut
// returns; nothing prevents writes through it.
func (a *Arena) Get(h Handle) (*Node, error) {
	slot, err := a.checkedSlot(h)
	if err != nil {
		return nil, err
	}
	return &a.nodes[slot], nil
}

// GetMut returns a mutable pointer to the node at h, or
// ErrInvalidHandle if the generation tag does not match.
func (a *Arena) GetMut(h Handle) (*Node, error) {
	return a.Get(h)
}

// checkedSlot validates that h addresses a live slot with a matching
// generation tag, returning the raw slot index.
func (a *Arena) checkedSlot(h Handle) (uint32, error) {
	if h.IsNull() {
		return 0, ErrInvalidHandle
	}
	slot := h.slot()
	if int(slot) >= len(a.nodes) {
		return 0, ErrInvalidHandle
	}
	if h.generation() != a.generations[slot] {
		return 0, ErrInvalidHandle
	}
	return slot, nil
}

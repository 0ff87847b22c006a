package book

import (
	"fmt"

	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

// CheckInvariants performs a full-scan verification of I1-I6 (spec
// §3). It is not called on the hot path — the matching code enforces
// these properties structurally — but is the tool property tests
// (spec §8, P1) use to catch a regression that structural enforcement
// alone would miss.
func (b *Book) CheckInvariants() error {
	if err := b.checkSide(lob.Bid, b.bids); err != nil {
		return err
	}
	if err := b.checkSide(lob.Ask, b.asks); err != nil {
		return err
	}

	for id, h := range b.index {
		node, err := b.nodes.Get(h)
		if err != nil {
			return fmt.Errorf("I1: order %d's handle %v does not dereference: %w", id, h, err)
		}
		if node.OrderID != id {
			return fmt.Errorf("I1: handle %v's node claims order id %d, index key is %d", h, node.OrderID, id)
		}
	}

	bestBid, hasBid := b.BestBid()
	bestAsk, hasAsk := b.BestAsk()
	if hasBid && hasAsk && bestBid >= bestAsk {
		return fmt.Errorf("I6: book crossed at rest, best bid %v >= best ask %v", bestBid, bestAsk)
	}

	return nil
}

func (b *Book) checkSide(side lob.Side, s *sideBook) error {
	for price, lvl := range s.levels {
		if lvl.OrderCount == 0 {
			return fmt.Errorf("I4: empty level at price %v still present in %v side map", price, side)
		}

		var sum lob.Quantity
		var count uint32
		cur := lvl.Head
		var prevTS lob.Timestamp
		seenPrev := false

		for !cur.IsNull() {
			node, err := b.nodes.Get(cur)
			if err != nil {
				return fmt.Errorf("I2: level %v list references handle %v which does not dereference: %w", price, cur, err)
			}
			if node.Price != price || node.Side != side {
				return fmt.Errorf("I2: order %d at level %v/%v but node says price=%v side=%v", node.OrderID, price, side, node.Price, node.Side)
			}
			if seenPrev && node.Timestamp < prevTS {
				return fmt.Errorf("I5: level %v list order violates time priority at order %d", price, node.OrderID)
			}
			prevTS = node.Timestamp
			seenPrev = true

			sum += node.RemainingQty
			count++
			cur = node.Next
		}

		if sum != lvl.AggregateQty {
			return fmt.Errorf("I3: level %v aggregate_qty=%d but sum of resting=%d", price, lvl.AggregateQty, sum)
		}
		if count != lvl.OrderCount {
			return fmt.Errorf("I3: level %v order_count=%d but list length=%d", price, lvl.OrderCount, count)
		}
	}
	return nil
}

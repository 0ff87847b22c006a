package book

import (
	"sort"

	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

// sideBook is the sorted price -> PriceLevel map for one side of the
// book (spec §3: bids descending, asks ascending). No suitable ordered
// map or B-tree appears anywhere in the teacher or the rest of the
// retrieval pack, so this is a hand-rolled sorted slice of prices kept
// in step with a plain map — the one place this repository reaches for
// the standard library's sort package over a third-party structure
// (see DESIGN.md).
type sideBook struct {
	levels map[lob.Price]*PriceLevel
	prices []lob.Price // kept sorted in iteration order (best-first)
	desc   bool         // true for bids (descending), false for asks
}

func newSideBook(desc bool) *sideBook {
	return &sideBook{
		levels: make(map[lob.Price]*PriceLevel),
		desc:   desc,
	}
}

// less reports whether price a sorts before price b for this side.
func (s *sideBook) less(a, b lob.Price) bool {
	if s.desc {
		return a > b
	}
	return a < b
}

// searchInsertIndex returns the index at which price p belongs in the
// sorted prices slice, via binary search against the side's ordering.
func (s *sideBook) searchInsertIndex(p lob.Price) int {
	return sort.Search(len(s.prices), func(i int) bool {
		return s.less(p, s.prices[i]) || p == s.prices[i]
	})
}

// get returns the level at price p, or nil if absent.
func (s *sideBook) get(p lob.Price) *PriceLevel {
	return s.levels[p]
}

// getOrCreate returns the level at price p, creating and inserting an
// empty one into sorted position if absent.
func (s *sideBook) getOrCreate(p lob.Price) *PriceLevel {
	if lvl, ok := s.levels[p]; ok {
		return lvl
	}
	lvl := newPriceLevel(p)
	s.levels[p] = lvl

	idx := s.searchInsertIndex(p)
	s.prices = append(s.prices, 0)
	copy(s.prices[idx+1:], s.prices[idx:])
	s.prices[idx] = p

	return lvl
}

// remove deletes the level at price p from the side map (spec I4: only
// called once the level is empty).
func (s *sideBook) remove(p lob.Price) {
	if _, ok := s.levels[p]; !ok {
		return
	}
	delete(s.levels, p)

	idx := sort.Search(len(s.prices), func(i int) bool {
		return s.less(p, s.prices[i]) || p == s.prices[i]
	})
	if idx < len(s.prices) && s.prices[idx] == p {
		s.prices = append(s.prices[:idx], s.prices[idx+1:]...)
	}
}

// best returns the best (first-priority) level for this side, or nil
// if the side is empty.
func (s *sideBook) best() *PriceLevel {
	if len(s.prices) == 0 {
		return nil
	}
	return s.levels[s.prices[0]]
}

// bestPrice returns the best price and whether one exists.
func (s *sideBook) bestPrice() (lob.Price, bool) {
	if len(s.prices) == 0 {
		return 0, false
	}
	return s.prices[0], true
}

// depth returns up to n (price, level) pairs in best-first order.
func (s *sideBook) depth(n int) []*PriceLevel {
	if n > len(s.prices) {
		n = len(s.prices)
	}
	out := make([]*PriceLevel, n)
	for i := 0; i < n; i++ {
		out[i] = s.levels[s.prices[i]]
	}
	return out
}

// len returns the number of occupied price levels on this side.
func (s *sideBook) len() int {
	return len(s.prices)
}

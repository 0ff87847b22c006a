package book

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

func newTestBook(t *testing.T) *Book {
	t.Helper()
	return New("TEST", 1024, nil)
}

func place(id lob.OrderID, side lob.Side, price lob.Price, qty lob.Quantity, tif lob.TimeInForce) lob.Command {
	return lob.Command{Kind: lob.PlaceCommand, OrderID: id, Side: side, OrderType: lob.Limit, TIF: tif, Price: price, Quantity: qty}
}

func marketOrder(id lob.OrderID, side lob.Side, qty lob.Quantity, tif lob.TimeInForce) lob.Command {
	return lob.Command{Kind: lob.PlaceCommand, OrderID: id, Side: side, OrderType: lob.Market, TIF: tif, Quantity: qty}
}

// S1
func TestScenario_SingleRestingBid(t *testing.T) {
	b := newTestBook(t)
	events, err := b.Place(place(1, lob.Bid, 100, 10, lob.GTC))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, lob.Accepted, events[0].Kind)
	assert.EqualValues(t, 10, events[0].RestingQty)

	price, ok := b.BestBid()
	require.True(t, ok)
	assert.EqualValues(t, 100, price)
	require.NoError(t, b.CheckInvariants())
}

// S2, S3
func TestScenario_PartialThenFullCross(t *testing.T) {
	b := newTestBook(t)
	_, err := b.Place(place(1, lob.Bid, 100, 10, lob.GTC))
	require.NoError(t, err)

	events, err := b.Place(place(2, lob.Ask, 100, 4, lob.GTC))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, lob.Trade, events[0].Kind)
	assert.EqualValues(t, 1, events[0].MakerID)
	assert.EqualValues(t, 2, events[0].TakerID)
	assert.EqualValues(t, 4, events[0].TradeQuantity)
	assert.EqualValues(t, 6, events[0].MakerRemaining)
	assert.EqualValues(t, 0, events[0].TakerRemaining)
	assert.Equal(t, lob.Accepted, events[1].Kind)
	assert.EqualValues(t, 0, events[1].RestingQty)

	qty, ok := b.RestingQuantity(1)
	require.True(t, ok)
	assert.EqualValues(t, 6, qty)
	require.NoError(t, b.CheckInvariants())

	events, err = b.Place(place(3, lob.Ask, 100, 10, lob.GTC))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.EqualValues(t, 6, events[0].TradeQuantity)
	assert.EqualValues(t, 0, events[0].MakerRemaining)
	assert.EqualValues(t, 4, events[0].TakerRemaining)
	assert.Equal(t, lob.Accepted, events[1].Kind)
	assert.EqualValues(t, 4, events[1].RestingQty)

	_, hasBid := b.BestBid()
	assert.False(t, hasBid)
	price, ok := b.BestAsk()
	require.True(t, ok)
	assert.EqualValues(t, 100, price)
	require.NoError(t, b.CheckInvariants())
}

// S4
func TestScenario_FOKRejectedNoLevelCrosses(t *testing.T) {
	b := newTestBook(t)
	_, err := b.Place(place(3, lob.Ask, 100, 4, lob.GTC))
	require.NoError(t, err)

	events, err := b.Place(place(4, lob.Bid, 99, 5, lob.FOK))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, lob.Rejected, events[0].Kind)
	assert.Equal(t, lob.ReasonFillOrKillUnsatisfied, events[0].Reason)

	qty, ok := b.RestingQuantity(3)
	require.True(t, ok)
	assert.EqualValues(t, 4, qty)
}

// S5
func TestScenario_FOKRejectedInsufficientDepth(t *testing.T) {
	b := newTestBook(t)
	_, err := b.Place(place(3, lob.Ask, 100, 4, lob.GTC))
	require.NoError(t, err)

	events, err := b.Place(place(5, lob.Bid, 101, 10, lob.FOK))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, lob.Rejected, events[0].Kind)
	assert.Equal(t, lob.ReasonFillOrKillUnsatisfied, events[0].Reason)

	qty, ok := b.RestingQuantity(3)
	require.True(t, ok)
	assert.EqualValues(t, 4, qty)
}

// FOK should succeed across multiple eligible levels when their
// combined liquidity covers the order, per spec §4.3's "sums across
// eligible levels" rule.
func TestFOKSucceedsAcrossMultipleLevels(t *testing.T) {
	b := newTestBook(t)
	_, err := b.Place(place(1, lob.Ask, 100, 3, lob.GTC))
	require.NoError(t, err)
	_, err = b.Place(place(2, lob.Ask, 101, 5, lob.GTC))
	require.NoError(t, err)

	events, err := b.Place(place(3, lob.Bid, 101, 8, lob.FOK))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, lob.Trade, events[0].Kind)
	assert.Equal(t, lob.Trade, events[1].Kind)
	assert.Equal(t, lob.Accepted, events[2].Kind)
}

// S6
func TestScenario_IOCDiscardsResidual(t *testing.T) {
	b := newTestBook(t)
	_, err := b.Place(place(3, lob.Ask, 100, 4, lob.GTC))
	require.NoError(t, err)

	events, err := b.Place(place(6, lob.Bid, 100, 10, lob.IOC))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, lob.Trade, events[0].Kind)
	assert.EqualValues(t, 4, events[0].TradeQuantity)
	assert.EqualValues(t, 6, events[0].TakerRemaining)

	_, hasAsk := b.BestAsk()
	assert.False(t, hasAsk)
	_, indexed := b.index[6]
	assert.False(t, indexed, "IOC residual must never rest")
}

// S7
func TestScenario_PlaceThenCancel(t *testing.T) {
	b := newTestBook(t)
	events, err := b.Place(place(7, lob.Bid, 100, 5, lob.GTC))
	require.NoError(t, err)
	require.Len(t, events, 1)

	events, err = b.Cancel(lob.Command{Kind: lob.CancelCommand, OrderID: 7})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, lob.Cancelled, events[0].Kind)
	assert.EqualValues(t, 5, events[0].RemainingQty)

	assert.Equal(t, 0, b.OrderCount())
	assert.Equal(t, 0, b.ArenaLive())
}

// S8
func TestScenario_TimePriority(t *testing.T) {
	b := newTestBook(t)
	_, err := b.Place(place(100, lob.Bid, 100, 5, lob.GTC))
	require.NoError(t, err)
	_, err = b.Place(place(200, lob.Bid, 100, 5, lob.GTC))
	require.NoError(t, err)

	events, err := b.Place(place(300, lob.Ask, 100, 6, lob.GTC))
	require.NoError(t, err)
	require.Len(t, events, 3) // two trades + accepted

	assert.Equal(t, lob.Trade, events[0].Kind)
	assert.EqualValues(t, 100, events[0].MakerID)
	assert.EqualValues(t, 5, events[0].TradeQuantity)

	assert.Equal(t, lob.Trade, events[1].Kind)
	assert.EqualValues(t, 200, events[1].MakerID)
	assert.EqualValues(t, 1, events[1].TradeQuantity)

	qty, ok := b.RestingQuantity(200)
	require.True(t, ok)
	assert.EqualValues(t, 4, qty)
}

func TestCancelUnknownOrderIsNoop(t *testing.T) {
	b := newTestBook(t)
	_, err := b.Place(place(1, lob.Bid, 100, 5, lob.GTC))
	require.NoError(t, err)

	before := b.Snapshot(10)

	events, err := b.Cancel(lob.Command{Kind: lob.CancelCommand, OrderID: 999})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, lob.Rejected, events[0].Kind)
	assert.Equal(t, lob.ReasonUnknownOrder, events[0].Reason)

	after := b.Snapshot(10)
	assert.Equal(t, before.Bids, after.Bids)
	assert.Equal(t, before.Asks, after.Asks)
}

func TestDuplicateOrderIDRejected(t *testing.T) {
	b := newTestBook(t)
	_, err := b.Place(place(1, lob.Bid, 100, 5, lob.GTC))
	require.NoError(t, err)

	events, err := b.Place(place(1, lob.Bid, 101, 3, lob.GTC))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, lob.Rejected, events[0].Kind)
	assert.Equal(t, lob.ReasonDuplicateID, events[0].Reason)
}

func TestMarketOrderInsufficientLiquidityRejectsResidual(t *testing.T) {
	b := newTestBook(t)
	_, err := b.Place(place(1, lob.Ask, 100, 4, lob.GTC))
	require.NoError(t, err)

	events, err := b.Place(marketOrder(2, lob.Bid, 10, lob.GTC))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, lob.Trade, events[0].Kind)
	assert.Equal(t, lob.Rejected, events[1].Kind)
	assert.Equal(t, lob.ReasonInsufficientLiquidity, events[1].Reason)
}

func TestModifyQuantityReductionPreservesPriority(t *testing.T) {
	b := newTestBook(t)
	_, err := b.Place(place(1, lob.Bid, 100, 10, lob.GTC))
	require.NoError(t, err)
	_, err = b.Place(place(2, lob.Bid, 100, 10, lob.GTC))
	require.NoError(t, err)

	events, err := b.Modify(lob.Command{Kind: lob.ModifyCommand, OrderID: 1, NewPrice: 100, NewQuantity: 4})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, lob.Modified, events[0].Kind)

	// order 1 kept head position despite the reduction: a matching ask
	// for 4 should still trade against order 1 first.
	tradeEvents, err := b.Place(place(3, lob.Ask, 100, 4, lob.GTC))
	require.NoError(t, err)
	require.Len(t, tradeEvents, 2)
	assert.EqualValues(t, 1, tradeEvents[0].MakerID)
	require.NoError(t, b.CheckInvariants())
}

func TestModifyPriceChangeLosesPriorityAndMayMatch(t *testing.T) {
	b := newTestBook(t)
	_, err := b.Place(place(1, lob.Bid, 100, 10, lob.GTC))
	require.NoError(t, err)
	_, err = b.Place(place(2, lob.Ask, 105, 10, lob.GTC))
	require.NoError(t, err)

	events, err := b.Modify(lob.Command{Kind: lob.ModifyCommand, OrderID: 1, NewPrice: 105, NewQuantity: 10})
	require.NoError(t, err)
	// Cancelled + (Trade + Accepted-or-not): at 105 it crosses the
	// resting ask, so expect Cancelled, Trade, Accepted.
	require.Len(t, events, 3)
	assert.Equal(t, lob.Cancelled, events[0].Kind)
	assert.Equal(t, lob.Trade, events[1].Kind)
	assert.Equal(t, lob.Accepted, events[2].Kind)
	require.NoError(t, b.CheckInvariants())
}

func TestModifyUnknownOrderRejected(t *testing.T) {
	b := newTestBook(t)
	events, err := b.Modify(lob.Command{Kind: lob.ModifyCommand, OrderID: 42, NewPrice: 1, NewQuantity: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, lob.Rejected, events[0].Kind)
	assert.Equal(t, lob.ReasonUnknownOrder, events[0].Reason)
}

func TestSequenceStrictlyIncreasing(t *testing.T) {
	b := newTestBook(t)
	var lastSeq lob.Sequence
	for i := lob.OrderID(1); i <= 20; i++ {
		events, err := b.Place(place(i, lob.Side(i%2), lob.Price(100+int64(i%5)), 3, lob.GTC))
		require.NoError(t, err)
		for _, e := range events {
			require.Greater(t, uint64(e.Sequence), uint64(lastSeq))
			lastSeq = e.Sequence
		}
	}
}

// P1/P3/P5: a long randomized command sequence must keep I1-I6 true
// after every single command, and every order still resting after the
// run must be reachable by id.
func TestPropertyRandomSequenceMaintainsInvariants(t *testing.T) {
	b := newTestBook(t)
	rng := rand.New(rand.NewSource(7))

	live := map[lob.OrderID]bool{}
	var nextID lob.OrderID = 1

	for i := 0; i < 2000; i++ {
		op := rng.Intn(3)
		switch {
		case op == 0 || len(live) == 0:
			id := nextID
			nextID++
			qty := lob.Quantity(1 + rng.Intn(20))
			side := lob.Side(rng.Intn(2))
			price := lob.Price(95 + rng.Intn(10))
			tif := lob.TimeInForce(rng.Intn(3))

			events, err := b.Place(place(id, side, price, qty, tif))
			require.NoError(t, err)
			for _, e := range events {
				if e.Kind == lob.Accepted && e.RestingQty > 0 {
					live[id] = true
				}
				if e.Kind == lob.Trade && e.MakerRemaining == 0 {
					delete(live, e.MakerID)
				}
			}

		case op == 1:
			id := anyKey(live)
			events, err := b.Cancel(lob.Command{Kind: lob.CancelCommand, OrderID: id})
			require.NoError(t, err)
			if events[0].Kind == lob.Cancelled {
				delete(live, id)
			}

		default:
			id := anyKey(live)
			qty, ok := b.RestingQuantity(id)
			newQty := lob.Quantity(0)
			if ok && qty > 0 {
				newQty = lob.Quantity(rng.Intn(int(qty) + 1))
			}
			_, err := b.Modify(lob.Command{Kind: lob.ModifyCommand, OrderID: id, NewPrice: 100, NewQuantity: newQty})
			require.NoError(t, err)
			delete(live, id)
		}

		require.NoError(t, b.CheckInvariants())
	}

	for id := range live {
		_, ok := b.RestingQuantity(id)
		assert.True(t, ok, "P5: order %d believed live but not found in book", id)
	}
}

func anyKey(m map[lob.OrderID]bool) lob.OrderID {
	for k := range m {
		return k
	}
	return 0
}

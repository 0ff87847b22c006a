package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

func testConfig() Config {
	return Config{
		Symbol:                 "TEST",
		ArenaCapacity:          1024,
		CommandRingCapacity:    64,
		EventRingCapacity:      64,
		SnapshotDepth:          5,
		SnapshotEveryNCommands: 2,
	}
}

func runFor(t *testing.T, e *Engine, d time.Duration) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	return cancel, done
}

func TestRunProcessesPlaceAndStopsOnCancel(t *testing.T) {
	e := New(testConfig(), zap.NewNop(), nil)
	cancel, done := runFor(t, e, 0)

	require.NoError(t, e.Commands.TryPush(lob.Command{
		Kind: lob.PlaceCommand, OrderID: 1, Side: lob.Bid,
		OrderType: lob.Limit, TIF: lob.GTC, Price: 100, Quantity: 10,
	}))

	require.Eventually(t, func() bool {
		ev, err := e.Events.TryPop()
		return err == nil && ev.Kind == lob.Accepted
	}, time.Second, time.Millisecond)

	cancel()
	err := <-done
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Halted, e.State())
}

func TestRunPublishesSnapshotOnCadence(t *testing.T) {
	cfg := testConfig()
	cfg.SnapshotEveryNCommands = 1
	e := New(cfg, zap.NewNop(), nil)
	cancel, done := runFor(t, e, 0)
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, e.Commands.TryPush(lob.Command{
		Kind: lob.PlaceCommand, OrderID: 1, Side: lob.Bid,
		OrderType: lob.Limit, TIF: lob.GTC, Price: 100, Quantity: 10,
	}))

	require.Eventually(t, func() bool {
		snap := e.Snapshot()
		return len(snap.Bids) == 1 && snap.Bids[0].Price == 100
	}, time.Second, time.Millisecond)
}

func TestRunMatchesAcrossTwoCommands(t *testing.T) {
	e := New(testConfig(), zap.NewNop(), nil)
	cancel, done := runFor(t, e, 0)
	defer func() {
		cancel()
		<-done
	}()

	require.NoError(t, e.Commands.TryPush(lob.Command{
		Kind: lob.PlaceCommand, OrderID: 1, Side: lob.Ask,
		OrderType: lob.Limit, TIF: lob.GTC, Price: 100, Quantity: 10,
	}))
	drainUntil(t, e, lob.Accepted)

	require.NoError(t, e.Commands.TryPush(lob.Command{
		Kind: lob.PlaceCommand, OrderID: 2, Side: lob.Bid,
		OrderType: lob.Limit, TIF: lob.GTC, Price: 100, Quantity: 10,
	}))
	trade := drainUntil(t, e, lob.Trade)
	require.Equal(t, lob.OrderID(1), trade.MakerID)
	require.Equal(t, lob.OrderID(2), trade.TakerID)
	require.Equal(t, lob.Quantity(10), trade.TradeQuantity)

	drainUntil(t, e, lob.Accepted)
}

func TestStopTransitionsToHalted(t *testing.T) {
	e := New(testConfig(), zap.NewNop(), nil)
	_, done := runFor(t, e, 0)

	require.Eventually(t, func() bool { return e.State() == Draining }, time.Second, time.Millisecond)
	e.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not observe Stop")
	}
	require.Equal(t, Halted, e.State())
}

// drainUntil pops events until it finds one of the given kind, failing
// the test if none arrives within a second. Intermediate events (e.g.
// a matched Trade landing in the same pop sequence as Accepted) are
// discarded.
func drainUntil(t *testing.T, e *Engine, kind lob.EventKind) lob.Event {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		ev, err := e.Events.TryPop()
		if err == nil {
			if ev.Kind == kind {
				return ev
			}
			continue
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("event of kind %s not observed", kind)
	return lob.Event{}
}

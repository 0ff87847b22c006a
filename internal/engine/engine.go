// Package engine drives the single-writer loop of spec §4.5: drain one
// command, dispatch it to the book, publish the resulting events,
// repeat. It is strictly single-threaded against the book and arena
// (spec §5) — only the goroutine that calls Run ever touches them.
package engine

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cedrichaddad/flash-lob/internal/book"
	"github.com/cedrichaddad/flash-lob/internal/metrics"
	"github.com/cedrichaddad/flash-lob/internal/ring"
	"github.com/cedrichaddad/flash-lob/pkg/lob"
)

// Config sizes an Engine's book and snapshot cadence.
type Config struct {
	Symbol                 string
	ArenaCapacity          int
	CommandRingCapacity    int
	EventRingCapacity      int
	SnapshotDepth          int
	SnapshotEveryNCommands int
}

// Engine owns exactly one Book, one command ring, and one event ring —
// one instance per symbol (spec §9). Commands is exposed for producers
// to push into; Events is exposed for consumers to pop from.
type Engine struct {
	Commands *ring.SPSC[lob.Command]
	Events   *ring.SPSC[lob.Event]

	book *book.Book

	state State32
	log   *zap.Logger
	mx    *metrics.Engine

	snapshotEveryN int
	snapshotDepth  int
	commandCount   uint64

	snapshot atomic.Pointer[book.Snapshot]
	haltErr  atomic.Pointer[error]
}

// State32 is an atomic box around State, named distinctly from the
// plain State enum so callers reading Engine.state's zero value can
// tell at a glance it is synchronized.
type State32 struct{ v int32 }

func (s *State32) Load() State       { return State(atomic.LoadInt32(&s.v)) }
func (s *State32) Store(next State)  { atomic.StoreInt32(&s.v, int32(next)) }

// New builds an Engine ready to Run. The book starts empty.
func New(cfg Config, log *zap.Logger, mx *metrics.Engine) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		Commands:       ring.New[lob.Command](cfg.CommandRingCapacity),
		Events:         ring.New[lob.Event](cfg.EventRingCapacity),
		book:           book.New(cfg.Symbol, cfg.ArenaCapacity, log),
		log:            log,
		mx:             mx,
		snapshotEveryN: cfg.SnapshotEveryNCommands,
		snapshotDepth:  cfg.SnapshotDepth,
	}
	snap := e.book.Snapshot(cfg.SnapshotDepth)
	e.snapshot.Store(&snap)
	return e
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State { return e.state.Load() }

// Snapshot returns the most recently published read-only book view.
// Safe for any number of concurrent callers: publication is a single
// atomic pointer swap (spec §5), so a reader never observes a torn
// snapshot, only a possibly-stale one.
func (e *Engine) Snapshot() book.Snapshot {
	return *e.snapshot.Load()
}

// HaltReason returns the fatal error that stopped the engine, if any.
func (e *Engine) HaltReason() error {
	p := e.haltErr.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Stop requests a graceful transition to Halted at the next command
// boundary. Run observes ctx.Done() and exits the same way.
func (e *Engine) Stop() {
	e.state.Store(Halted)
}

// Run drains the command ring until ctx is cancelled, Stop is called,
// or a fatal invariant violation halts the engine. It never returns
// nil as long as the context is what ended the run (context.Canceled
// or context.DeadlineExceeded is returned verbatim); a fatal violation
// returns its *errors.FatalError instead.
func (e *Engine) Run(ctx context.Context) error {
	e.state.Store(Draining)
	backoff := newBackoff()

	for {
		if ctx.Err() != nil {
			e.state.Store(Halted)
			return ctx.Err()
		}
		if e.state.Load() == Halted {
			return nil
		}

		cmd, err := e.Commands.TryPop()
		if err == ring.ErrEmpty {
			if e.mx != nil {
				e.mx.CommandRingEmpty.Inc()
			}
			backoff.pause()
			continue
		}
		backoff.reset()

		start := time.Now()
		events, dispatchErr := e.dispatch(cmd)
		if e.mx != nil {
			e.mx.CommandLatency.Observe(float64(time.Since(start).Nanoseconds()))
		}

		if dispatchErr != nil {
			e.halt(dispatchErr)
			return dispatchErr
		}

		for _, ev := range events {
			e.publish(ev)
		}
		e.recordMetrics(events)

		e.commandCount++
		if e.snapshotEveryN > 0 && e.commandCount%uint64(e.snapshotEveryN) == 0 {
			e.publishSnapshot()
		}
	}
}

func (e *Engine) dispatch(cmd lob.Command) ([]lob.Event, error) {
	switch cmd.Kind {
	case lob.PlaceCommand:
		return e.book.Place(cmd)
	case lob.CancelCommand:
		return e.book.Cancel(cmd)
	case lob.ModifyCommand:
		return e.book.Modify(cmd)
	default:
		return []lob.Event{{
			Kind:      lob.Rejected,
			ClientTag: cmd.ClientTag,
			OrderID:   cmd.OrderID,
			Reason:    lob.ReasonMalformedCommand,
		}}, nil
	}
}

// publish pushes ev onto the event ring, spinning while it is full
// rather than dropping (spec §4.5's backpressure rule: the engine must
// never drop events). New commands are not consumed while this spin is
// in progress because publish is only ever called from inside Run's
// single loop iteration.
func (e *Engine) publish(ev lob.Event) {
	for {
		if err := e.Events.TryPush(ev); err == nil {
			return
		}
		if e.mx != nil {
			e.mx.EventRingFull.Inc()
		}
		runtime.Gosched()
	}
}

func (e *Engine) publishSnapshot() {
	snap := e.book.Snapshot(e.snapshotDepth)
	e.snapshot.Store(&snap)
}

func (e *Engine) halt(err error) {
	e.state.Store(Halted)
	e.haltErr.Store(&err)
	e.log.Error("engine halted on fatal invariant violation", zap.Error(err))

	e.publish(lob.Event{
		Kind:       lob.Halted,
		Diagnostic: err.Error(),
	})
}

func (e *Engine) recordMetrics(events []lob.Event) {
	if e.mx == nil {
		return
	}
	e.mx.CommandsProcessed.Inc()
	e.mx.CommandRingDepth.Set(float64(e.Commands.Len()))
	e.mx.EventRingDepth.Set(float64(e.Events.Len()))
	e.mx.ArenaLive.Set(float64(e.book.ArenaLive()))
	e.mx.ArenaCapacity.Set(float64(e.book.ArenaCapacity()))
	if p, ok := e.book.BestBid(); ok {
		e.mx.BestBid.Set(float64(p))
	} else {
		e.mx.BestBid.Set(0)
	}
	if p, ok := e.book.BestAsk(); ok {
		e.mx.BestAsk.Set(float64(p))
	} else {
		e.mx.BestAsk.Set(0)
	}

	for _, ev := range events {
		switch ev.Kind {
		case lob.Trade:
			e.mx.TradesExecuted.Inc()
		case lob.Accepted:
			e.mx.OrdersAccepted.Inc()
		case lob.Rejected:
			e.mx.OrdersRejected.WithLabelValues(ev.Reason.String()).Inc()
		}
	}
}

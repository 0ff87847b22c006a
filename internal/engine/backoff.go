package engine

import (
	"runtime"
	"time"
)

// backoff escalates from a pure spin to a brief sleep when the command
// ring stays empty, so an idle engine doesn't pin a core at 100% CPU
// while a busy engine still reacts with spin-loop latency.
type backoff struct {
	streak int
}

func newBackoff() *backoff { return &backoff{} }

func (b *backoff) reset() { b.streak = 0 }

func (b *backoff) pause() {
	b.streak++
	switch {
	case b.streak < 64:
		runtime.Gosched()
	case b.streak < 1024:
		time.Sleep(time.Microsecond)
	default:
		time.Sleep(time.Millisecond)
	}
}

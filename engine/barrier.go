package engine

import (
	"sync"
	"time"

	"github.com/ndrandal/backtestsim/wire"
)

// Barrier is the per-bar synchronisation point that holds the engine's
// clock until a controller signals Continue. Grounded directly in the
// source project's Feed: a level-triggered gate (threading.Event there,
// a buffered channel here) checked in up to attempts polls of interval,
// raising ErrEndOfDay if Continue never arrives.
//
// continue issued before the next bar is published is not buffered: the
// gate starts closed at the top of each bar via Clear, so a stray signal
// from a prior bar cannot satisfy this one.
type Barrier struct {
	mu       sync.Mutex
	gate     chan struct{}
	attempts int
	interval time.Duration
}

// NewBarrier returns a Barrier using the default of 10 attempts x 500ms.
func NewBarrier() *Barrier {
	return &Barrier{gate: make(chan struct{}, 1), attempts: 10, interval: 500 * time.Millisecond}
}

// Clear resets the barrier to the closed state at the start of a new bar.
func (b *Barrier) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.gate:
	default:
	}
}

// Continue opens the barrier, releasing a goroutine blocked in Wait.
// Idempotent: signalling an already-open barrier is a no-op.
func (b *Barrier) Continue() {
	select {
	case b.gate <- struct{}{}:
	default:
	}
}

// Wait blocks until Continue is signalled or the configured attempts are
// exhausted, matching wait_for_new_day's ten 500ms polls. Returns
// ErrEndOfDay on timeout.
func (b *Barrier) Wait() error {
	for i := 0; i < b.attempts; i++ {
		select {
		case <-b.gate:
			return nil
		case <-time.After(b.interval):
		}
	}
	return wire.ErrEndOfDay
}

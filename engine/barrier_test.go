package engine

import (
	"testing"
	"time"
)

func TestBarrierContinueReleasesWait(t *testing.T) {
	b := NewBarrier()
	b.Clear()

	done := make(chan error, 1)
	go func() { done <- b.Wait() }()

	time.Sleep(10 * time.Millisecond)
	b.Continue()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after Continue")
	}
}

func TestBarrierTimeoutIsEndOfDay(t *testing.T) {
	b := &Barrier{gate: make(chan struct{}, 1), attempts: 2, interval: 10 * time.Millisecond}
	b.Clear()

	err := b.Wait()
	if err == nil {
		t.Fatal("expected EndOfDayError on barrier exhaustion")
	}
}

func TestBarrierClearDiscardsStaleSignal(t *testing.T) {
	b := NewBarrier()
	b.Continue() // signal for a bar that never waited on it
	b.Clear()    // next bar's clear must discard it

	b2 := &Barrier{gate: b.gate, attempts: 2, interval: 10 * time.Millisecond}
	if err := b2.Wait(); err == nil {
		t.Fatal("expected timeout: stale Continue must not satisfy a new bar's Wait")
	}
}

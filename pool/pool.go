// Package pool implements the worker pool: a readiness handshake over
// pub-sub, configure/run/stop fan-out over a surveyor, and per-bar dispatch
// to exactly one free worker via a per-worker try-lock. Grounded in the
// source project's pool-side caller in foreverbull_core's worker package
// plus client/foreverbull/worker/worker.py's WorkerHandler try-lock.
package pool

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ndrandal/backtestsim/model"
	"github.com/ndrandal/backtestsim/wire"
)

// OnWorkerBusy controls what happens when no worker is free within
// dispatch_timeout.
type OnWorkerBusy int

const (
	// OnBusyDrop logs and drops the bar. Default.
	OnBusyDrop OnWorkerBusy = iota
	// OnBusyBlock waits past dispatch_timeout for a worker to free up.
	OnBusyBlock
	// OnBusyFail returns an error instead of dropping or blocking.
	OnBusyFail
)

// WorkerSlot is one worker's per-bar dispatch connection, guarded by a
// try-lock so the pool never hands the same worker two bars concurrently.
type WorkerSlot struct {
	id   int
	mu   sync.Mutex
	conn *wire.Conn
}

// Pool fans configure/run_backtest/stop out to N workers via a Surveyor,
// tracks their readiness, and dispatches each bar to exactly one free
// worker.
type Pool struct {
	n               int
	onBusy          OnWorkerBusy
	dispatchTimeout time.Duration
	setupTimeout    time.Duration

	surveyor *wire.Surveyor

	mu    sync.Mutex
	slots []*WorkerSlot

	readyMu    sync.Mutex
	readyCount int
	readyCh    chan struct{}
}

// New returns a Pool expecting n workers.
func New(n int, onBusy OnWorkerBusy) *Pool {
	return &Pool{
		n:               n,
		onBusy:          onBusy,
		dispatchTimeout: 2 * time.Second,
		setupTimeout:    10 * time.Second,
		surveyor:        wire.NewSurveyor(),
		readyCh:         make(chan struct{}),
	}
}

// RegisterSurveyorConn adds a worker's surveyor-respondent connection,
// used for the configure/run_backtest/stop fan-out.
func (p *Pool) RegisterSurveyorConn(conn *wire.Conn) uint64 {
	return p.surveyor.Register(conn)
}

// RegisterDispatchConn adds a worker's per-bar inbox connection (the pool
// is the REQ side; the worker is REP).
func (p *Pool) RegisterDispatchConn(conn *wire.Conn) *WorkerSlot {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot := &WorkerSlot{id: len(p.slots), conn: conn}
	p.slots = append(p.slots, slot)
	return slot
}

// NotifyReady records one worker's "ready" signal (published on the pool's
// state SUB socket by each freshly started worker) and releases WaitReady
// once n have arrived.
func (p *Pool) NotifyReady() {
	p.readyMu.Lock()
	defer p.readyMu.Unlock()
	p.readyCount++
	if p.readyCount == p.n {
		close(p.readyCh)
	}
}

// WaitReady blocks until exactly n ready signals have been collected or
// setupTimeout elapses, returning ErrWorkerException on timeout per
// scenario 5.
func (p *Pool) WaitReady() error {
	select {
	case <-p.readyCh:
		return nil
	case <-time.After(p.setupTimeout):
		return fmt.Errorf("%w: setup timeout waiting for %d ready workers", wire.ErrWorkerException, p.n)
	}
}

// AcceptReadyConn reads a single "ready" message off conn and records it,
// then closes conn — the pool's state (SUB) socket side of the readiness
// handshake described in §4.2.
func (p *Pool) AcceptReadyConn(conn *wire.Conn) {
	go func() {
		defer conn.Close()
		if _, err := conn.Recv(); err != nil {
			log.Printf("pool: ready handshake failed: %v", err)
			return
		}
		p.NotifyReady()
	}()
}

// ReadyCount reports how many ready signals have arrived so far.
func (p *Pool) ReadyCount() int {
	p.readyMu.Lock()
	defer p.readyMu.Unlock()
	return p.readyCount
}

// surveyTimeout bounds how long a configure/run_backtest/stop fan-out
// waits for all N respondents.
const surveyTimeout = 5 * time.Second

// Configure fans a Configuration out to every worker and requires all N to
// reply.
func (p *Pool) Configure(cfg model.Configuration) ([]wire.Response, error) {
	req, err := wire.NewRequest("configure", cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), surveyTimeout)
	defer cancel()
	resps, err := p.surveyor.Survey(ctx, req)
	if err == nil && len(resps) < p.n {
		return nil, fmt.Errorf("%w: %d of %d workers replied", wire.ErrWorkerException, len(resps), p.n)
	}
	return resps, err
}

// RunBacktest fans the run_backtest signal out to every worker.
func (p *Pool) RunBacktest() ([]wire.Response, error) {
	req, err := wire.NewRequest("run_backtest", nil)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), surveyTimeout)
	defer cancel()
	return p.surveyor.Survey(ctx, req)
}

// Stop fans the stop signal out to every worker.
func (p *Pool) Stop() ([]wire.Response, error) {
	req, err := wire.NewRequest("stop", nil)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), surveyTimeout)
	defer cancel()
	return p.surveyor.Survey(ctx, req)
}

// Dispatch routes bar to exactly one free worker, scanning slots in fixed
// order and acquiring the first free try-lock, per §4.2's dispatch
// discipline. If no worker frees up within dispatchTimeout, behavior is
// governed by OnWorkerBusy.
func (p *Pool) Dispatch(bar model.Bar) (*model.Order, error) {
	deadline := time.Now().Add(p.dispatchTimeout)

	for {
		p.mu.Lock()
		slots := p.slots
		p.mu.Unlock()

		for _, slot := range slots {
			if slot.mu.TryLock() {
				order, err := p.send(slot, bar)
				slot.mu.Unlock()
				return order, err
			}
		}

		if time.Now().After(deadline) {
			switch p.onBusy {
			case OnBusyFail:
				return nil, fmt.Errorf("%w: no free worker within dispatch timeout", wire.ErrWorkerException)
			case OnBusyBlock:
				deadline = time.Now().Add(p.dispatchTimeout)
				continue
			default: // OnBusyDrop
				log.Printf("pool: dropping bar for %s: no free worker", bar.Instrument)
				return nil, nil
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (p *Pool) send(slot *WorkerSlot, bar model.Bar) (*model.Order, error) {
	req, err := wire.NewRequest("ohlc", bar)
	if err != nil {
		return nil, err
	}
	if err := slot.conn.Send(req); err != nil {
		return nil, err
	}
	resp, err := slot.conn.RecvResponse()
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("worker error: %s", resp.Error)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	var order model.Order
	if err := resp.Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

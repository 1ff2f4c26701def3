package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ndrandal/backtestsim/archive"
	"github.com/ndrandal/backtestsim/model"
	"github.com/ndrandal/backtestsim/wire"
)

// Lifecycle states of the engine. The worker has its own State type in
// package worker.
type LifecycleState int

const (
	StateCreated LifecycleState = iota
	StateConfigured
	StateRunning
	StateStopped
)

// Engine owns the simulation clock and exposes the three sockets named in
// §4.1: control (REQ/REP), feed (PUB), and broker (REQ/REP). Grounded in
// the source project's foreverbull_zipline/app.py Application: the same
// task table, the same run/stop/continue/result shape, generalized from a
// threading.Thread with a nanomsg REP loop into a Go type whose control
// Router dispatches every request read from an accepted control connection.
type Engine struct {
	mu    sync.Mutex
	state LifecycleState

	dayCompleted bool

	bundle  *MarketEngine
	cal     *Calendar
	ctx     *SimulationContext
	broker  *Broker
	feed    *Feed
	barrier *Barrier

	controlRouter *wire.Router
	brokerRouter  *wire.Router
	feedPub       *wire.Publisher

	controlSocket wire.SocketDescriptor
	feedSocket    wire.SocketDescriptor
	brokerSocket  wire.SocketDescriptor

	cfg     model.EngineConfig
	periods []model.Period

	archiver *archive.Archiver
	runID    string

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewEngine wires the control router over a fresh feed publisher. ingest
// must be called before configure; configure before run. control, feed, and
// broker describe the three sockets' listen addresses, reported verbatim by
// the "info" task.
func NewEngine(control, feed, broker wire.SocketDescriptor) *Engine {
	e := &Engine{
		state:         StateCreated,
		feedPub:       wire.NewPublisher(),
		barrier:       NewBarrier(),
		stopCh:        make(chan struct{}),
		controlSocket: control,
		feedSocket:    feed,
		brokerSocket:  broker,
	}
	e.feed = NewFeed(e.feedPub)
	e.controlRouter = wire.NewRouter()
	e.controlRouter.AddRoute("info", e.info)
	e.controlRouter.AddRoute("ingest", e.ingest)
	e.controlRouter.AddRoute("configure", e.configure)
	e.controlRouter.AddRoute("run", e.run)
	e.controlRouter.AddRoute("continue", e.doContinue)
	e.controlRouter.AddRoute("status", e.status)
	e.controlRouter.AddRoute("stop", e.stop)
	e.controlRouter.AddRoute("result", e.result)
	return e
}

// ControlRouter is the handler for the engine's control socket.
func (e *Engine) ControlRouter() *wire.Router { return e.controlRouter }

// BrokerRouter is the handler for the engine's broker socket. Valid only
// after configure; nil before that.
func (e *Engine) BrokerRouter() *wire.Router {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.brokerRouter
}

// FeedPublisher exposes the feed's PUB fan-out for the HTTP layer to
// register subscribers against.
func (e *Engine) FeedPublisher() *wire.Publisher { return e.feedPub }

// SetArchiver attaches an S3 archiver; once set, a completed run's periods
// are uploaded under runID once runLoop ends. Optional — a nil archiver
// (the default) skips archival entirely.
func (e *Engine) SetArchiver(a *archive.Archiver, runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.archiver = a
	e.runID = runID
}

func (e *Engine) archiveResult() {
	e.mu.Lock()
	a := e.archiver
	runID := e.runID
	result := model.Result{Periods: append([]model.Period(nil), e.periods...)}
	e.mu.Unlock()

	if a == nil {
		return
	}
	if err := a.ArchiveOnCompletion(context.Background(), runID, result, time.Now()); err != nil {
		log.Printf("engine: archive run %s: %v", runID, err)
	}
}

func (e *Engine) info(data []byte) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return map[string]any{
		"socket":  e.controlSocket,
		"feed":    map[string]any{"socket": e.feedSocket},
		"broker":  map[string]any{"socket": e.brokerSocket},
		"running": e.state == StateRunning,
	}, nil
}

func (e *Engine) ingest(data []byte) (any, error) {
	var cfg model.IngestConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.bundle = NewMarketEngine(0, cfg.Instruments, 100.0)
	return map[string]string{"status": "ok"}, nil
}

func (e *Engine) configure(data []byte) (any, error) {
	var cfg model.EngineConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.bundle == nil {
		return nil, fmt.Errorf("%w: bundle not ingested", wire.ErrConfigError)
	}
	start, err := time.Parse("2006-01-02", cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start_date: %v", wire.ErrConfigError, err)
	}
	end, err := time.Parse("2006-01-02", cfg.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid end_date: %v", wire.ErrConfigError, err)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start_date after end_date", wire.ErrConfigError)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("%w: timezone %q not found: %v", wire.ErrConfigError, cfg.Timezone, err)
	}
	if !e.bundle.Resolve(cfg.Benchmark) {
		return nil, fmt.Errorf("%w: benchmark %q not found in bundle", wire.ErrConfigError, cfg.Benchmark)
	}
	for _, in := range cfg.Instruments {
		if !e.bundle.Resolve(in) {
			return nil, fmt.Errorf("%w: instrument %q not found in bundle", wire.ErrConfigError, in)
		}
	}

	e.cfg = cfg
	e.cal = NewCalendar(cfg.Calendar)
	e.ctx = NewSimulationContext(e.bundle, 100000.0, start)
	e.broker, e.brokerRouter = NewBroker(e.ctx)
	e.state = StateConfigured
	return map[string]string{"status": "ok"}, nil
}

func (e *Engine) run(data []byte) (any, error) {
	e.mu.Lock()
	if e.state != StateConfigured {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: engine not configured", wire.ErrConfigError)
	}
	e.state = StateRunning
	e.mu.Unlock()

	go e.runLoop()
	return map[string]string{"status": "ok"}, nil
}

func (e *Engine) doContinue(data []byte) (any, error) {
	e.mu.Lock()
	running := e.state == StateRunning
	e.mu.Unlock()
	if !running {
		return nil, wire.ErrBacktestNotRunning
	}
	e.barrier.Continue()
	return nil, nil
}

func (e *Engine) status(data []byte) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return map[string]bool{
		"running":       e.state == StateRunning,
		"configured":    e.state == StateConfigured || e.state == StateRunning,
		"day_completed": e.dayCompleted,
	}, nil
}

func (e *Engine) stop(data []byte) (any, error) {
	e.stopOnce.Do(func() { close(e.stopCh) })

	e.mu.Lock()
	e.state = StateStopped
	e.mu.Unlock()
	return map[string]string{"status": "ok"}, nil
}

func (e *Engine) result(data []byte) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.Result{Periods: append([]model.Period(nil), e.periods...)}, nil
}

// runLoop is the per-bar loop described in §4.1: clear barrier, publish
// period/positions/bars, publish day_completed, block on the barrier,
// advance. Runs until the calendar is exhausted or stop/EndOfDay ends it.
func (e *Engine) runLoop() {
	days := e.cal.Days(e.ctx.portfolio.StartDate, mustParse(e.cfg.EndDate))

	for _, day := range days {
		select {
		case <-e.stopCh:
			return
		default:
		}

		e.barrier.Clear()
		e.mu.Lock()
		e.dayCompleted = false
		e.mu.Unlock()

		bars := make(map[string]model.Bar, len(e.cfg.Instruments))
		for _, in := range e.cfg.Instruments {
			bars[in] = e.bundle.NextBar(in, day)
		}

		portfolio := e.ctx.AdvanceBar(bars, day)
		period := model.FromPortfolio(portfolio, day, day)

		e.mu.Lock()
		e.periods = append(e.periods, period)
		e.mu.Unlock()

		if err := e.feed.PublishBar(period, portfolio, bars); err != nil {
			log.Printf("engine: publish bar error: %v", err)
		}
		if err := e.feed.DayCompleted(); err != nil {
			log.Printf("engine: publish day_completed error: %v", err)
		}

		if err := e.barrier.Wait(); err != nil {
			log.Printf("engine: %v", err)
			e.mu.Lock()
			e.state = StateStopped
			e.mu.Unlock()
			e.feed.BacktestCompleted()
			e.archiveResult()
			return
		}

		e.mu.Lock()
		e.dayCompleted = true
		e.mu.Unlock()
	}

	e.feed.BacktestCompleted()
	e.mu.Lock()
	e.state = StateStopped
	e.mu.Unlock()
	e.archiveResult()
}

func mustParse(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

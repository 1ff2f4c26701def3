// Package worker implements the backtest worker: it holds one registered
// strategy, answers the pool's configure/run_backtest/stop survey, and
// answers the pool's per-bar dispatch requests by invoking the strategy
// and forwarding any resulting order to the engine's broker socket.
// Grounded in the source project's client/foreverbull/worker/worker.py
// WorkerHandler and client/foreverbull/algorithm.py Algorithm runtime.
package worker

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ndrandal/backtestsim/model"
	"github.com/ndrandal/backtestsim/strategy"
	"github.com/ndrandal/backtestsim/wire"
)

// Worker answers the pool's surveyor (configure/run_backtest/stop) and
// per-bar dispatch requests, running exactly one configured strategy.
type Worker struct {
	mu    sync.Mutex
	state State

	registry     *strategy.Registry
	strategyName string
	params       map[string]string

	db         *MongoHandle
	brokerConn *wire.Conn

	controlRouter  *wire.Router
	dispatchRouter *wire.Router
}

// New returns a Worker in the Spawned state, wired to submit orders over
// brokerConn and to read bar/position history through db.
func New(registry *strategy.Registry, db *MongoHandle, brokerConn *wire.Conn) *Worker {
	w := &Worker{
		state:      StateSpawned,
		registry:   registry,
		db:         db,
		brokerConn: brokerConn,
	}

	w.controlRouter = wire.NewRouter()
	w.controlRouter.AddRoute("configure", w.handleConfigure)
	w.controlRouter.AddRoute("run_backtest", w.handleRunBacktest)
	w.controlRouter.AddRoute("stop", w.handleStop)

	w.dispatchRouter = wire.NewRouter()
	w.dispatchRouter.AddRoute("ohlc", w.handleBar)

	w.state = StateReady
	return w
}

// ControlRouter answers the pool's surveyor (configure/run_backtest/stop).
func (w *Worker) ControlRouter() *wire.Router { return w.controlRouter }

// DispatchRouter answers the pool's per-bar REQ/REP dispatch.
func (w *Worker) DispatchRouter() *wire.Router { return w.dispatchRouter }

// State reports the worker's current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

type configurePayload struct {
	Parameters map[string]string `json:"parameters"`
}

func (w *Worker) handleConfigure(data []byte) (any, error) {
	var cfg model.Configuration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", wire.ErrConfigError, err)
	}

	name := cfg.Parameters["strategy"]
	if _, ok := w.registry.Lookup(name); !ok {
		return nil, fmt.Errorf("%w: strategy %q not registered", wire.ErrConfigError, name)
	}

	w.mu.Lock()
	w.strategyName = name
	w.params = cfg.Parameters
	w.state = StateConfigured
	w.mu.Unlock()
	return nil, nil
}

func (w *Worker) handleRunBacktest(data []byte) (any, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateConfigured {
		return nil, fmt.Errorf("%w: worker not configured", wire.ErrConfigError)
	}
	w.state = StateRunning
	return nil, nil
}

func (w *Worker) handleStop(data []byte) (any, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = StateTerminated
	return nil, nil
}

func (w *Worker) handleBar(data []byte) (any, error) {
	var bar model.Bar
	if err := json.Unmarshal(data, &bar); err != nil {
		return nil, err
	}

	if w.db != nil {
		w.db.SetCurrentDate(bar.Time)
	}

	w.mu.Lock()
	name := w.strategyName
	params := w.params
	w.mu.Unlock()

	s, ok := w.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: strategy %q not registered", wire.ErrConfigError, name)
	}

	order, err := s.OnBar(bar, w.db, params)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, nil
	}

	return w.submitOrder(*order)
}

func (w *Worker) submitOrder(order model.Order) (*model.Order, error) {
	if w.brokerConn == nil {
		return &order, nil
	}

	req, err := wire.NewRequest("order", order)
	if err != nil {
		return nil, err
	}
	if err := w.brokerConn.Send(req); err != nil {
		return nil, err
	}
	resp, err := w.brokerConn.RecvResponse()
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", wire.ErrBrokerError, resp.Error)
	}

	var submitted model.Order
	if err := resp.Decode(&submitted); err != nil {
		return nil, err
	}
	return &submitted, nil
}

// UpdatePosition stores a position snapshot in the worker's local database
// handle cache.
func (w *Worker) UpdatePosition(p model.Position) {
	if w.db != nil {
		w.db.UpdatePosition(p)
	}
}

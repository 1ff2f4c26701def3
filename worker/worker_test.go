package worker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ndrandal/backtestsim/model"
	"github.com/ndrandal/backtestsim/strategy"
	"github.com/ndrandal/backtestsim/wire"
)

func req(t *testing.T, task string, payload any) wire.Request {
	t.Helper()
	r, err := wire.NewRequest(task, payload)
	require.NoError(t, err)
	return r
}

func TestWorkerConfigureUnknownStrategy(t *testing.T) {
	reg := strategy.NewRegistry()
	w := New(reg, nil, nil)

	resp := w.ControlRouter().Dispatch(req(t, "configure", model.Configuration{
		Parameters: map[string]string{"strategy": "nope"},
	}))
	require.Contains(t, resp.Error, "not registered")
	require.Equal(t, StateReady, w.State())
}

func TestWorkerConfigureThenRunBacktestTransitionsState(t *testing.T) {
	reg := strategy.NewRegistry()
	reg.Register("noop", strategy.Func(func(model.Bar, strategy.Database, map[string]string) (*model.Order, error) {
		return nil, nil
	}))
	w := New(reg, nil, nil)

	resp := w.ControlRouter().Dispatch(req(t, "configure", model.Configuration{
		Parameters: map[string]string{"strategy": "noop"},
	}))
	require.Empty(t, resp.Error)
	require.Equal(t, StateConfigured, w.State())

	resp = w.ControlRouter().Dispatch(req(t, "run_backtest", nil))
	require.Empty(t, resp.Error)
	require.Equal(t, StateRunning, w.State())
}

func TestWorkerRunBacktestBeforeConfigureFails(t *testing.T) {
	reg := strategy.NewRegistry()
	w := New(reg, nil, nil)

	resp := w.ControlRouter().Dispatch(req(t, "run_backtest", nil))
	require.NotEmpty(t, resp.Error)
}

func TestWorkerHandleBarInvokesStrategyWithoutBroker(t *testing.T) {
	reg := strategy.NewRegistry()
	reg.Register("buy-ten", strategy.Func(func(bar model.Bar, db strategy.Database, params map[string]string) (*model.Order, error) {
		return &model.Order{Asset: model.Asset{Symbol: bar.Instrument}, Amount: 10}, nil
	}))
	w := New(reg, nil, nil)
	require.Empty(t, w.ControlRouter().Dispatch(req(t, "configure", model.Configuration{
		Parameters: map[string]string{"strategy": "buy-ten"},
	})).Error)

	resp := w.DispatchRouter().Dispatch(req(t, "ohlc", model.Bar{Instrument: "AAPL"}))
	require.Empty(t, resp.Error)

	var order model.Order
	require.NoError(t, json.Unmarshal(resp.Data, &order))
	require.Equal(t, int64(10), order.Amount)
}

func TestWorkerHandleBarNoOrder(t *testing.T) {
	reg := strategy.NewRegistry()
	reg.Register("noop", strategy.Func(func(model.Bar, strategy.Database, map[string]string) (*model.Order, error) {
		return nil, nil
	}))
	w := New(reg, nil, nil)
	require.Empty(t, w.ControlRouter().Dispatch(req(t, "configure", model.Configuration{
		Parameters: map[string]string{"strategy": "noop"},
	})).Error)

	resp := w.DispatchRouter().Dispatch(req(t, "ohlc", model.Bar{Instrument: "AAPL"}))
	require.Empty(t, resp.Error)
	require.Empty(t, resp.Data)
}

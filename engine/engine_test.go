package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ndrandal/backtestsim/model"
	"github.com/ndrandal/backtestsim/wire"
)

func reqWire(task string, payload any) wire.Request {
	req, err := wire.NewRequest(task, payload)
	if err != nil {
		panic(err)
	}
	return req
}

func testEngine() *Engine {
	return NewEngine(
		wire.SocketDescriptor{Pattern: wire.PatternRep, Host: "127.0.0.1", Port: 7100},
		wire.SocketDescriptor{Pattern: wire.PatternPub, Host: "127.0.0.1", Port: 7102},
		wire.SocketDescriptor{Pattern: wire.PatternRep, Host: "127.0.0.1", Port: 7101},
	)
}

func TestEngineInfoReturnsSocketAddresses(t *testing.T) {
	e := testEngine()
	resp := e.ControlRouter().Dispatch(reqWire("info", nil))
	require.Empty(t, resp.Error)

	var info struct {
		Socket  wire.SocketDescriptor `json:"socket"`
		Feed    struct{ Socket wire.SocketDescriptor } `json:"feed"`
		Broker  struct{ Socket wire.SocketDescriptor } `json:"broker"`
		Running bool                  `json:"running"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &info))
	require.Equal(t, 7100, info.Socket.Port)
	require.Equal(t, 7102, info.Feed.Socket.Port)
	require.Equal(t, 7101, info.Broker.Socket.Port)
	require.False(t, info.Running)
}

func TestEngineHappyPathMinimalRun(t *testing.T) {
	e := testEngine()

	ingestOK(t, e, []string{"AAPL", "TSLA"})
	configureOK(t, e, model.EngineConfig{
		Bundle: "demo", Calendar: "NYSE",
		StartDate: "2020-01-07", EndDate: "2020-02-01",
		Benchmark: "AAPL", Instruments: []string{"AAPL", "TSLA"},
	})

	resp := e.ControlRouter().Dispatch(reqWire("run", nil))
	require.Empty(t, resp.Error)

	// Drive the barrier continuously so the run completes without
	// waiting on a real client.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 30; i++ {
			time.Sleep(5 * time.Millisecond)
			e.barrier.Continue()
		}
		close(done)
	}()
	<-done
	time.Sleep(50 * time.Millisecond)

	resultResp := e.ControlRouter().Dispatch(reqWire("result", nil))
	var result model.Result
	require.NoError(t, json.Unmarshal(resultResp.Data, &result))
	require.Len(t, result.Periods, 18)
}

func TestEngineConfigureFailureUnknownBenchmark(t *testing.T) {
	e := testEngine()
	ingestOK(t, e, []string{"AAPL", "TSLA"})

	resp := e.ControlRouter().Dispatch(reqWire("configure", model.EngineConfig{
		Bundle: "demo", Calendar: "NYSE",
		StartDate: "2020-01-07", EndDate: "2020-02-01",
		Benchmark: "NOT_A_SYMBOL", Instruments: []string{"AAPL"},
	}))
	require.Contains(t, resp.Error, "not found")

	statusResp := e.ControlRouter().Dispatch(reqWire("status", nil))
	var status map[string]bool
	require.NoError(t, json.Unmarshal(statusResp.Data, &status))
	require.False(t, status["configured"])
}

func TestEngineContinueWhileNotRunning(t *testing.T) {
	e := testEngine()
	resp := e.ControlRouter().Dispatch(reqWire("continue", nil))
	require.Contains(t, resp.Error, "not running")
}

func TestEngineUnknownTask(t *testing.T) {
	e := testEngine()
	resp := e.ControlRouter().Dispatch(reqWire("nonsense", nil))
	require.Equal(t, "nonsense", resp.Task)
	require.Contains(t, resp.Error, "task not found")
}

func ingestOK(t *testing.T, e *Engine, instruments []string) {
	t.Helper()
	resp := e.ControlRouter().Dispatch(reqWire("ingest", model.IngestConfig{
		Name: "demo", Instruments: instruments,
	}))
	require.Empty(t, resp.Error)
}

func configureOK(t *testing.T, e *Engine, cfg model.EngineConfig) {
	t.Helper()
	resp := e.ControlRouter().Dispatch(reqWire("configure", cfg))
	require.Empty(t, resp.Error)
}

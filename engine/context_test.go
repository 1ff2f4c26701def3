package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ndrandal/backtestsim/model"
)

func TestSubmitOrderUnknownInstrument(t *testing.T) {
	bundle := NewMarketEngine(1, []string{"AAPL"}, 100)
	ctx := NewSimulationContext(bundle, 100000, time.Now())

	_, err := ctx.SubmitOrder(model.Order{Asset: model.Asset{Symbol: "NOPE"}, Amount: 10})
	require.Error(t, err)
}

func TestSubmitOrderAssignsIDAndIsOpen(t *testing.T) {
	bundle := NewMarketEngine(1, []string{"AAPL"}, 100)
	ctx := NewSimulationContext(bundle, 100000, time.Now())

	o, err := ctx.SubmitOrder(model.Order{Asset: model.Asset{Symbol: "AAPL"}, Amount: 10})
	require.NoError(t, err)
	require.NotEmpty(t, o.ID)
	require.Equal(t, model.OrderOpen, o.Status)
}

func TestOrderNotFilledBeforeNextBar(t *testing.T) {
	start := time.Now()
	bundle := NewMarketEngine(1, []string{"AAPL"}, 100)
	ctx := NewSimulationContext(bundle, 100000, start)

	o, err := ctx.SubmitOrder(model.Order{Asset: model.Asset{Symbol: "AAPL"}, Amount: 10})
	require.NoError(t, err)

	// The order was submitted "mid-bar" (before any AdvanceBar call for
	// bar t); it must not be filled until bar t+1 advances.
	got, err := ctx.GetOrder(o.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderOpen, got.Status)

	bars := map[string]model.Bar{"AAPL": {Instrument: "AAPL", Open: 101, High: 102, Low: 100, Close: 101.5}}
	ctx.AdvanceBar(bars, start.AddDate(0, 0, 1))

	got, err = ctx.GetOrder(o.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderFilled, got.Status)
	require.Equal(t, int64(10), got.Filled)
}

func TestCancelOrderUnknownID(t *testing.T) {
	bundle := NewMarketEngine(1, []string{"AAPL"}, 100)
	ctx := NewSimulationContext(bundle, 100000, time.Now())

	_, err := ctx.CancelOrder("missing")
	require.Error(t, err)
}

func TestGetOpenOrdersOnlyReturnsOpen(t *testing.T) {
	bundle := NewMarketEngine(1, []string{"AAPL"}, 100)
	ctx := NewSimulationContext(bundle, 100000, time.Now())

	o1, _ := ctx.SubmitOrder(model.Order{Asset: model.Asset{Symbol: "AAPL"}, Amount: 10})
	_, _ = ctx.SubmitOrder(model.Order{Asset: model.Asset{Symbol: "AAPL"}, Amount: 5})
	_, _ = ctx.CancelOrder(o1.ID)

	open := ctx.GetOpenOrders()
	require.Len(t, open, 1)
	require.Equal(t, int64(5), open[0].Amount)
}

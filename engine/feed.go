package engine

import (
	"time"

	"github.com/ndrandal/backtestsim/model"
	"github.com/ndrandal/backtestsim/wire"
)

// Feed is the engine's market-data publisher: on each bar it sends the
// current Period, every non-zero Position, and one Bar per configured
// instrument, followed by a day_completed marker, and finally
// backtest_completed once the run ends. Grounded in the source project's
// Feed._send_period/_send_positions/_send_ohlc/handle_data.
type Feed struct {
	pub *wire.Publisher
}

// NewFeed wraps a Publisher as the engine's feed socket.
func NewFeed(pub *wire.Publisher) *Feed {
	return &Feed{pub: pub}
}

// PublishBar emits one simulated day's worth of feed messages: the period
// snapshot, every non-flat position, and the bar for each instrument, in
// that order, per §4.1's per-bar loop step 2.
func (f *Feed) PublishBar(period model.Period, portfolio model.Portfolio, bars map[string]model.Bar) error {
	if err := f.send("period", period); err != nil {
		return err
	}
	for _, pos := range portfolio.Positions {
		if pos.Amount == 0 {
			continue
		}
		if err := f.send("position", pos); err != nil {
			return err
		}
	}
	for _, bar := range bars {
		if err := f.send("ohlc", bar); err != nil {
			return err
		}
	}
	return nil
}

// DayCompleted publishes the end-of-bar marker, always the message that
// follows every bar/position/period message for that day.
func (f *Feed) DayCompleted() error {
	return f.send("day_completed", nil)
}

// BacktestCompleted publishes the terminal feed message. Always the last
// message on the feed for a run.
func (f *Feed) BacktestCompleted() error {
	return f.send("backtest_completed", nil)
}

func (f *Feed) send(task string, payload any) error {
	req, err := wire.NewRequest(task, payload)
	if err != nil {
		return err
	}
	return f.pub.Broadcast(req)
}

// now exists so tests can stub time without reaching into the clock.
var now = time.Now

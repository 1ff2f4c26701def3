package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMarketEngineResolve(t *testing.T) {
	m := NewMarketEngine(1, []string{"AAPL", "TSLA"}, 100)
	require.True(t, m.Resolve("AAPL"))
	require.False(t, m.Resolve("MSFT"))
}

func TestMarketEngineNextBarSatisfiesOHLCInvariant(t *testing.T) {
	m := NewMarketEngine(42, []string{"AAPL"}, 100)
	now := time.Now()

	for i := 0; i < 50; i++ {
		bar := m.NextBar("AAPL", now.AddDate(0, 0, i))
		require.True(t, bar.Valid(), "bar %d violates OHLC invariant: %+v", i, bar)
		require.GreaterOrEqual(t, bar.Volume, int64(0))
	}
}

func TestMarketEngineNextBarUnknownInstrument(t *testing.T) {
	m := NewMarketEngine(1, []string{"AAPL"}, 100)
	bar := m.NextBar("NOPE", time.Now())
	require.Equal(t, "", bar.Instrument)
}

func TestMarketEngineDeterministicGivenSeed(t *testing.T) {
	now := time.Now()
	m1 := NewMarketEngine(7, []string{"AAPL"}, 100)
	m2 := NewMarketEngine(7, []string{"AAPL"}, 100)

	for i := 0; i < 10; i++ {
		b1 := m1.NextBar("AAPL", now)
		b2 := m2.NextBar("AAPL", now)
		require.Equal(t, b1.Close, b2.Close, "same seed must produce identical price paths")
	}
}

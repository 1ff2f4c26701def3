package engine

import (
	"math"
	"sync"
	"time"

	"github.com/ndrandal/backtestsim/model"
)

// gbmSampler produces the two random draws NextBar consumes per sub-tick: a
// standard normal log-return step (Box-Muller over pcg32) and a volume
// jitter in [100, 1000). Unlike a general-purpose RNG, it has no API beyond
// what the GBM tick model actually uses.
type gbmSampler struct {
	bits *pcg32

	mu       sync.Mutex
	hasSpare bool
	spare    float64
}

func newGBMSampler(seed int64) *gbmSampler {
	return &gbmSampler{bits: newPCG32(seed)}
}

func (g *gbmSampler) uniform() float64 {
	return float64(g.bits.uint32()) / (1 << 32)
}

// logReturnZ returns a standard normal variable via Box-Muller, caching the
// second of each generated pair.
func (g *gbmSampler) logReturnZ() float64 {
	g.mu.Lock()
	if g.hasSpare {
		g.hasSpare = false
		v := g.spare
		g.mu.Unlock()
		return v
	}
	g.mu.Unlock()

	var u, v, s float64
	for {
		u = g.uniform()*2 - 1
		v = g.uniform()*2 - 1
		s = u*u + v*v
		if s > 0 && s < 1 {
			break
		}
	}
	s = math.Sqrt(-2 * math.Log(s) / s)

	g.mu.Lock()
	g.spare = v * s
	g.hasSpare = true
	g.mu.Unlock()

	return u * s
}

// volumeJitter returns a per-tick volume contribution in [100, 1000).
func (g *gbmSampler) volumeJitter() int64 {
	return 100 + int64(g.bits.uint32()%900)
}

// Synthetic bundle generation parameters. The source project treats the
// historical-price store and ingestion as an external collaborator; this
// generator stands in for it so configure/run can be exercised end-to-end
// without a real data vendor, adapted from a tick-by-tick GBM model into a
// once-per-day OHLC generator.
const (
	baseDailyVol    = 0.02
	defaultVolMult  = 1.0
	subTicksPerBar  = 8
	defaultTickSize = 0.01
)

// instrumentState is one instrument's running price and tick parameters.
type instrumentState struct {
	price    float64
	volMult  float64
	tickSize float64
}

// MarketEngine drives per-bar GBM price movement for a synthetic bundle.
// Adapted from internal/engine.MarketEngine: same PCG RNG and Gaussian
// log-return step, generalized from a continuous tick stream to one Bar
// per instrument per simulated day.
type MarketEngine struct {
	mu     sync.Mutex
	rng    *gbmSampler
	states map[string]*instrumentState
}

// NewMarketEngine seeds a synthetic bundle for the given instruments at a
// uniform starting price, driven by a PCG-XSH-RR/Box-Muller sampler seeded
// with seed (0 seeds from the current time). Real ingestion pipelines are
// out of scope; this is the in-module stand-in named in §4.1A.
func NewMarketEngine(seed int64, instruments []string, startPrice float64) *MarketEngine {
	if startPrice <= 0 {
		startPrice = 100.0
	}
	states := make(map[string]*instrumentState, len(instruments))
	for _, in := range instruments {
		states[in] = &instrumentState{price: startPrice, volMult: defaultVolMult, tickSize: defaultTickSize}
	}
	return &MarketEngine{rng: newGBMSampler(seed), states: states}
}

// Resolve reports whether instrument exists in the bundle, matching the
// configure task's requirement that every listed instrument resolve.
func (m *MarketEngine) Resolve(instrument string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.states[instrument]
	return ok
}

// NextBar advances instrument's price by one simulated day and returns the
// resulting OHLCV bar timestamped at t. Satisfies the invariant
// low <= open,close <= high and volume >= 0.
func (m *MarketEngine) NextBar(instrument string, t time.Time) model.Bar {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.states[instrument]
	if st == nil {
		return model.Bar{}
	}

	open := st.price
	high, low := open, open
	price := open
	var volume int64

	for i := 0; i < subTicksPerBar; i++ {
		vol := baseDailyVol / math.Sqrt(subTicksPerBar) * st.volMult
		z := m.rng.logReturnZ()
		price *= math.Exp(vol * z)
		price = math.Round(price/st.tickSize) * st.tickSize
		if price < st.tickSize {
			price = st.tickSize
		}
		if price > high {
			high = price
		}
		if price < low {
			low = price
		}
		volume += m.rng.volumeJitter()
	}

	st.price = price

	return model.Bar{
		Instrument: instrument,
		Open:       open,
		High:       high,
		Low:        low,
		Close:      price,
		Volume:     volume,
		Time:       t,
	}
}

// Price returns the instrument's current price.
func (m *MarketEngine) Price(instrument string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st := m.states[instrument]; st != nil {
		return st.price
	}
	return 0
}

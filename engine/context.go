package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndrandal/backtestsim/model"
	"github.com/ndrandal/backtestsim/wire"
)

// SimulationContext is the single owner of the running backtest's
// portfolio and order book. Feed holds a read-only reference to it (for
// snapshotting Period/Position); Broker holds a write reference (for order
// submission) — resolving the source project's cyclic engine<->feed<->broker
// references into one shared owner, adapted from orderbook.Book's
// mutex-guarded bookkeeping style.
type SimulationContext struct {
	mu sync.Mutex

	bundle    *MarketEngine
	portfolio model.Portfolio
	orders    map[string]*model.Order
	// pending holds orders accepted during the current bar, to be matched
	// against the next bar's open — "an order submitted mid-bar is matched
	// against the next bar's open".
	pending []string
}

// NewSimulationContext builds a context with the given starting cash and
// synthetic bundle.
func NewSimulationContext(bundle *MarketEngine, startingCash float64, start time.Time) *SimulationContext {
	return &SimulationContext{
		bundle: bundle,
		portfolio: model.Portfolio{
			StartingCash:   startingCash,
			Cash:           startingCash,
			PortfolioValue: startingCash,
			StartDate:      start,
			CurrentDate:    start,
		},
		orders: make(map[string]*model.Order),
	}
}

// CanTrade reports whether instrument resolves in the bundle.
func (sc *SimulationContext) CanTrade(instrument string) bool {
	return sc.bundle.Resolve(instrument)
}

// SubmitOrder accepts an order, assigns it an id, and queues it to be
// matched against the next bar's open. Unknown instrument is a BrokerError.
func (sc *SimulationContext) SubmitOrder(o model.Order) (model.Order, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if !sc.bundle.Resolve(o.Asset.Symbol) {
		return model.Order{}, fmt.Errorf("%w: unknown instrument %q", wire.ErrBrokerError, o.Asset.Symbol)
	}

	o.ID = uuid.NewString()
	o.Status = model.OrderOpen
	o.Commission = decimal.Zero
	o.CreatedDate = sc.portfolio.CurrentDate
	o.CurrentDate = sc.portfolio.CurrentDate

	sc.orders[o.ID] = &o
	sc.pending = append(sc.pending, o.ID)
	return o, nil
}

// GetOrder looks up an order by id. Unknown id is a BrokerError.
func (sc *SimulationContext) GetOrder(id string) (model.Order, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	o, ok := sc.orders[id]
	if !ok {
		return model.Order{}, fmt.Errorf("%w: unknown order %q", wire.ErrBrokerError, id)
	}
	return *o, nil
}

// GetOpenOrders returns every order still in the OPEN state.
func (sc *SimulationContext) GetOpenOrders() []model.Order {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var out []model.Order
	for _, o := range sc.orders {
		if o.Status == model.OrderOpen {
			out = append(out, *o)
		}
	}
	return out
}

// CancelOrder cancels an open order. Unknown id is a BrokerError.
func (sc *SimulationContext) CancelOrder(id string) (model.Order, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	o, ok := sc.orders[id]
	if !ok {
		return model.Order{}, fmt.Errorf("%w: unknown order %q", wire.ErrBrokerError, id)
	}
	if !o.Status.Terminal() {
		o.Status = model.OrderCancelled
		o.CurrentDate = sc.portfolio.CurrentDate
	}
	return *o, nil
}

// AdvanceBar fills every order pending from the prior bar against this
// bar's open, then advances the portfolio's valuation using each bar's
// close. Orders accepted on bar t are never filled before bar t+1, because
// pending is drained into fills only on the bar *following* submission.
func (sc *SimulationContext) AdvanceBar(bars map[string]model.Bar, at time.Time) model.Portfolio {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	toFill := sc.pending
	sc.pending = nil

	for _, id := range toFill {
		o := sc.orders[id]
		if o == nil || o.Status != model.OrderOpen {
			continue
		}
		bar, ok := bars[o.Asset.Symbol]
		if !ok {
			continue
		}
		o.Filled = o.Amount
		o.Status = model.OrderFilled
		o.CurrentDate = at
		sc.applyFill(o, bar.Open)
	}

	sc.revalue(bars, at)
	return sc.portfolio
}

func (sc *SimulationContext) applyFill(o *model.Order, fillPrice float64) {
	cost := float64(o.Amount) * fillPrice
	sc.portfolio.Cash -= cost
	sc.portfolio.CashFlow -= cost

	for i := range sc.portfolio.Positions {
		if sc.portfolio.Positions[i].Asset.Symbol == o.Asset.Symbol {
			pos := &sc.portfolio.Positions[i]
			newAmount := pos.Amount + o.Amount
			if newAmount != 0 {
				pos.CostBasis = (pos.CostBasis*float64(pos.Amount) + cost) / float64(newAmount)
			}
			pos.Amount = newAmount
			pos.LastSalePrice = fillPrice
			pos.LastSaleDate = o.CurrentDate
			return
		}
	}
	sc.portfolio.Positions = append(sc.portfolio.Positions, model.Position{
		Asset:         o.Asset,
		Amount:        o.Amount,
		CostBasis:     fillPrice,
		LastSalePrice: fillPrice,
		LastSaleDate:  o.CurrentDate,
	})
}

func (sc *SimulationContext) revalue(bars map[string]model.Bar, at time.Time) {
	positionsValue := 0.0
	exposure := 0.0
	kept := sc.portfolio.Positions[:0]
	for _, pos := range sc.portfolio.Positions {
		if bar, ok := bars[pos.Asset.Symbol]; ok {
			pos.LastSalePrice = bar.Close
			pos.LastSaleDate = at
		}
		v := float64(pos.Amount) * pos.LastSalePrice
		positionsValue += v
		if v < 0 {
			exposure -= v
		} else {
			exposure += v
		}
		if pos.Amount != 0 {
			kept = append(kept, pos)
		}
	}
	sc.portfolio.Positions = kept
	sc.portfolio.PositionsValue = positionsValue
	sc.portfolio.PositionsExposure = exposure
	newValue := sc.portfolio.Cash + positionsValue
	if sc.portfolio.PortfolioValue != 0 {
		sc.portfolio.Returns = (newValue - sc.portfolio.PortfolioValue) / sc.portfolio.PortfolioValue
	}
	sc.portfolio.PNL = newValue - sc.portfolio.StartingCash
	sc.portfolio.PortfolioValue = newValue
	sc.portfolio.CurrentDate = at
}

// Snapshot returns a copy of the current portfolio for the feed to publish.
func (sc *SimulationContext) Snapshot() model.Portfolio {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.portfolio
}

package engine

import (
	"encoding/json"

	"github.com/ndrandal/backtestsim/model"
	"github.com/ndrandal/backtestsim/wire"
)

// Broker exposes the engine's order-management task table over a Router:
// can_trade, order, get_order, get_open_orders, cancel_order. Grounded
// directly in the source project's app/broker.py Broker thread's router
// registration.
type Broker struct {
	ctx *SimulationContext
}

// NewBroker wires a Router with the broker task table backed by ctx.
func NewBroker(ctx *SimulationContext) (*Broker, *wire.Router) {
	b := &Broker{ctx: ctx}
	r := wire.NewRouter()
	r.AddRoute("can_trade", b.canTrade)
	r.AddRoute("order", b.order)
	r.AddRoute("get_order", b.getOrder)
	r.AddRoute("get_open_orders", b.getOpenOrders)
	r.AddRoute("cancel_order", b.cancelOrder)
	return b, r
}

func (b *Broker) canTrade(data []byte) (any, error) {
	var asset model.Asset
	if err := json.Unmarshal(data, &asset); err != nil {
		return nil, err
	}
	return b.ctx.CanTrade(asset.Symbol), nil
}

func (b *Broker) order(data []byte) (any, error) {
	var o model.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	return b.ctx.SubmitOrder(o)
}

type orderIDPayload struct {
	ID string `json:"id"`
}

func (b *Broker) getOrder(data []byte) (any, error) {
	var p orderIDPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return b.ctx.GetOrder(p.ID)
}

func (b *Broker) getOpenOrders(data []byte) (any, error) {
	return struct {
		Orders []model.Order `json:"orders"`
	}{Orders: b.ctx.GetOpenOrders()}, nil
}

func (b *Broker) cancelOrder(data []byte) (any, error) {
	var p orderIDPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return b.ctx.CancelOrder(p.ID)
}

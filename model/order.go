package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus mirrors the source project's OrderStatus IntEnum ordinals so
// that any archived run data keeps the original numbering.
type OrderStatus int

const (
	OrderOpen OrderStatus = iota
	OrderFilled
	OrderCancelled
	OrderRejected
	OrderHeld
)

func (s OrderStatus) String() string {
	switch s {
	case OrderOpen:
		return "OPEN"
	case OrderFilled:
		return "FILLED"
	case OrderCancelled:
		return "CANCELLED"
	case OrderRejected:
		return "REJECTED"
	case OrderHeld:
		return "HELD"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status is one of the states an order no
// longer transitions out of.
func (s OrderStatus) Terminal() bool {
	return s == OrderFilled || s == OrderCancelled || s == OrderRejected
}

// Order is a request to trade, and after acceptance the broker's record of
// its fill state. Amount is signed: positive buys, negative sells.
type Order struct {
	ID          string          `json:"id,omitempty"`
	Asset       Asset           `json:"asset"`
	Amount      int64           `json:"amount"`
	Filled      int64           `json:"filled"`
	Commission  decimal.Decimal `json:"commission"`
	LimitPrice  *decimal.Decimal `json:"limit_price,omitempty"`
	StopPrice   *decimal.Decimal `json:"stop_price,omitempty"`
	CreatedDate time.Time       `json:"created_at"`
	CurrentDate time.Time       `json:"current_at"`
	Status      OrderStatus     `json:"status"`
}

// Instrument returns the order's asset symbol.
func (o Order) Instrument() string { return o.Asset.Symbol }

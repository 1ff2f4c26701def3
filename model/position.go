package model

import "time"

// Position is a live holding in an instrument, owned by the simulation's
// portfolio.
type Position struct {
	Asset         Asset     `json:"asset"`
	Amount        int64     `json:"amount"`
	CostBasis     float64   `json:"cost_basis"`
	LastSalePrice float64   `json:"last_sale_price"`
	LastSaleDate  time.Time `json:"last_sale_date"`
}

// Instrument returns the position's asset symbol.
func (p Position) Instrument() string { return p.Asset.Symbol }

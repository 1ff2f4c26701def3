package model

import "time"

// Period is the per-bar portfolio snapshot the engine publishes on the feed
// and caches for the result call. Field set is the richest superset across
// the source project's several incompatible Period variants (see
// DESIGN.md's Open Question decisions).
type Period struct {
	PeriodOpen  time.Time `json:"period_open"`
	PeriodClose time.Time `json:"period_close"`

	ShortsCount int64 `json:"shorts_count"`
	LongsCount  int64 `json:"longs_count"`

	PNL     float64 `json:"pnl"`
	Returns float64 `json:"returns"`

	LongValue        float64 `json:"long_value"`
	ShortValue       float64 `json:"short_value"`
	LongExposure     float64 `json:"long_exposure"`
	ShortExposure    float64 `json:"short_exposure"`
	StartingExposure float64 `json:"starting_exposure"`
	EndingExposure   float64 `json:"ending_exposure"`

	CapitalUsed   float64 `json:"capital_used"`
	GrossLeverage float64 `json:"gross_leverage"`
	NetLeverage   float64 `json:"net_leverage"`
	MaxLeverage   float64 `json:"max_leverage"`

	StartingValue float64 `json:"starting_value"`
	EndingValue   float64 `json:"ending_value"`
	StartingCash  float64 `json:"starting_cash"`
	EndingCash    float64 `json:"ending_cash"`

	PortfolioValue float64 `json:"portfolio_value"`

	AlgoVolatility float64 `json:"algo_volatility"`
	Sharpe         float64 `json:"sharpe"`
	Alpha          float64 `json:"alpha"`
	Beta           float64 `json:"beta"`
	Sortino        float64 `json:"sortino"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	ExcessReturn   float64 `json:"excess_return"`

	TreasuryPeriodReturn    float64 `json:"treasury_period_return"`
	TradingDays             int64   `json:"trading_days"`
	BenchmarkPeriodReturn   float64 `json:"benchmark_period_return"`
	BenchmarkVolatility     float64 `json:"benchmark_volatility"`
	AlgorithmPeriodReturn   float64 `json:"algorithm_period_return"`
}

// Result is the full period series returned by the engine's "result" task.
type Result struct {
	Periods []Period `json:"periods"`
}

// FromPortfolio derives a Period from a Portfolio snapshot and the bar
// boundary timestamps it was taken across.
func FromPortfolio(p Portfolio, open, close time.Time) Period {
	var longs, shorts int64
	var longValue, shortValue float64
	for _, pos := range p.Positions {
		v := float64(pos.Amount) * pos.LastSalePrice
		if pos.Amount > 0 {
			longs++
			longValue += v
		} else if pos.Amount < 0 {
			shorts++
			shortValue += -v
		}
	}

	period := Period{
		PeriodOpen:     open,
		PeriodClose:    close,
		ShortsCount:    shorts,
		LongsCount:     longs,
		PNL:            p.PNL,
		Returns:        p.Returns,
		LongValue:      longValue,
		ShortValue:     shortValue,
		StartingCash:   p.StartingCash,
		EndingCash:     p.Cash,
		PortfolioValue: p.PortfolioValue,
	}
	if p.PortfolioValue != 0 {
		period.LongExposure = longValue / p.PortfolioValue
		period.ShortExposure = shortValue / p.PortfolioValue
		period.NetLeverage = (longValue - shortValue) / p.PortfolioValue
		period.GrossLeverage = (longValue + shortValue) / p.PortfolioValue
	}
	return period
}

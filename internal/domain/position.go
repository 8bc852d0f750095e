package domain

import "time"

// Position is an open position tracked by the ledger. The symbol is the
// unique key: at most one open position exists per symbol. A Position is
// created only after a successful (real or simulated) order placement and
// is destroyed by migration to a ClosedPosition.
type Position struct {
	Symbol     string
	Direction  Direction
	EntryPrice float64
	Quantity   int64 // integer lots
	OrderID    string
	OpenedAt   time.Time
	Notional   float64 // entry notional: quantity x entryPrice x multiplier
}

// PnlAt returns the realized pnl the position would have at the given exit price.
func (p *Position) PnlAt(exitPrice float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	pnl := (exitPrice - p.EntryPrice) / p.EntryPrice * p.Notional
	if p.Direction == Short {
		pnl = -pnl
	}
	return pnl
}

// ClosedPosition is the immutable record of a position after it has been
// unwound, either by an explicit CLOSE signal or by reconciliation
// detecting an external close.
type ClosedPosition struct {
	Position
	ExitPrice          float64
	RealizedPnl        float64
	RealizedPnlPercent float64
	Duration           time.Duration
	ClosedAt           time.Time
}

// NewClosedPosition migrates an open position into its closed form.
func NewClosedPosition(p *Position, exitPrice float64, closedAt time.Time) *ClosedPosition {
	pnl := p.PnlAt(exitPrice)
	pct := 0.0
	if p.Notional > 0 {
		pct = pnl / p.Notional * 100
	}
	return &ClosedPosition{
		Position:           *p,
		ExitPrice:          exitPrice,
		RealizedPnl:        pnl,
		RealizedPnlPercent: pct,
		Duration:           closedAt.Sub(p.OpenedAt),
		ClosedAt:           closedAt,
	}
}

// DailyStats aggregates the current day's closed positions.
type DailyStats struct {
	Trades   int
	Wins     int // realized pnl >= 0
	Losses   int
	TotalPnl float64
}

package domain

// ContractSpec describes the venue's trading rules for one contract.
// Specs are fetched fresh for every trading decision, never cached.
type ContractSpec struct {
	Symbol        string
	TickSize      float64
	LotSize       float64 // quantity step, in lots
	Multiplier    float64 // contract value per lot per price unit
	MinOrderQty   int64
	MaxOrderQty   int64
	TradingStatus string
}

// IsTradable reports whether the venue currently accepts orders for the contract.
func (c *ContractSpec) IsTradable() bool {
	return c.TradingStatus == "TRADING"
}

// RiskPlan is the sized order derived for one OPEN signal. It is never persisted.
type RiskPlan struct {
	EntryPrice     float64
	Quantity       int64 // integer lots, post floor and clamp
	Notional       float64
	Leverage       int
	RequiredMargin float64
	Direction      Direction
}

package risk

import (
	"fmt"
	"math"

	"alertTradeBot/internal/domain"
	"alertTradeBot/internal/ports"
)

// Config holds the sizing parameters applied to every plan.
type Config struct {
	PositionSizePercent float64 // percent of balance committed as notional
	Leverage            int
}

// Compute derives a position plan from the live balance, the entry price
// and the venue's contract rules. It is a pure function: same inputs,
// same plan.
//
//	notional       = balance x percent/100
//	rawLots        = notional / (price x multiplier)
//	lots           = clamp(floor(rawLots), minOrderQty, maxOrderQty)
//	requiredMargin = lots x price x multiplier / leverage
//
// The margin check runs after clamping, so a plan sized up to the
// contract minimum can still be rejected for insufficient funds.
func Compute(cfg Config, balance, price float64, direction domain.Direction, spec *domain.ContractSpec) (*domain.RiskPlan, error) {
	if balance <= 0 {
		return nil, fmt.Errorf("%w: balance %.4f must be positive", ports.ErrInvalidInput, balance)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price %.4f must be positive", ports.ErrInvalidInput, price)
	}
	if !direction.IsValid() {
		return nil, fmt.Errorf("%w: direction %q", ports.ErrInvalidInput, direction)
	}
	if spec == nil || spec.Multiplier <= 0 {
		return nil, fmt.Errorf("%w: contract spec missing or multiplier not positive", ports.ErrInvalidInput)
	}
	if cfg.Leverage <= 0 || cfg.PositionSizePercent <= 0 {
		return nil, fmt.Errorf("%w: leverage %d and position size percent %.2f must be positive",
			ports.ErrInvalidInput, cfg.Leverage, cfg.PositionSizePercent)
	}

	notional := balance * cfg.PositionSizePercent / 100
	rawLots := notional / (price * spec.Multiplier)
	lots := int64(math.Floor(rawLots))
	if lots < spec.MinOrderQty {
		lots = spec.MinOrderQty
	}
	if spec.MaxOrderQty > 0 && lots > spec.MaxOrderQty {
		lots = spec.MaxOrderQty
	}
	if lots <= 0 {
		return nil, fmt.Errorf("%w: sized to zero lots (notional %.4f)", ports.ErrInsufficientBalance, notional)
	}

	requiredMargin := float64(lots) * price * spec.Multiplier / float64(cfg.Leverage)
	if requiredMargin > balance {
		return nil, fmt.Errorf("%w: required margin %.4f exceeds balance %.4f",
			ports.ErrInsufficientBalance, requiredMargin, balance)
	}

	return &domain.RiskPlan{
		EntryPrice:     price,
		Quantity:       lots,
		Notional:       float64(lots) * price * spec.Multiplier,
		Leverage:       cfg.Leverage,
		RequiredMargin: requiredMargin,
		Direction:      direction,
	}, nil
}

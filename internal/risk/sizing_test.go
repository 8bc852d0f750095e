package risk

import (
	"math"
	"math/rand"
	"testing"

	"alertTradeBot/internal/domain"
	"alertTradeBot/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpec(multiplier float64, minQty, maxQty int64) *domain.ContractSpec {
	return &domain.ContractSpec{
		Symbol:        "BTCUSDT",
		TickSize:      0.1,
		LotSize:       1,
		Multiplier:    multiplier,
		MinOrderQty:   minQty,
		MaxOrderQty:   maxQty,
		TradingStatus: "TRADING",
	}
}

func TestCompute(t *testing.T) {
	cfg := Config{PositionSizePercent: 5, Leverage: 10}

	// balance 1000, 5% -> notional 50; 50 / (10 x 0.01) = 500 lots;
	// margin 500 x 10 x 0.01 / 10 = 5.
	plan, err := Compute(cfg, 1000, 10, domain.Long, testSpec(0.01, 1, 100000))
	require.NoError(t, err)
	assert.Equal(t, int64(500), plan.Quantity)
	assert.Equal(t, 10.0, plan.EntryPrice)
	assert.InDelta(t, 50.0, plan.Notional, 1e-9)
	assert.InDelta(t, 5.0, plan.RequiredMargin, 1e-9)
	assert.Equal(t, 10, plan.Leverage)
	assert.Equal(t, domain.Long, plan.Direction)
}

func TestCompute_FloorsFractionalLots(t *testing.T) {
	cfg := Config{PositionSizePercent: 5, Leverage: 10}

	// notional 50, lot value 10 x 0.007 = 0.07 -> raw 714.28... -> 714.
	plan, err := Compute(cfg, 1000, 10, domain.Short, testSpec(0.007, 1, 100000))
	require.NoError(t, err)
	assert.Equal(t, int64(714), plan.Quantity)
}

func TestCompute_ClampsToContractBounds(t *testing.T) {
	cfg := Config{PositionSizePercent: 5, Leverage: 10}

	t.Run("raised to minimum", func(t *testing.T) {
		// notional 0.5 sizes to 5 raw lots; contract minimum is 10.
		plan, err := Compute(cfg, 10, 10, domain.Long, testSpec(0.01, 10, 100000))
		require.NoError(t, err)
		assert.Equal(t, int64(10), plan.Quantity)
		assert.InDelta(t, 0.1, plan.RequiredMargin, 1e-9)
	})

	t.Run("capped at maximum", func(t *testing.T) {
		plan, err := Compute(cfg, 100000, 10, domain.Long, testSpec(0.01, 1, 200))
		require.NoError(t, err)
		assert.Equal(t, int64(200), plan.Quantity)
	})
}

func TestCompute_MarginCheckedAfterClamp(t *testing.T) {
	cfg := Config{PositionSizePercent: 5, Leverage: 10}

	// Raw sizing rounds to zero, the contract minimum forces one lot, and
	// that single lot needs 100 margin against a balance of 10.
	plan, err := Compute(cfg, 10, 1000, domain.Long, testSpec(1, 1, 100000))
	assert.Nil(t, plan)
	assert.ErrorIs(t, err, ports.ErrInsufficientBalance)
}

func TestCompute_InvalidInputs(t *testing.T) {
	valid := testSpec(0.01, 1, 100000)
	tests := []struct {
		name      string
		cfg       Config
		balance   float64
		price     float64
		direction domain.Direction
		spec      *domain.ContractSpec
	}{
		{"zero balance", Config{5, 10}, 0, 10, domain.Long, valid},
		{"negative price", Config{5, 10}, 1000, -1, domain.Long, valid},
		{"unknown direction", Config{5, 10}, 1000, 10, domain.Direction("SIDEWAYS"), valid},
		{"nil spec", Config{5, 10}, 1000, 10, domain.Long, nil},
		{"zero multiplier", Config{5, 10}, 1000, 10, domain.Long, testSpec(0, 1, 100000)},
		{"zero leverage", Config{5, 0}, 1000, 10, domain.Long, valid},
		{"zero size percent", Config{0, 10}, 1000, 10, domain.Long, valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Compute(tt.cfg, tt.balance, tt.price, tt.direction, tt.spec)
			assert.Nil(t, plan)
			assert.ErrorIs(t, err, ports.ErrInvalidInput)
		})
	}
}

func TestCompute_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := Config{PositionSizePercent: 5, Leverage: 10}

	for i := 0; i < 200; i++ {
		balance := 100 + rng.Float64()*100000
		price := 0.01 + rng.Float64()*50000
		mult := []float64{0.001, 0.01, 0.1, 1}[rng.Intn(4)]
		spec := testSpec(mult, 1, 1_000_000_000)

		first, err1 := Compute(cfg, balance, price, domain.Long, spec)
		second, err2 := Compute(cfg, balance, price, domain.Long, spec)
		if err1 != nil {
			require.Error(t, err2)
			continue
		}
		require.NoError(t, err2)
		assert.Equal(t, first, second)

		// The plan must match the documented formula exactly.
		notional := balance * cfg.PositionSizePercent / 100
		wantLots := int64(math.Floor(notional / (price * mult)))
		if wantLots < 1 {
			wantLots = 1
		}
		assert.Equal(t, wantLots, first.Quantity)
		assert.InDelta(t, float64(wantLots)*price*mult/float64(cfg.Leverage), first.RequiredMargin, 1e-6)
	}
}

package admission

import (
	"context"
	"errors"
	"testing"
	"time"

	"alertTradeBot/internal/domain"
	"alertTradeBot/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type stubBook struct {
	hasOpen     bool
	countOpen   int
	tradesToday int
}

func (b *stubBook) HasOpen(symbol string) bool { return b.hasOpen }
func (b *stubBook) CountOpen() int             { return b.countOpen }
func (b *stubBook) TradesToday() int           { return b.tradesToday }

type mockExchange struct {
	balance    float64
	balanceErr error
	spec       *domain.ContractSpec
	specErr    error

	balanceCalls int
	specCalls    int
}

func (m *mockExchange) Connect(ctx context.Context) error { return nil }
func (m *mockExchange) GetBalance(ctx context.Context) (float64, error) {
	m.balanceCalls++
	return m.balance, m.balanceErr
}
func (m *mockExchange) GetContractInfo(ctx context.Context, symbol string) (*domain.ContractSpec, error) {
	m.specCalls++
	return m.spec, m.specErr
}
func (m *mockExchange) GetPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, errors.New("not implemented")
}
func (m *mockExchange) OpenMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string, leverage int, marginMode domain.MarginMode) (*ports.OrderResponse, error) {
	return nil, errors.New("not implemented")
}
func (m *mockExchange) CloseMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string) (*ports.OrderResponse, error) {
	return nil, errors.New("not implemented")
}
func (m *mockExchange) GetOpenPositions(ctx context.Context, symbol string) ([]*ports.VenuePosition, error) {
	return nil, nil
}
func (m *mockExchange) GetTradeHistory(ctx context.Context, symbol string, limit int) ([]*ports.Fill, error) {
	return nil, nil
}

// --- Helpers ---

func baseConfig() Config {
	return Config{
		MaxOpenPositions: 3,
		MaxDailyTrades:   10,
		Location:         time.UTC,
	}
}

func tradableSpec() *domain.ContractSpec {
	return &domain.ContractSpec{
		Symbol:        "BTCUSDT",
		Multiplier:    0.01,
		MinOrderQty:   1,
		MaxOrderQty:   100000,
		TradingStatus: "TRADING",
	}
}

func openSignal(symbol string) *domain.TradeSignal {
	return &domain.TradeSignal{
		Kind:      domain.KindOpen,
		Symbol:    symbol,
		Direction: domain.Long,
		LastPrice: 100,
		FairPrice: 100,
	}
}

func spreadPtr(v float64) *float64 { return &v }

// --- Tests ---

func TestCheck_Accepted(t *testing.T) {
	ex := &mockExchange{balance: 1000, spec: tradableSpec()}
	p := New(baseConfig(), &stubBook{}, ex, &mockLogger{})

	res := p.Check(context.Background(), openSignal("BTCUSDT"))
	require.True(t, res.Accepted)
	assert.Empty(t, res.Reason)
	assert.Equal(t, 1000.0, res.Balance)
	require.NotNil(t, res.Contract)
	assert.Equal(t, "BTCUSDT", res.Contract.Symbol)
	// One decision, one fetch of each.
	assert.Equal(t, 1, ex.balanceCalls)
	assert.Equal(t, 1, ex.specCalls)
}

func TestCheck_GateOrderIsStable(t *testing.T) {
	// Signal violates both the blocklist and the trading-hours window; the
	// earlier gate must report.
	cfg := baseConfig()
	cfg.BlockedSymbols = []string{"BTCUSDT"}
	cfg.TradingHoursEnabled = true
	cfg.StartHour = 9
	cfg.EndHour = 17

	ex := &mockExchange{balance: 1000, spec: tradableSpec()}
	p := New(cfg, &stubBook{}, ex, &mockLogger{})
	p.now = func() time.Time { return time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC) }

	res := p.Check(context.Background(), openSignal("BTCUSDT"))
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonSymbolBlocked, res.Reason)
}

func TestCheck_LocalRejectionMakesNoNetworkCalls(t *testing.T) {
	cfg := baseConfig()
	cfg.BlockedSymbols = []string{"BTCUSDT"}

	ex := &mockExchange{balance: 1000, spec: tradableSpec()}
	p := New(cfg, &stubBook{}, ex, &mockLogger{})

	res := p.Check(context.Background(), openSignal("BTCUSDT"))
	assert.False(t, res.Accepted)
	assert.Zero(t, ex.balanceCalls)
	assert.Zero(t, ex.specCalls)
}

func TestCheck_SpreadFilter(t *testing.T) {
	cfg := baseConfig()
	cfg.SpreadFilterEnabled = true
	cfg.MinSpreadPercent = 0.5

	ex := &mockExchange{balance: 1000, spec: tradableSpec()}
	p := New(cfg, &stubBook{}, ex, &mockLogger{})

	t.Run("missing spread rejected when filter on", func(t *testing.T) {
		res := p.Check(context.Background(), openSignal("BTCUSDT"))
		assert.False(t, res.Accepted)
		assert.Equal(t, ReasonSpreadTooLow, res.Reason)
	})

	t.Run("spread below minimum rejected", func(t *testing.T) {
		sig := openSignal("BTCUSDT")
		sig.SpreadPercent = spreadPtr(0.3)
		res := p.Check(context.Background(), sig)
		assert.False(t, res.Accepted)
		assert.Equal(t, ReasonSpreadTooLow, res.Reason)
	})

	t.Run("spread at minimum passes", func(t *testing.T) {
		sig := openSignal("BTCUSDT")
		sig.SpreadPercent = spreadPtr(0.5)
		res := p.Check(context.Background(), sig)
		assert.True(t, res.Accepted)
	})

	t.Run("filter off ignores missing spread", func(t *testing.T) {
		off := New(baseConfig(), &stubBook{}, ex, &mockLogger{})
		res := off.Check(context.Background(), openSignal("BTCUSDT"))
		assert.True(t, res.Accepted)
	})
}

func TestCheck_InvalidDirection(t *testing.T) {
	ex := &mockExchange{balance: 1000, spec: tradableSpec()}
	p := New(baseConfig(), &stubBook{}, ex, &mockLogger{})

	sig := openSignal("BTCUSDT")
	sig.Direction = domain.Direction("SIDEWAYS")
	res := p.Check(context.Background(), sig)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonInvalidDirection, res.Reason)
}

func TestCheck_TradingHoursWindow(t *testing.T) {
	at := func(hour int) func() time.Time {
		return func() time.Time { return time.Date(2026, 9, 1, hour, 30, 0, 0, time.UTC) }
	}

	tests := []struct {
		name       string
		start, end int
		hour       int
		wantOK     bool
	}{
		{"inside plain window", 9, 17, 12, true},
		{"start inclusive", 9, 17, 9, true},
		{"end exclusive", 9, 17, 17, false},
		{"before plain window", 9, 17, 3, false},
		{"wrapping window late evening", 22, 6, 23, true},
		{"wrapping window early morning", 22, 6, 3, true},
		{"wrapping window midday", 22, 6, 12, false},
		{"equal bounds cover whole day", 8, 8, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.TradingHoursEnabled = true
			cfg.StartHour = tt.start
			cfg.EndHour = tt.end

			ex := &mockExchange{balance: 1000, spec: tradableSpec()}
			p := New(cfg, &stubBook{}, ex, &mockLogger{})
			p.now = at(tt.hour)

			res := p.Check(context.Background(), openSignal("BTCUSDT"))
			assert.Equal(t, tt.wantOK, res.Accepted)
			if !tt.wantOK {
				assert.Equal(t, ReasonOutsideHours, res.Reason)
			}
		})
	}
}

func TestCheck_BookGates(t *testing.T) {
	ex := &mockExchange{balance: 1000, spec: tradableSpec()}

	t.Run("position already open", func(t *testing.T) {
		p := New(baseConfig(), &stubBook{hasOpen: true}, ex, &mockLogger{})
		res := p.Check(context.Background(), openSignal("BTCUSDT"))
		assert.Equal(t, ReasonPositionOpen, res.Reason)
	})

	t.Run("max open positions", func(t *testing.T) {
		p := New(baseConfig(), &stubBook{countOpen: 3}, ex, &mockLogger{})
		res := p.Check(context.Background(), openSignal("BTCUSDT"))
		assert.Equal(t, ReasonMaxPositions, res.Reason)
	})

	t.Run("daily trade limit", func(t *testing.T) {
		p := New(baseConfig(), &stubBook{tradesToday: 10}, ex, &mockLogger{})
		res := p.Check(context.Background(), openSignal("BTCUSDT"))
		assert.Equal(t, ReasonDailyLimit, res.Reason)
	})
}

func TestCheck_BalanceGate(t *testing.T) {
	t.Run("fetch error", func(t *testing.T) {
		ex := &mockExchange{balanceErr: ports.ErrConnectionFailed, spec: tradableSpec()}
		p := New(baseConfig(), &stubBook{}, ex, &mockLogger{})
		res := p.Check(context.Background(), openSignal("BTCUSDT"))
		assert.Equal(t, ReasonBalanceUnavailable, res.Reason)
		// Rejected before the contract gate.
		assert.Zero(t, ex.specCalls)
	})

	t.Run("zero balance", func(t *testing.T) {
		ex := &mockExchange{balance: 0, spec: tradableSpec()}
		p := New(baseConfig(), &stubBook{}, ex, &mockLogger{})
		res := p.Check(context.Background(), openSignal("BTCUSDT"))
		assert.Equal(t, ReasonBalanceUnavailable, res.Reason)
	})
}

func TestCheck_TradableGate(t *testing.T) {
	t.Run("symbol unknown", func(t *testing.T) {
		ex := &mockExchange{balance: 1000, specErr: ports.ErrSymbolNotFound}
		p := New(baseConfig(), &stubBook{}, ex, &mockLogger{})
		res := p.Check(context.Background(), openSignal("NOPEUSDT"))
		assert.Equal(t, ReasonSymbolNotTradable, res.Reason)
	})

	t.Run("status not trading", func(t *testing.T) {
		spec := tradableSpec()
		spec.TradingStatus = "BREAK"
		ex := &mockExchange{balance: 1000, spec: spec}
		p := New(baseConfig(), &stubBook{}, ex, &mockLogger{})
		res := p.Check(context.Background(), openSignal("BTCUSDT"))
		assert.Equal(t, ReasonSymbolNotTradable, res.Reason)
	})
}

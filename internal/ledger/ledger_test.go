package ledger

import (
	"context"
	"testing"
	"time"

	"alertTradeBot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct {
	warnCount int
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnCount++
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func testPosition(symbol, orderID string) *domain.Position {
	return &domain.Position{
		Symbol:     symbol,
		Direction:  domain.Long,
		EntryPrice: 100,
		Quantity:   10,
		OrderID:    orderID,
		OpenedAt:   time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		Notional:   1000,
	}
}

func TestAddRemoveOpen(t *testing.T) {
	l := New(&mockLogger{})

	assert.False(t, l.HasOpen("BTCUSDT"))
	assert.Zero(t, l.CountOpen())

	l.AddOpen(testPosition("BTCUSDT", "1"))
	assert.True(t, l.HasOpen("BTCUSDT"))
	assert.Equal(t, 1, l.CountOpen())

	pos, ok := l.GetOpen("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, "1", pos.OrderID)

	removed, ok := l.RemoveOpen("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, "1", removed.OrderID)
	assert.False(t, l.HasOpen("BTCUSDT"))

	// Second removal reports absence so concurrent closers can back off.
	_, ok = l.RemoveOpen("BTCUSDT")
	assert.False(t, ok)
}

func TestAddOpen_DuplicateSymbolLastWriteWins(t *testing.T) {
	log := &mockLogger{}
	l := New(log)

	l.AddOpen(testPosition("BTCUSDT", "1"))
	l.AddOpen(testPosition("BTCUSDT", "2"))

	assert.Equal(t, 1, l.CountOpen())
	pos, ok := l.GetOpen("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, "2", pos.OrderID)
	assert.Equal(t, 1, log.warnCount)
}

func TestOpenSymbols(t *testing.T) {
	l := New(&mockLogger{})
	l.AddOpen(testPosition("BTCUSDT", "1"))
	l.AddOpen(testPosition("ETHUSDT", "2"))

	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT"}, l.OpenSymbols())
}

func TestStats(t *testing.T) {
	l := New(&mockLogger{})
	closedAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	// +10% win, -5% loss, breakeven counts as win.
	l.AddClosed(domain.NewClosedPosition(testPosition("BTCUSDT", "1"), 110, closedAt))
	l.AddClosed(domain.NewClosedPosition(testPosition("ETHUSDT", "2"), 95, closedAt))
	l.AddClosed(domain.NewClosedPosition(testPosition("SOLUSDT", "3"), 100, closedAt))

	stats := l.Stats()
	assert.Equal(t, 3, stats.Trades)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.InDelta(t, 100-50+0, stats.TotalPnl, 1e-9)
}

func TestTradesTodayCounter(t *testing.T) {
	l := New(&mockLogger{})
	assert.Zero(t, l.TradesToday())
	l.IncTradesToday()
	l.IncTradesToday()
	assert.Equal(t, 2, l.TradesToday())
}

func TestResetDaily_KeepsOpenPositions(t *testing.T) {
	l := New(&mockLogger{})
	l.AddOpen(testPosition("BTCUSDT", "1"))
	l.AddClosed(domain.NewClosedPosition(testPosition("ETHUSDT", "2"), 110, time.Now()))
	l.IncTradesToday()

	l.ResetDaily()

	assert.Empty(t, l.Closed())
	assert.Zero(t, l.TradesToday())
	assert.True(t, l.HasOpen("BTCUSDT"), "rollover must not touch open positions")
}

func TestClosed_ReturnsSnapshot(t *testing.T) {
	l := New(&mockLogger{})
	l.AddClosed(domain.NewClosedPosition(testPosition("BTCUSDT", "1"), 110, time.Now()))

	snap := l.Closed()
	require.Len(t, snap, 1)
	l.AddClosed(domain.NewClosedPosition(testPosition("ETHUSDT", "2"), 90, time.Now()))
	assert.Len(t, snap, 1, "earlier snapshot must not grow")
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPnlAt(t *testing.T) {
	long := &Position{Direction: Long, EntryPrice: 100, Quantity: 10, Notional: 1000}
	short := &Position{Direction: Short, EntryPrice: 100, Quantity: 10, Notional: 1000}

	tests := []struct {
		name string
		pos  *Position
		exit float64
		want float64
	}{
		{"long gains on rise", long, 110, 100},
		{"long loses on fall", long, 90, -100},
		{"short gains on fall", short, 90, 100},
		{"short loses on rise", short, 110, -100},
		{"flat exit is zero", long, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.pos.PnlAt(tt.exit), 1e-9)
		})
	}
}

func TestNewClosedPosition(t *testing.T) {
	openedAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	closedAt := openedAt.Add(90 * time.Minute)
	pos := &Position{
		Symbol:     "BTCUSDT",
		Direction:  Long,
		EntryPrice: 100,
		Quantity:   10,
		OrderID:    "42",
		OpenedAt:   openedAt,
		Notional:   1000,
	}

	cp := NewClosedPosition(pos, 105, closedAt)
	assert.Equal(t, "BTCUSDT", cp.Symbol)
	assert.Equal(t, 105.0, cp.ExitPrice)
	assert.InDelta(t, 50.0, cp.RealizedPnl, 1e-9)
	assert.InDelta(t, 5.0, cp.RealizedPnlPercent, 1e-9)
	assert.Equal(t, 90*time.Minute, cp.Duration)
	assert.Equal(t, closedAt, cp.ClosedAt)
}

func TestDirection(t *testing.T) {
	assert.True(t, Long.IsValid())
	assert.True(t, Short.IsValid())
	assert.False(t, Direction("SIDEWAYS").IsValid())

	assert.Equal(t, Buy, Long.EntrySide())
	assert.Equal(t, Sell, Long.CloseSide())
	assert.Equal(t, Sell, Short.EntrySide())
	assert.Equal(t, Buy, Short.CloseSide())
}

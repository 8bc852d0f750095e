package ledger

import (
	"context"
	"sync"

	"alertTradeBot/internal/domain"
	"alertTradeBot/internal/ports"
)

// Ledger is the in-memory book of open positions, the current day's
// closed-position history and the day counters. The sequential signal
// worker and the reconciliation loop both mutate it, so every operation
// holds the single mutex. Nothing here is persisted: after a restart the
// book is rebuilt through reconciliation against the venue.
type Ledger struct {
	logger ports.Logger

	mu          sync.Mutex
	open        map[string]*domain.Position
	closed      []*domain.ClosedPosition
	tradesToday int
}

// New creates an empty ledger.
func New(logger ports.Logger) *Ledger {
	return &Ledger{
		logger: logger,
		open:   make(map[string]*domain.Position),
	}
}

// AddOpen registers an open position under its symbol. A duplicate symbol
// is last-write-wins, logged loudly; the book never holds two entries for
// one symbol.
func (l *Ledger) AddOpen(pos *domain.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, exists := l.open[pos.Symbol]; exists {
		l.logger.Warn(context.Background(), "overwriting tracked open position", map[string]interface{}{
			"symbol":        pos.Symbol,
			"previousOrder": prev.OrderID,
			"newOrder":      pos.OrderID,
		})
	}
	l.open[pos.Symbol] = pos
}

// RemoveOpen takes the open position for a symbol out of the book.
func (l *Ledger) RemoveOpen(symbol string) (*domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.open[symbol]
	if !ok {
		return nil, false
	}
	delete(l.open, symbol)
	return pos, true
}

// GetOpen returns the tracked open position for a symbol, if any.
func (l *Ledger) GetOpen(symbol string) (*domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.open[symbol]
	return pos, ok
}

// HasOpen reports whether a position is tracked for the symbol.
func (l *Ledger) HasOpen(symbol string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.open[symbol]
	return ok
}

// CountOpen returns the number of tracked open positions.
func (l *Ledger) CountOpen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.open)
}

// OpenSymbols returns a snapshot of the tracked symbols.
func (l *Ledger) OpenSymbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	symbols := make([]string, 0, len(l.open))
	for sym := range l.open {
		symbols = append(symbols, sym)
	}
	return symbols
}

// AddClosed appends a closed position to the day's history. Entries are
// never mutated after insertion.
func (l *Ledger) AddClosed(cp *domain.ClosedPosition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = append(l.closed, cp)
}

// Closed returns a snapshot of the day's closed-position history.
func (l *Ledger) Closed() []*domain.ClosedPosition {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*domain.ClosedPosition, len(l.closed))
	copy(out, l.closed)
	return out
}

// TradesToday returns the number of trades opened today.
func (l *Ledger) TradesToday() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tradesToday
}

// IncTradesToday bumps the daily trade counter.
func (l *Ledger) IncTradesToday() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tradesToday++
}

// Stats recomputes the day's aggregates over the closed history. O(n) per
// call, which is fine at expected daily trade volumes.
func (l *Ledger) Stats() domain.DailyStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	stats := domain.DailyStats{Trades: len(l.closed)}
	for _, cp := range l.closed {
		if cp.RealizedPnl >= 0 {
			stats.Wins++
		} else {
			stats.Losses++
		}
		stats.TotalPnl += cp.RealizedPnl
	}
	return stats
}

// ResetDaily clears the closed history and the day counters on rollover.
// Open positions are untouched.
func (l *Ledger) ResetDaily() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = nil
	l.tradesToday = 0
}

package app

import (
	"context"
	"fmt"
	"time"

	"alertTradeBot/internal/domain"
	"alertTradeBot/internal/ports"
)

// How many recent fills to scan for the closing trade of an externally
// closed position.
const tradeHistoryLimit = 20

// reconcileLoop runs reconciliation ticks until the context is canceled.
// A single goroutine drains the ticker, and the ticker channel holds at
// most one pending tick, so a pass that outruns the interval can only
// delay the next pass, never overlap with it.
func (s *Service) reconcileLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()

	s.logger.Info(ctx, "Reconciliation loop started", map[string]interface{}{"interval": s.cfg.ReconcileInterval.String()})
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Reconciliation loop stopped")
			return
		case <-ticker.C:
			s.reconcileTick(ctx)
		}
	}
}

// reconcileTick diffs every tracked symbol against the venue. A failure
// on one symbol is logged and must not prevent reconciliation of the
// remaining symbols in the same tick.
func (s *Service) reconcileTick(ctx context.Context) {
	for _, symbol := range s.ledger.OpenSymbols() {
		if err := s.reconcileSymbol(ctx, symbol); err != nil {
			s.logger.Error(ctx, err, "Reconciliation failed for symbol", map[string]interface{}{"symbol": symbol})
		}
	}
}

// reconcileSymbol compares one tracked position with the venue's view.
// Zero venue size means the position was closed externally (stop,
// liquidation, manual close) and is migrated to the closed history.
// Nonzero size only refreshes an unrealized-pnl observation for logging;
// tracked position fields are never mutated here.
func (s *Service) reconcileSymbol(ctx context.Context, symbol string) error {
	live, err := s.venuePosition(ctx, symbol)
	if err != nil {
		return fmt.Errorf("fetch venue position for %s: %w", symbol, err)
	}

	pos, ok := s.ledger.GetOpen(symbol)
	if !ok {
		// Closed by a signal between the snapshot and now.
		return nil
	}

	if live != nil {
		s.logger.Debug(ctx, "Position still open at venue", map[string]interface{}{
			"symbol":        symbol,
			"size":          live.Size,
			"markPrice":     live.MarkPrice,
			"unrealizedPnl": live.UnrealizedPnl,
		})
		return nil
	}

	exitPrice, degraded := s.findExitPrice(ctx, pos)
	removed, ok := s.ledger.RemoveOpen(symbol)
	if !ok {
		return nil
	}
	cp := domain.NewClosedPosition(removed, exitPrice, s.now())
	s.ledger.AddClosed(cp)

	fields := map[string]interface{}{
		"symbol": cp.Symbol, "exitPrice": cp.ExitPrice, "pnl": cp.RealizedPnl, "duration": cp.Duration.String(),
	}
	if degraded {
		fields["degradedExitData"] = true
		s.logger.Warn(ctx, "Externally closed position recorded without matching fill, pnl defaulted to zero", fields)
	} else {
		s.logger.Info(ctx, "Externally closed position reconciled", fields)
	}
	s.notify(ctx, fmt.Sprintf("Position %s %s closed externally @ %.4f, pnl %.4f (%.2f%%)",
		cp.Direction, cp.Symbol, cp.ExitPrice, cp.RealizedPnl, cp.RealizedPnlPercent))
	return nil
}

// venuePosition returns the venue's live position for a symbol, or nil
// when the venue reports the symbol flat.
func (s *Service) venuePosition(ctx context.Context, symbol string) (*ports.VenuePosition, error) {
	positions, err := s.exchange.GetOpenPositions(ctx, symbol)
	if err != nil {
		return nil, err
	}
	for _, p := range positions {
		if p.Symbol == symbol && p.Size != 0 {
			return p, nil
		}
	}
	return nil, nil
}

// findExitPrice derives the exit price of an externally closed position
// from the most recent closing-side fill after the open. When no such
// fill can be found the entry price is used, yielding zero realized pnl:
// a deliberate degraded-data fallback rather than a guess.
func (s *Service) findExitPrice(ctx context.Context, pos *domain.Position) (exitPrice float64, degraded bool) {
	fills, err := s.exchange.GetTradeHistory(ctx, pos.Symbol, tradeHistoryLimit)
	if err != nil {
		s.logger.Warn(ctx, "Trade history unavailable while reconciling", map[string]interface{}{
			"symbol": pos.Symbol, "error": err.Error(),
		})
		return pos.EntryPrice, true
	}
	closeSide := pos.Direction.CloseSide()
	for _, fill := range fills { // most recent first
		if fill.Side == closeSide && !fill.Time.Before(pos.OpenedAt) {
			return fill.Price, false
		}
	}
	return pos.EntryPrice, true
}

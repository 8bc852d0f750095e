package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"alertTradeBot/config"
	"alertTradeBot/internal/admission"
	"alertTradeBot/internal/domain"
	"alertTradeBot/internal/ledger"
	"alertTradeBot/internal/parser"
	"alertTradeBot/internal/ports"
	"alertTradeBot/internal/risk"
)

// Service orchestrates the bot: it consumes alerts strictly sequentially,
// gates and sizes OPEN signals, places (or simulates) venue orders, and
// keeps the ledger reconciled against the venue. Exactly one goroutine
// processes signals, so the admission gates of a signal always observe
// the ledger state left by the previous signal's completed processing.
type Service struct {
	cfg       *config.Config
	logger    ports.Logger
	exchange  ports.ExchangeClient
	notifier  ports.Notifier
	alerts    ports.AlertSource
	parser    *parser.Parser
	ledger    *ledger.Ledger
	admission *admission.Pipeline
	riskCfg   risk.Config
	rollover  *cron.Cron
	now       func() time.Time
}

// New creates the application service.
func New(
	cfg *config.Config,
	logger ports.Logger,
	exchange ports.ExchangeClient,
	notifier ports.Notifier,
	alerts ports.AlertSource,
	sigParser *parser.Parser,
	book *ledger.Ledger,
	pipeline *admission.Pipeline,
) (*Service, error) {
	if cfg == nil || logger == nil || exchange == nil || alerts == nil || sigParser == nil || book == nil || pipeline == nil {
		return nil, fmt.Errorf("missing required dependencies for Service")
	}
	return &Service{
		cfg:       cfg,
		logger:    logger,
		exchange:  exchange,
		notifier:  notifier,
		alerts:    alerts,
		parser:    sigParser,
		ledger:    book,
		admission: pipeline,
		riskCfg: risk.Config{
			PositionSizePercent: cfg.PositionSizePercent,
			Leverage:            cfg.Leverage,
		},
		now: time.Now,
	}, nil
}

// Start runs the bot until the context is canceled or an interrupt
// arrives. It returns an error only for initialization failures; the
// caller maps that to a nonzero exit status.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting trading service...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	// Initial venue connectivity is fatal: without it neither admission
	// nor reconciliation can function.
	if err := s.exchange.Connect(ctx); err != nil {
		s.logger.Error(ctx, err, "Failed initial venue connectivity check")
		return fmt.Errorf("venue connectivity check failed: %w", err)
	}
	s.logger.Info(ctx, "Venue connection established")

	// Recover state: adopt positions the venue still holds from a
	// previous run. There is no durable store, the venue is the only
	// source of truth.
	s.adoptVenuePositions(ctx)

	reconcileDone := make(chan struct{})
	go s.reconcileLoop(ctx, reconcileDone)

	s.rollover = cron.New(cron.WithLocation(s.cfg.Location))
	if _, err := s.rollover.AddFunc("0 0 * * *", func() { s.rolloverDay(context.Background()) }); err != nil {
		return fmt.Errorf("failed to schedule daily rollover: %w", err)
	}
	s.rollover.Start()

	s.notify(ctx, fmt.Sprintf("Trading bot started (dryRun=%v, mapping=%s)", s.cfg.DryRun, s.cfg.DirectionMapping))

	// Main loop: strictly sequential signal consumption.
	alerts := s.alerts.Alerts()
	for {
		select {
		case <-ctx.Done():
			s.shutdown(reconcileDone)
			return nil
		case text, ok := <-alerts:
			if !ok {
				s.logger.Warn(ctx, "Alert channel closed, initiating shutdown")
				alerts = nil
				cancel()
				continue
			}
			s.handleAlert(ctx, text)
		}
	}
}

// shutdown stops the rollover timer, waits for the reconciliation loop
// and sends a best-effort final notification. In-flight network calls
// are not cancelled beyond context propagation.
func (s *Service) shutdown(reconcileDone <-chan struct{}) {
	ctx := context.Background()
	s.logger.Info(ctx, "Shutting down trading service...")

	if s.rollover != nil {
		<-s.rollover.Stop().Done()
	}
	select {
	case <-reconcileDone:
	case <-time.After(5 * time.Second):
		s.logger.Warn(ctx, "Timeout waiting for reconciliation loop to stop")
	}

	stats := s.ledger.Stats()
	s.notify(ctx, fmt.Sprintf("Trading bot stopped. Today: %d trades, %d wins, %d losses, pnl %.4f",
		stats.Trades, stats.Wins, stats.Losses, stats.TotalPnl))
	s.logger.Info(ctx, "Trading service stopped.")
}

// handleAlert classifies one alert text and dispatches it. Unparseable
// alerts are dropped with a diagnostic naming the missing field.
func (s *Service) handleAlert(ctx context.Context, text string) {
	switch s.parser.Classify(text) {
	case domain.KindOpen:
		sig, err := s.parser.ParseOpen(text)
		if err != nil {
			s.logger.Warn(ctx, "Dropping unparseable entry alert", map[string]interface{}{"reason": err.Error()})
			return
		}
		s.handleOpen(ctx, sig)
	case domain.KindClose:
		sig, err := s.parser.ParseClose(text)
		if err != nil {
			s.logger.Warn(ctx, "Dropping unparseable exit alert", map[string]interface{}{"reason": err.Error()})
			return
		}
		s.handleClose(ctx, sig)
	default:
		s.logger.Debug(ctx, "Ignoring unrecognized alert text")
	}
}

// handleOpen runs an OPEN signal through admission, sizing and order
// placement, then registers the resulting position.
func (s *Service) handleOpen(ctx context.Context, sig *domain.TradeSignal) {
	op := "handleOpen"
	s.logger.Info(ctx, op+": Processing entry signal", map[string]interface{}{
		"symbol": sig.Symbol, "direction": sig.Direction, "lastPrice": sig.LastPrice,
	})

	res := s.admission.Check(ctx, sig)
	if !res.Accepted {
		s.logger.Warn(ctx, op+": Signal rejected by admission pipeline", map[string]interface{}{
			"symbol": sig.Symbol, "reason": res.Reason, "details": res.Details,
		})
		s.notify(ctx, fmt.Sprintf("Rejected %s %s: %s (%s)", sig.Direction, sig.Symbol, res.Reason, res.Details))
		return
	}

	// Entry price basis: venue last price, alert last price as fallback.
	price, err := s.exchange.GetPrice(ctx, sig.Symbol)
	if err != nil || price <= 0 {
		if sig.LastPrice <= 0 {
			s.logger.Error(ctx, err, op+": No usable entry price", map[string]interface{}{"symbol": sig.Symbol})
			s.notify(ctx, fmt.Sprintf("Trade error %s: no usable entry price", sig.Symbol))
			return
		}
		s.logger.Warn(ctx, op+": Venue price unavailable, using alert price", map[string]interface{}{
			"symbol": sig.Symbol, "alertPrice": sig.LastPrice,
		})
		price = sig.LastPrice
	}

	plan, err := risk.Compute(s.riskCfg, res.Balance, price, sig.Direction, res.Contract)
	if err != nil {
		s.logger.Error(ctx, err, op+": Sizing failed", map[string]interface{}{"symbol": sig.Symbol, "balance": res.Balance, "price": price})
		s.notify(ctx, fmt.Sprintf("Trade error %s: %v", sig.Symbol, err))
		return
	}
	s.logger.Info(ctx, op+": Plan computed", map[string]interface{}{
		"symbol": sig.Symbol, "lots": plan.Quantity, "notional": plan.Notional, "requiredMargin": plan.RequiredMargin,
	})

	quantityStr := strconv.FormatInt(plan.Quantity, 10)
	entryPrice := plan.EntryPrice
	var orderID string
	if s.cfg.DryRun {
		orderID = fmt.Sprintf("dry-%d", s.now().UnixNano())
		s.logger.Info(ctx, op+": Dry run, simulated fill", map[string]interface{}{"symbol": sig.Symbol, "orderID": orderID})
	} else {
		resp, err := s.exchange.OpenMarketOrder(ctx, sig.Symbol, sig.Direction.EntrySide(), quantityStr, plan.Leverage, s.cfg.MarginMode)
		if err != nil {
			s.logger.Error(ctx, err, op+": Entry order failed", map[string]interface{}{"symbol": sig.Symbol})
			s.notify(ctx, fmt.Sprintf("Order failed %s %s: %v", sig.Direction, sig.Symbol, err))
			return
		}
		if resp.AvgPrice > 0 {
			entryPrice = resp.AvgPrice
		} else {
			s.logger.Warn(ctx, op+": Entry order AvgPrice is 0, keeping plan price", map[string]interface{}{"orderID": resp.OrderID})
		}
		orderID = strconv.FormatInt(resp.OrderID, 10)
	}

	pos := &domain.Position{
		Symbol:     sig.Symbol,
		Direction:  sig.Direction,
		EntryPrice: entryPrice,
		Quantity:   plan.Quantity,
		OrderID:    orderID,
		OpenedAt:   s.now(),
		Notional:   float64(plan.Quantity) * entryPrice * res.Contract.Multiplier,
	}
	s.ledger.AddOpen(pos)
	s.ledger.IncTradesToday()

	s.notify(ctx, fmt.Sprintf("Opened %s %s: %d lots @ %.4f (order %s)",
		sig.Direction, sig.Symbol, pos.Quantity, pos.EntryPrice, pos.OrderID))
}

// handleClose unwinds the tracked position for a CLOSE signal. A CLOSE
// for an untracked symbol is a harmless no-op, so duplicate or stray
// close alerts cannot fail.
func (s *Service) handleClose(ctx context.Context, sig *domain.TradeSignal) {
	op := "handleClose"
	pos, ok := s.ledger.GetOpen(sig.Symbol)
	if !ok {
		s.logger.Warn(ctx, op+": Close signal for untracked symbol, ignoring", map[string]interface{}{"symbol": sig.Symbol})
		return
	}

	quantityStr := strconv.FormatInt(pos.Quantity, 10)
	exitPrice := pos.EntryPrice
	if s.cfg.DryRun {
		if price, err := s.exchange.GetPrice(ctx, sig.Symbol); err == nil && price > 0 {
			exitPrice = price
		}
		s.logger.Info(ctx, op+": Dry run, simulated close", map[string]interface{}{"symbol": sig.Symbol, "exitPrice": exitPrice})
	} else {
		resp, err := s.exchange.CloseMarketOrder(ctx, sig.Symbol, pos.Direction.CloseSide(), quantityStr)
		if err != nil {
			// Position stays tracked; reconciliation will pick it up if
			// the venue closed it anyway.
			s.logger.Error(ctx, err, op+": Close order failed", map[string]interface{}{"symbol": sig.Symbol})
			s.notify(ctx, fmt.Sprintf("Close failed %s: %v", sig.Symbol, err))
			return
		}
		if resp.AvgPrice > 0 {
			exitPrice = resp.AvgPrice
		} else if price, perr := s.exchange.GetPrice(ctx, sig.Symbol); perr == nil && price > 0 {
			exitPrice = price
		}
	}

	removed, ok := s.ledger.RemoveOpen(sig.Symbol)
	if !ok {
		s.logger.Warn(ctx, op+": Position vanished during close, likely reconciled", map[string]interface{}{"symbol": sig.Symbol})
		return
	}
	cp := domain.NewClosedPosition(removed, exitPrice, s.now())
	s.ledger.AddClosed(cp)

	s.logger.Info(ctx, op+": Position closed", map[string]interface{}{
		"symbol": cp.Symbol, "pnl": cp.RealizedPnl, "pnlPercent": cp.RealizedPnlPercent, "duration": cp.Duration.String(),
	})
	s.notify(ctx, fmt.Sprintf("Closed %s %s: %d lots @ %.4f, pnl %.4f (%.2f%%)",
		cp.Direction, cp.Symbol, cp.Quantity, cp.ExitPrice, cp.RealizedPnl, cp.RealizedPnlPercent))
}

// adoptVenuePositions seeds the ledger with positions the venue reports
// at startup. Entry data comes from the venue since nothing survived the
// restart locally.
func (s *Service) adoptVenuePositions(ctx context.Context) {
	positions, err := s.exchange.GetOpenPositions(ctx, "")
	if err != nil {
		s.logger.Warn(ctx, "Could not query venue positions at startup", map[string]interface{}{"error": err.Error()})
		return
	}
	for _, vp := range positions {
		if vp.Size == 0 {
			continue
		}
		direction := domain.Long
		size := vp.Size
		if size < 0 {
			direction = domain.Short
			size = -size
		}
		pos := &domain.Position{
			Symbol:     vp.Symbol,
			Direction:  direction,
			EntryPrice: vp.EntryPrice,
			Quantity:   int64(size),
			OrderID:    "adopted",
			OpenedAt:   s.now(),
			Notional:   size * vp.EntryPrice,
		}
		s.ledger.AddOpen(pos)
		s.logger.Info(ctx, "Adopted venue position", map[string]interface{}{
			"symbol": vp.Symbol, "direction": direction, "size": size, "entryPrice": vp.EntryPrice,
		})
	}
}

// rolloverDay sends the daily report and resets the day's history and
// counters. Open positions survive the rollover.
func (s *Service) rolloverDay(ctx context.Context) {
	stats := s.ledger.Stats()
	s.notify(ctx, fmt.Sprintf("Daily report: %d trades, %d wins, %d losses, total pnl %.4f",
		stats.Trades, stats.Wins, stats.Losses, stats.TotalPnl))
	s.ledger.ResetDaily()
	s.logger.Info(ctx, "Daily rollover complete", map[string]interface{}{
		"trades": stats.Trades, "wins": stats.Wins, "losses": stats.Losses, "totalPnl": stats.TotalPnl,
	})
}

// notify delivers a message to the notification sink, logging instead of
// failing when delivery is impossible.
func (s *Service) notify(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendMessage(ctx, text); err != nil {
		s.logger.Warn(ctx, "Notification delivery failed", map[string]interface{}{"error": err.Error()})
	}
}

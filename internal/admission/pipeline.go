package admission

import (
	"context"
	"fmt"
	"time"

	"alertTradeBot/internal/domain"
	"alertTradeBot/internal/ports"
)

// Reason codes reported when a gate rejects an OPEN signal.
const (
	ReasonSpreadTooLow       = "spread_below_minimum"
	ReasonSymbolBlocked      = "symbol_blocked"
	ReasonInvalidDirection   = "invalid_direction"
	ReasonOutsideHours       = "outside_trading_hours"
	ReasonPositionOpen       = "position_already_open"
	ReasonMaxPositions       = "max_open_positions_reached"
	ReasonDailyLimit         = "daily_trade_limit_reached"
	ReasonBalanceUnavailable = "balance_unavailable"
	ReasonSymbolNotTradable  = "symbol_not_tradable"
)

// Book is the ledger view the local gates consult.
type Book interface {
	HasOpen(symbol string) bool
	CountOpen() int
	TradesToday() int
}

// Config holds the gate parameters.
type Config struct {
	SpreadFilterEnabled bool
	MinSpreadPercent    float64
	BlockedSymbols      []string
	TradingHoursEnabled bool
	StartHour           int // inclusive
	EndHour             int // exclusive; a window may wrap past midnight
	Location            *time.Location
	MaxOpenPositions    int
	MaxDailyTrades      int
}

// Result is the admission verdict for one OPEN signal. When accepted, the
// balance and contract spec observed by the network gates ride along so
// the same decision does not fetch them twice.
type Result struct {
	Accepted bool
	Reason   string
	Details  string
	Balance  float64
	Contract *domain.ContractSpec
}

// gate is one ordered admission check. A false return short-circuits the
// sequence with the gate's reason code.
type gate struct {
	reason string
	check  func(ctx context.Context, sig *domain.TradeSignal, res *Result) (bool, string)
}

// Pipeline runs an OPEN signal through the ordered gate sequence. The
// order is a contract: the cheap local gates run before the two
// network-dependent gates, so an invalid signal never costs an API call.
type Pipeline struct {
	cfg      Config
	blocked  map[string]struct{}
	book     Book
	exchange ports.ExchangeClient
	logger   ports.Logger
	now      func() time.Time
	gates    []gate
}

// New builds the pipeline with its declared gate order.
func New(cfg Config, book Book, exchange ports.ExchangeClient, logger ports.Logger) *Pipeline {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	p := &Pipeline{
		cfg:      cfg,
		blocked:  make(map[string]struct{}, len(cfg.BlockedSymbols)),
		book:     book,
		exchange: exchange,
		logger:   logger,
		now:      time.Now,
	}
	for _, sym := range cfg.BlockedSymbols {
		p.blocked[sym] = struct{}{}
	}
	p.gates = []gate{
		{ReasonSpreadTooLow, p.checkSpread},
		{ReasonSymbolBlocked, p.checkBlocklist},
		{ReasonInvalidDirection, p.checkDirection},
		{ReasonOutsideHours, p.checkTradingHours},
		{ReasonPositionOpen, p.checkNoOpenPosition},
		{ReasonMaxPositions, p.checkOpenCount},
		{ReasonDailyLimit, p.checkDailyLimit},
		{ReasonBalanceUnavailable, p.checkBalance},
		{ReasonSymbolNotTradable, p.checkTradable},
	}
	return p
}

// Check runs the gates in order and returns the first rejection, or an
// accepted result carrying the observed balance and contract spec.
func (p *Pipeline) Check(ctx context.Context, sig *domain.TradeSignal) *Result {
	res := &Result{}
	for _, g := range p.gates {
		ok, details := g.check(ctx, sig, res)
		if !ok {
			res.Accepted = false
			res.Reason = g.reason
			res.Details = details
			return res
		}
	}
	res.Accepted = true
	return res
}

func (p *Pipeline) checkSpread(_ context.Context, sig *domain.TradeSignal, _ *Result) (bool, string) {
	if !p.cfg.SpreadFilterEnabled {
		return true, ""
	}
	if sig.SpreadPercent == nil {
		return false, "alert carried no spread value"
	}
	if *sig.SpreadPercent < p.cfg.MinSpreadPercent {
		return false, fmt.Sprintf("spread %.2f%% below minimum %.2f%%", *sig.SpreadPercent, p.cfg.MinSpreadPercent)
	}
	return true, ""
}

func (p *Pipeline) checkBlocklist(_ context.Context, sig *domain.TradeSignal, _ *Result) (bool, string) {
	if _, blocked := p.blocked[sig.Symbol]; blocked {
		return false, fmt.Sprintf("symbol %s is on the blocklist", sig.Symbol)
	}
	return true, ""
}

func (p *Pipeline) checkDirection(_ context.Context, sig *domain.TradeSignal, _ *Result) (bool, string) {
	if !sig.Direction.IsValid() {
		return false, fmt.Sprintf("direction %q is not LONG or SHORT", sig.Direction)
	}
	return true, ""
}

func (p *Pipeline) checkTradingHours(_ context.Context, _ *domain.TradeSignal, _ *Result) (bool, string) {
	if !p.cfg.TradingHoursEnabled {
		return true, ""
	}
	hour := p.now().In(p.cfg.Location).Hour()
	if !withinWindow(hour, p.cfg.StartHour, p.cfg.EndHour) {
		return false, fmt.Sprintf("hour %d outside window [%d, %d) in %s",
			hour, p.cfg.StartHour, p.cfg.EndHour, p.cfg.Location)
	}
	return true, ""
}

func (p *Pipeline) checkNoOpenPosition(_ context.Context, sig *domain.TradeSignal, _ *Result) (bool, string) {
	if p.book.HasOpen(sig.Symbol) {
		return false, fmt.Sprintf("position already tracked for %s", sig.Symbol)
	}
	return true, ""
}

func (p *Pipeline) checkOpenCount(_ context.Context, _ *domain.TradeSignal, _ *Result) (bool, string) {
	if count := p.book.CountOpen(); count >= p.cfg.MaxOpenPositions {
		return false, fmt.Sprintf("open positions %d at configured maximum %d", count, p.cfg.MaxOpenPositions)
	}
	return true, ""
}

func (p *Pipeline) checkDailyLimit(_ context.Context, _ *domain.TradeSignal, _ *Result) (bool, string) {
	if trades := p.book.TradesToday(); trades >= p.cfg.MaxDailyTrades {
		return false, fmt.Sprintf("trades today %d at configured maximum %d", trades, p.cfg.MaxDailyTrades)
	}
	return true, ""
}

func (p *Pipeline) checkBalance(ctx context.Context, _ *domain.TradeSignal, res *Result) (bool, string) {
	balance, err := p.exchange.GetBalance(ctx)
	if err != nil {
		return false, fmt.Sprintf("balance fetch failed: %v", err)
	}
	if balance <= 0 {
		return false, fmt.Sprintf("balance %.4f is not positive", balance)
	}
	res.Balance = balance
	return true, ""
}

func (p *Pipeline) checkTradable(ctx context.Context, sig *domain.TradeSignal, res *Result) (bool, string) {
	spec, err := p.exchange.GetContractInfo(ctx, sig.Symbol)
	if err != nil {
		return false, fmt.Sprintf("contract info fetch failed: %v", err)
	}
	if !spec.IsTradable() {
		return false, fmt.Sprintf("trading status %q", spec.TradingStatus)
	}
	res.Contract = spec
	return true, ""
}

// withinWindow reports whether hour falls inside [start, end), treating
// start >= end as a window that wraps past midnight. Equal bounds cover
// the whole day.
func withinWindow(hour, start, end int) bool {
	if start == end {
		return true
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

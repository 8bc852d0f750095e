package ports

import (
	"context"
	"time"

	"alertTradeBot/internal/domain"
)

// OrderResponse represents the essential details returned after placing an order.
type OrderResponse struct {
	OrderID     int64   // venue's order ID
	Symbol      string  // symbol for the order
	Price       float64 // price of the order (0 for market orders initially)
	AvgPrice    float64 // average filled price
	ExecutedQty float64 // quantity filled
	Status      string  // order status (e.g. NEW, FILLED)
	Side        string  // order side (BUY, SELL)
	Timestamp   time.Time
}

// VenuePosition is the venue's live view of a position. Size is signed:
// positive for long exposure, negative for short, zero when flat.
type VenuePosition struct {
	Symbol        string
	Size          float64
	EntryPrice    float64
	MarkPrice     float64
	UnrealizedPnl float64
	Leverage      int
}

// Fill is one executed trade from the venue's account trade history.
type Fill struct {
	Symbol      string
	Side        domain.OrderSide
	Price       float64
	Quantity    float64
	RealizedPnl float64
	Time        time.Time
}

// ExchangeClient defines the interface for interacting with the trading venue.
// This abstraction decouples the core bot logic from a specific exchange.
type ExchangeClient interface {
	// Connect verifies connectivity and synchronizes client time with the venue.
	Connect(ctx context.Context) error

	// GetBalance retrieves the available quote-asset balance.
	GetBalance(ctx context.Context) (float64, error)

	// GetContractInfo retrieves the trading rules for a symbol.
	// Returns ErrSymbolNotFound (wrapped) when the venue does not list it.
	GetContractInfo(ctx context.Context, symbol string) (*domain.ContractSpec, error)

	// GetPrice retrieves the last traded price for a symbol.
	GetPrice(ctx context.Context, symbol string) (float64, error)

	// OpenMarketOrder sets leverage and margin mode for the symbol and
	// submits a market order establishing new exposure.
	OpenMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string, leverage int, marginMode domain.MarginMode) (*OrderResponse, error)

	// CloseMarketOrder submits a reduce-only market order unwinding exposure.
	CloseMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string) (*OrderResponse, error)

	// GetOpenPositions retrieves the venue's live positions. An empty symbol
	// queries all symbols. Flat (zero size) entries may be included.
	GetOpenPositions(ctx context.Context, symbol string) ([]*VenuePosition, error)

	// GetTradeHistory retrieves recent account fills, most recent first.
	GetTradeHistory(ctx context.Context, symbol string, limit int) ([]*Fill, error)
}

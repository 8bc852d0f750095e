package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"alertTradeBot/internal/domain"
	"alertTradeBot/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	// Binance error code returned when the margin type is already set.
	codeNoNeedToChangeMarginType = -4046
)

// Client implements the ports.ExchangeClient interface using the go-binance library.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
	quoteAsset    string
	multiplier    float64
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
	QuoteAsset string  // balance asset, default USDT
	Multiplier float64 // contract value per lot per price unit, default 1 for linear contracts
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	quoteAsset := cfg.QuoteAsset
	if quoteAsset == "" {
		quoteAsset = "USDT"
	}
	multiplier := cfg.Multiplier
	if multiplier <= 0 {
		multiplier = 1.0
	}

	return &Client{
		futuresClient: client,
		logger:        cfg.Logger,
		quoteAsset:    quoteAsset,
		multiplier:    multiplier,
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		// Map specific Binance error codes to custom errors
		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Signature for this request is not valid
			mappedErr = ports.ErrAuthenticationFailed
		case -1121: // Invalid symbol
			mappedErr = ports.ErrSymbolNotFound
		case -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1125, -1127, -1128, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		case -2010: // New order rejected
			mappedErr = ports.ErrOrderPlacementFailed
		case -2014: // API-key format invalid
			mappedErr = ports.ErrInvalidAPIKeys
		case -2015: // Invalid API-key, IP, or permissions for action
			mappedErr = ports.ErrInvalidAPIKeys
		case -2019: // Margin is insufficient
			mappedErr = ports.ErrInsufficientFunds
		case -2022: // ReduceOnly Order is rejected
			mappedErr = ports.ErrOrderPlacementFailed
		case -3005: // Insufficient balance
			mappedErr = ports.ErrInsufficientFunds
		case -3041: // Position is not sufficient
			mappedErr = ports.ErrInsufficientFunds
		case -4003: // Qty not within permissible range
			mappedErr = ports.ErrInvalidRequest
		case -4015: // Leverage is not valid
			mappedErr = ports.ErrInvalidRequest
		case -4044: // Position not found
			mappedErr = ports.ErrPositionNotFound
		case -4047: // Exceeded the maximum allowable position at current leverage.
			mappedErr = ports.ErrInsufficientFunds
		default:
			// General classification for unmapped API errors
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		// Default for other errors (e.g., parsing errors within the adapter)
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Connect verifies API connectivity and synchronizes the client's time
// offset with the venue. Order signing breaks on clock drift, so both
// steps must succeed before trading starts.
func (c *Client) Connect(ctx context.Context) error {
	op := "Connect"
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	if _, err := c.futuresClient.NewSetServerTimeService().Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetBalance retrieves the available quote-asset balance.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	op := "GetBalance"
	account, err := c.futuresClient.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}

	for _, bal := range account.Assets {
		if bal.Asset == c.quoteAsset {
			balance, err := strconv.ParseFloat(bal.AvailableBalance, 64)
			if err != nil {
				parseErr := fmt.Errorf("could not parse balance '%s' for asset %s: %w", bal.AvailableBalance, c.quoteAsset, err)
				return 0, c.handleError(ctx, parseErr, op)
			}
			return balance, nil
		}
	}

	// Asset not found in the account details
	err = fmt.Errorf("asset %s not found in account balance", c.quoteAsset)
	return 0, c.handleError(ctx, err, op)
}

// GetContractInfo retrieves the trading rules for a symbol from exchange info.
func (c *Client) GetContractInfo(ctx context.Context, symbol string) (*domain.ContractSpec, error) {
	op := "GetContractInfo"
	info, err := c.futuresClient.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	for i := range info.Symbols {
		sym := &info.Symbols[i]
		if sym.Symbol != symbol {
			continue
		}
		spec := &domain.ContractSpec{
			Symbol:        sym.Symbol,
			Multiplier:    c.multiplier,
			TradingStatus: sym.Status,
		}
		if pf := sym.PriceFilter(); pf != nil {
			spec.TickSize, _ = strconv.ParseFloat(pf.TickSize, 64)
		}
		if lf := sym.LotSizeFilter(); lf != nil {
			spec.LotSize, _ = strconv.ParseFloat(lf.StepSize, 64)
			minQty, _ := strconv.ParseFloat(lf.MinQuantity, 64)
			maxQty, _ := strconv.ParseFloat(lf.MaxQuantity, 64)
			spec.MinOrderQty = int64(minQty)
			spec.MaxOrderQty = int64(maxQty)
		}
		return spec, nil
	}

	err = fmt.Errorf("%w: %s", ports.ErrSymbolNotFound, symbol)
	c.logger.Warn(ctx, op+": symbol not listed", map[string]interface{}{"symbol": symbol})
	return nil, err
}

// GetPrice retrieves the last ticker price for a given symbol.
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetPrice"
	tickers, err := c.futuresClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	if len(tickers) == 0 {
		err := fmt.Errorf("no ticker data returned for symbol %s", symbol)
		return 0, c.handleError(ctx, err, op)
	}

	price, err := strconv.ParseFloat(tickers[0].LastPrice, 64)
	if err != nil {
		parseErr := fmt.Errorf("could not parse price '%s': %w", tickers[0].LastPrice, err)
		return 0, c.handleError(ctx, parseErr, op)
	}
	return price, nil
}

// OpenMarketOrder sets margin mode and leverage for the symbol, then
// submits a market order establishing new exposure.
func (c *Client) OpenMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string, leverage int, marginMode domain.MarginMode) (*ports.OrderResponse, error) {
	op := "OpenMarketOrder"

	if err := c.setMarginType(ctx, symbol, marginMode); err != nil {
		return nil, err
	}
	if _, err := c.futuresClient.NewChangeLeverageService().Symbol(symbol).Leverage(leverage).Do(ctx); err != nil {
		// Trade on with the venue's current leverage rather than failing the entry.
		c.logger.Warn(ctx, op+": failed to set leverage, continuing with current", map[string]interface{}{
			"symbol": symbol, "leverage": leverage, "error": err.Error(),
		})
	}

	order, err := c.futuresClient.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(quantity).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	resp := translateOrderResponse(order)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "side": side, "quantity": quantity, "orderID": resp.OrderID, "avgPrice": resp.AvgPrice})
	return resp, nil
}

// CloseMarketOrder submits a reduce-only market order unwinding exposure.
func (c *Client) CloseMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string) (*ports.OrderResponse, error) {
	op := "CloseMarketOrder"

	order, err := c.futuresClient.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(quantity).
		ReduceOnly(true).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	resp := translateOrderResponse(order)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "side": side, "quantity": quantity, "orderID": resp.OrderID, "avgPrice": resp.AvgPrice})
	return resp, nil
}

// GetOpenPositions retrieves the venue's live positions. An empty symbol
// queries all symbols. Flat entries are filtered out.
func (c *Client) GetOpenPositions(ctx context.Context, symbol string) ([]*ports.VenuePosition, error) {
	op := "GetOpenPositions"
	svc := c.futuresClient.NewGetPositionRiskService()
	if symbol != "" {
		svc = svc.Symbol(symbol)
	}
	positions, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	out := make([]*ports.VenuePosition, 0, len(positions))
	for _, pos := range positions {
		vp := translateVenuePosition(pos)
		if vp.Size == 0 {
			continue
		}
		out = append(out, vp)
	}
	return out, nil
}

// GetTradeHistory retrieves recent account fills for a symbol, most recent first.
func (c *Client) GetTradeHistory(ctx context.Context, symbol string, limit int) ([]*ports.Fill, error) {
	op := "GetTradeHistory"
	svc := c.futuresClient.NewListAccountTradeService().Limit(limit)
	if symbol != "" {
		svc = svc.Symbol(symbol)
	}
	trades, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	// Binance returns fills oldest first; callers scan newest first.
	out := make([]*ports.Fill, 0, len(trades))
	for i := len(trades) - 1; i >= 0; i-- {
		out = append(out, translateFill(trades[i]))
	}
	return out, nil
}

// setMarginType applies the margin mode, treating "already set" as success.
func (c *Client) setMarginType(ctx context.Context, symbol string, marginMode domain.MarginMode) error {
	op := "SetMarginType"
	err := c.futuresClient.NewChangeMarginTypeService().
		Symbol(symbol).
		MarginType(futures.MarginType(marginMode)).
		Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == codeNoNeedToChangeMarginType {
			return nil
		}
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "marginMode": marginMode})
	return nil
}

// --- Translation Helpers ---

func translateOrderResponse(order *futures.CreateOrderResponse) *ports.OrderResponse {
	if order == nil {
		return nil
	}
	price, _ := strconv.ParseFloat(order.Price, 64)
	avgPrice, _ := strconv.ParseFloat(order.AvgPrice, 64)
	execQty, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)

	return &ports.OrderResponse{
		OrderID:     order.OrderID,
		Symbol:      order.Symbol,
		Price:       price,
		AvgPrice:    avgPrice,
		ExecutedQty: execQty,
		Status:      string(order.Status),
		Side:        string(order.Side),
		Timestamp:   time.UnixMilli(order.UpdateTime),
	}
}

func translateVenuePosition(pos *futures.PositionRisk) *ports.VenuePosition {
	if pos == nil {
		return nil
	}
	size, _ := strconv.ParseFloat(pos.PositionAmt, 64)
	entryPrice, _ := strconv.ParseFloat(pos.EntryPrice, 64)
	markPrice, _ := strconv.ParseFloat(pos.MarkPrice, 64)
	unrealized, _ := strconv.ParseFloat(pos.UnRealizedProfit, 64)
	leverage, _ := strconv.Atoi(pos.Leverage) // Leverage is string in go-binance

	return &ports.VenuePosition{
		Symbol:        pos.Symbol,
		Size:          size,
		EntryPrice:    entryPrice,
		MarkPrice:     markPrice,
		UnrealizedPnl: unrealized,
		Leverage:      leverage,
	}
}

func translateFill(trade *futures.AccountTrade) *ports.Fill {
	if trade == nil {
		return nil
	}
	price, _ := strconv.ParseFloat(trade.Price, 64)
	qty, _ := strconv.ParseFloat(trade.Quantity, 64)
	pnl, _ := strconv.ParseFloat(trade.RealizedPnl, 64)

	return &ports.Fill{
		Symbol:      trade.Symbol,
		Side:        domain.OrderSide(trade.Side),
		Price:       price,
		Quantity:    qty,
		RealizedPnl: pnl,
		Time:        time.UnixMilli(trade.Time),
	}
}

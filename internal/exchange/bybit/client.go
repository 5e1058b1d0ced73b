// Package bybit implements the exchange.Adapter capability set against the
// Bybit V5 REST API (linear perpetuals, one-way position mode).
package bybit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"execgate/internal/domain"
	"execgate/internal/exchange"
	"execgate/internal/infra"
)

const (
	category          = "linear"
	defaultRecvWindow = 5000
)

// Client talks to the Bybit V5 REST API. All calls flow through a token
// bucket and a circuit breaker so a failing venue degrades one operation at
// a time instead of hammering the endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *Signer
	limiter    *infra.RateLimiter
	breaker    *infra.CircuitBreaker
	recvWindow int
	log        *slog.Logger
}

// NewClient creates a REST client for the given endpoint and key pair.
func NewClient(baseURL, accessKey, secretKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		signer:     NewSigner(accessKey, secretKey),
		limiter:    infra.NewRateLimiter(10, 5),
		breaker:    infra.NewCircuitBreaker("bybit-rest", 0, 0, 0),
		recvWindow: defaultRecvWindow,
		log:        slog.Default().With(slog.String("component", "bybit")),
	}
}

var _ exchange.Adapter = (*Client)(nil)

// PlaceOrder submits an order. The intent id travels as orderLinkId, which
// makes re-submission idempotent on the venue side as well.
func (c *Client) PlaceOrder(ctx context.Context, req exchange.PlaceOrderRequest) (exchange.PlaceOrderResult, error) {
	body := placeOrderRequest{
		Category:    category,
		Symbol:      req.Symbol,
		Side:        string(req.Side),
		OrderType:   req.OrderType,
		Qty:         req.Qty.String(),
		TimeInForce: req.TimeInForce,
		ReduceOnly:  req.ReduceOnly,
		PositionIdx: req.PositionIdx,
		OrderLinkID: req.ClientOrderID,
	}
	if req.Price != nil {
		body.Price = req.Price.String()
	}
	if req.PostOnly {
		body.TimeInForce = "PostOnly"
	}
	raw, err := c.post(ctx, "/v5/order/create", body)
	if err != nil {
		return exchange.PlaceOrderResult{}, err
	}
	var result placeOrderResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return exchange.PlaceOrderResult{}, fmt.Errorf("decode place-order result: %w", err)
	}
	return exchange.PlaceOrderResult{OrderID: result.OrderID}, nil
}

// CancelOrder cancels one order by venue id.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	_, err := c.post(ctx, "/v5/order/cancel", cancelOrderRequest{
		Category: category,
		Symbol:   symbol,
		OrderID:  orderID,
	})
	return err
}

// CancelAll cancels every open order for the symbol.
func (c *Client) CancelAll(ctx context.Context, symbol string) error {
	_, err := c.post(ctx, "/v5/order/cancel-all", cancelAllRequest{
		Category: category,
		Symbol:   symbol,
	})
	return err
}

// GetSnapshot reads open orders and the net position for a symbol.
func (c *Client) GetSnapshot(ctx context.Context, symbol string) (exchange.Snapshot, error) {
	query := url.Values{"category": {category}, "symbol": {symbol}}

	raw, err := c.get(ctx, "/v5/order/realtime", query)
	if err != nil {
		return exchange.Snapshot{}, err
	}
	var orders openOrdersResult
	if err := json.Unmarshal(raw, &orders); err != nil {
		return exchange.Snapshot{}, fmt.Errorf("decode open orders: %w", err)
	}

	raw, err = c.get(ctx, "/v5/position/list", query)
	if err != nil {
		return exchange.Snapshot{}, err
	}
	var positions positionListResult
	if err := json.Unmarshal(raw, &positions); err != nil {
		return exchange.Snapshot{}, fmt.Errorf("decode position list: %w", err)
	}

	snap := exchange.Snapshot{Symbol: symbol}
	for _, o := range orders.List {
		snap.Orders = append(snap.Orders, mapOrderItem(o))
	}
	if len(positions.List) > 0 {
		snap.Position = mapPositionItem(positions.List[0])
	}
	snap.Position.Symbol = symbol
	return snap, nil
}

// NotionalToQty converts quote-currency notional into a base quantity,
// rounded down to the instrument's qty step and floored at its minimum.
func (c *Client) NotionalToQty(ctx context.Context, symbol string, notional decimal.Decimal) (decimal.Decimal, error) {
	query := url.Values{"category": {category}, "symbol": {symbol}}

	raw, err := c.get(ctx, "/v5/market/tickers", query)
	if err != nil {
		return decimal.Decimal{}, err
	}
	var tickers tickersResult
	if err := json.Unmarshal(raw, &tickers); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode tickers: %w", err)
	}
	if len(tickers.List) == 0 {
		return decimal.Decimal{}, fmt.Errorf("no ticker for %s", symbol)
	}
	price, err := decimal.NewFromString(tickers.List[0].LastPrice)
	if err != nil || price.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("bad last price for %s: %q", symbol, tickers.List[0].LastPrice)
	}

	raw, err = c.get(ctx, "/v5/market/instruments-info", query)
	if err != nil {
		return decimal.Decimal{}, err
	}
	var instruments instrumentsResult
	if err := json.Unmarshal(raw, &instruments); err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode instruments: %w", err)
	}
	if len(instruments.List) == 0 {
		return decimal.Decimal{}, fmt.Errorf("no instrument info for %s", symbol)
	}
	lot := instruments.List[0].LotSizeFilter
	step, err := decimal.NewFromString(lot.QtyStep)
	if err != nil || step.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("bad qty step for %s: %q", symbol, lot.QtyStep)
	}
	minQty, err := decimal.NewFromString(lot.MinOrderQty)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad min qty for %s: %q", symbol, lot.MinOrderQty)
	}

	qty := notional.Div(price).Div(step).Floor().Mul(step)
	if qty.LessThan(minQty) {
		qty = minQty
	}
	return qty, nil
}

// SetTradingStop sets stop-loss / take-profit / trailing parameters on the
// current position.
func (c *Client) SetTradingStop(ctx context.Context, req exchange.TradingStopRequest) error {
	body := tradingStopRequest{
		Category:    category,
		Symbol:      req.Symbol,
		StopLoss:    req.StopLoss.String(),
		PositionIdx: 0,
	}
	if req.TakeProfit != nil {
		body.TakeProfit = req.TakeProfit.String()
	}
	if req.TrailingStop != nil {
		body.TrailingStop = req.TrailingStop.String()
	}
	if req.TrailingActivePrice != nil {
		body.ActivePrice = req.TrailingActivePrice.String()
	}
	_, err := c.post(ctx, "/v5/position/trading-stop", body)
	return err
}

// SetLeverage applies the leverage multiplier to both sides of the symbol.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	lv := strconv.Itoa(leverage)
	_, err := c.post(ctx, "/v5/position/set-leverage", setLeverageRequest{
		Category:     category,
		Symbol:       symbol,
		BuyLeverage:  lv,
		SellLeverage: lv,
	})
	return err
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, path, "", payload)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query.Encode(), nil)
}

func (c *Client) do(ctx context.Context, method, path, query string, body []byte) (json.RawMessage, error) {
	if !c.breaker.Allow() {
		return nil, fmt.Errorf("bybit %s: circuit breaker open", path)
	}
	c.limiter.Wait()

	fullURL := c.baseURL + path
	if query != "" {
		fullURL += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	signPayload := query
	if method == http.MethodPost {
		signPayload = string(body)
	}
	for k, v := range c.signer.Headers(time.Now().UnixMilli(), c.recvWindow, signPayload) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("bybit %s: %w", path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("bybit %s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("bybit %s: http %d: %s", path, resp.StatusCode, data)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("bybit %s: decode envelope: %w", path, err)
	}
	if env.RetCode != 0 {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("bybit %s: retCode=%d msg=%s", path, env.RetCode, env.RetMsg)
	}
	c.breaker.RecordSuccess()
	c.log.Debug("venue call ok", slog.String("method", method), slog.String("path", path))
	return env.Result, nil
}

func mapOrderItem(o orderItem) exchange.VenueOrder {
	out := exchange.VenueOrder{
		OrderID:    o.OrderID,
		Symbol:     o.Symbol,
		Side:       domain.Side(o.Side),
		Status:     o.OrderStatus,
		ReduceOnly: o.ReduceOnly,
	}
	if p, err := decimal.NewFromString(o.Price); err == nil {
		out.Price = &p
	}
	if q, err := decimal.NewFromString(o.Qty); err == nil {
		out.Qty = &q
	}
	return out
}

func mapPositionItem(p positionItem) exchange.VenuePosition {
	out := exchange.VenuePosition{
		Symbol: p.Symbol,
		Side:   domain.Side(p.Side),
	}
	if size, err := decimal.NewFromString(p.Size); err == nil {
		out.Size = size
	}
	if entry, err := decimal.NewFromString(p.AvgPrice); err == nil && entry.Sign() != 0 {
		out.EntryPrice = &entry
	}
	if pnl, err := decimal.NewFromString(p.unrealizedPnl()); err == nil {
		out.UnrealizedPnL = &pnl
	}
	return out
}

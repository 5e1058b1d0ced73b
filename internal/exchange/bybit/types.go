package bybit

import "encoding/json"

// envelope is the common Bybit V5 response wrapper.
type envelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

type placeOrderResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

type openOrdersResult struct {
	List []orderItem `json:"list"`
}

type orderItem struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	Price       string `json:"price"`
	Qty         string `json:"qty"`
	OrderStatus string `json:"orderStatus"`
	ReduceOnly  bool   `json:"reduceOnly"`
}

type positionListResult struct {
	List []positionItem `json:"list"`
}

// positionItem tolerates both spellings of the unrealized PnL field; the
// venue has been observed emitting either.
type positionItem struct {
	Symbol         string `json:"symbol"`
	Side           string `json:"side"`
	Size           string `json:"size"`
	AvgPrice       string `json:"avgPrice"`
	UnrealisedPnlA string `json:"unrealisedPnl"`
	UnrealisedPnlB string `json:"unrealizedPnl"`
}

func (p positionItem) unrealizedPnl() string {
	if p.UnrealisedPnlA != "" {
		return p.UnrealisedPnlA
	}
	return p.UnrealisedPnlB
}

type tickersResult struct {
	List []tickerItem `json:"list"`
}

type tickerItem struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
}

type instrumentsResult struct {
	List []instrumentItem `json:"list"`
}

type instrumentItem struct {
	Symbol        string `json:"symbol"`
	LotSizeFilter struct {
		QtyStep     string `json:"qtyStep"`
		MinOrderQty string `json:"minOrderQty"`
	} `json:"lotSizeFilter"`
}

type placeOrderRequest struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Qty         string `json:"qty"`
	Price       string `json:"price,omitempty"`
	TimeInForce string `json:"timeInForce"`
	ReduceOnly  bool   `json:"reduceOnly"`
	PositionIdx int    `json:"positionIdx"`
	OrderLinkID string `json:"orderLinkId"`
}

type cancelOrderRequest struct {
	Category string `json:"category"`
	Symbol   string `json:"symbol"`
	OrderID  string `json:"orderId"`
}

type cancelAllRequest struct {
	Category string `json:"category"`
	Symbol   string `json:"symbol"`
}

type tradingStopRequest struct {
	Category     string `json:"category"`
	Symbol       string `json:"symbol"`
	StopLoss     string `json:"stopLoss"`
	TakeProfit   string `json:"takeProfit,omitempty"`
	TrailingStop string `json:"trailingStop,omitempty"`
	ActivePrice  string `json:"activePrice,omitempty"`
	PositionIdx  int    `json:"positionIdx"`
}

type setLeverageRequest struct {
	Category     string `json:"category"`
	Symbol       string `json:"symbol"`
	BuyLeverage  string `json:"buyLeverage"`
	SellLeverage string `json:"sellLeverage"`
}

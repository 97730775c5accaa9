package api

import (
	"time"

	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/sim"
)

// ==============================
// Requests
// ==============================

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OrderRequest struct {
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"` // BUY or SELL
	Type         string  `json:"type"` // MARKET, LIMIT, STOP (or SL)
	Quantity     int     `json:"quantity"`
	TriggerPrice float64 `json:"trigger_price,omitempty"`
}

type PriceRequest struct {
	Price float64 `json:"price"`
}

// ==============================
// Responses
// ==============================

type LoginResponse struct {
	Token    string  `json:"token"`
	Username string  `json:"username"`
	Role     string  `json:"role"`
	Balance  float64 `json:"balance"`
}

type MarketInfo struct {
	Symbol  string  `json:"symbol"`
	LotSize int     `json:"lot_size"`
	Price   float64 `json:"price"`
}

type HistoryResponse struct {
	Symbol  string          `json:"symbol"`
	Candles []market.Candle `json:"candles"`
	SMA     *float64        `json:"sma,omitempty"`
	EMA     *float64        `json:"ema,omitempty"`
}

// PriceResponse reports a calibration. Applied is false when the change
// was within the calibration threshold and the write was ignored.
type PriceResponse struct {
	Symbol  string  `json:"symbol"`
	Price   float64 `json:"price"`
	Applied bool    `json:"applied"`
}

type AccountInfo struct {
	Username      string  `json:"username"`
	Balance       float64 `json:"balance"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	Equity        float64 `json:"equity"`
}

// OrderResponse carries the fill of a market order or the pending order
// created for LIMIT and STOP.
type OrderResponse struct {
	Status string     `json:"status"` // "filled" or "pending"
	Order  *sim.Order `json:"order,omitempty"`
	Fill   *sim.Fill  `json:"fill,omitempty"`
}

type CancelResponse struct {
	Cancelled int `json:"cancelled"`
}

type TradeInfo struct {
	TradeID  string    `json:"trade_id"`
	OrderID  string    `json:"order_id"`
	Time     time.Time `json:"time"`
	Symbol   string    `json:"symbol"`
	Side     string    `json:"side"`
	Type     string    `json:"type"`
	Quantity int       `json:"quantity"`
	Price    float64   `json:"price"`
	Fee      float64   `json:"fee"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket
// ==============================

// WSMessage is the envelope of every pushed message.
type WSMessage struct {
	Type string `json:"type"` // "tick" or "fill"
	Data any    `json:"data"`
}

type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

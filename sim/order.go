package sim

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/papertrade/market"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ParseSide accepts BUY or SELL in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", &ValidationError{Message: fmt.Sprintf("side must be BUY or SELL, got %q", s)}
}

type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
	Stop   OrderType = "STOP"
)

// ParseOrderType accepts MARKET, LIMIT, STOP and SL (an alias of STOP).
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MARKET":
		return Market, nil
	case "LIMIT":
		return Limit, nil
	case "STOP", "SL":
		return Stop, nil
	}
	return "", &ValidationError{Message: fmt.Sprintf("order type must be MARKET, LIMIT or STOP, got %q", s)}
}

// OrderRequest is what a caller submits.
type OrderRequest struct {
	Owner        string
	Symbol       string
	Side         Side
	Type         OrderType
	Quantity     int     // lots
	TriggerPrice float64 // ignored for MARKET
}

func (r OrderRequest) validate(reg *market.Registry) error {
	if r.Owner == "" {
		return &ValidationError{Message: "owner is required"}
	}
	if _, err := reg.Lookup(r.Symbol); err != nil {
		return err
	}
	if r.Side != Buy && r.Side != Sell {
		return &ValidationError{Message: fmt.Sprintf("invalid side %q", r.Side)}
	}
	if r.Quantity < 1 {
		return &ValidationError{Message: "quantity must be at least 1 lot"}
	}
	switch r.Type {
	case Market:
	case Limit, Stop:
		if !market.ValidPrice(r.TriggerPrice) {
			return &ValidationError{Message: "trigger price must be positive"}
		}
	default:
		return &ValidationError{Message: fmt.Sprintf("invalid order type %q", r.Type)}
	}
	return nil
}

// Order is a resting LIMIT or STOP order. It stays pending until it is
// either filled or cancelled; there are no partial fills and no expiry.
type Order struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	Symbol       string    `json:"symbol"`
	Side         Side      `json:"side"`
	Type         OrderType `json:"type"`
	TriggerPrice float64   `json:"trigger_price"`
	Quantity     int       `json:"quantity"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewOrder validates req and builds a pending order from it.
func NewOrder(reg *market.Registry, id string, req OrderRequest, now time.Time) (*Order, error) {
	if err := req.validate(reg); err != nil {
		return nil, err
	}
	if req.Type == Market {
		return nil, &ValidationError{Message: "market orders do not rest in the book"}
	}
	return &Order{
		ID:           id,
		Owner:        req.Owner,
		Symbol:       req.Symbol,
		Side:         req.Side,
		Type:         req.Type,
		TriggerPrice: req.TriggerPrice,
		Quantity:     req.Quantity,
		CreatedAt:    now,
	}, nil
}

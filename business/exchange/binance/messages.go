package binance

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Binance API error codes worth distinguishing.
const (
	apiCodeUnknownSymbol       = -1121
	apiCodeInsufficientBalance = -2010
)

// TickerPrice is the REST response for /api/v3/ticker/price.
type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// ParsePrice parses the price field.
func (t *TickerPrice) ParsePrice() (decimal.Decimal, error) {
	return decimal.NewFromString(t.Price)
}

// AccountBalance is one entry of the account balances list.
type AccountBalance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// Account is the REST response for /api/v3/account.
type Account struct {
	CanTrade bool             `json:"canTrade"`
	Balances []AccountBalance `json:"balances"`
}

// FreeOf returns the free balance of an asset, zero if absent.
func (a *Account) FreeOf(asset string) (decimal.Decimal, error) {
	for _, b := range a.Balances {
		if b.Asset == asset {
			return decimal.NewFromString(b.Free)
		}
	}
	return decimal.Zero, nil
}

// OrderFill is a single fill of an executed order.
type OrderFill struct {
	Price           string `json:"price"`
	Quantity        string `json:"qty"`
	Commission      string `json:"commission"`
	CommissionAsset string `json:"commissionAsset"`
}

// Order is the REST response for POST /api/v3/order.
type Order struct {
	Symbol              string      `json:"symbol"`
	OrderID             int64       `json:"orderId"`
	Status              string      `json:"status"`
	ExecutedQty         string      `json:"executedQty"`
	CummulativeQuoteQty string      `json:"cummulativeQuoteQty"`
	Fills               []OrderFill `json:"fills"`
}

// IsFilled reports whether the order fully executed.
func (o *Order) IsFilled() bool {
	return o.Status == "FILLED"
}

// ParseExecutedQty parses the executed base asset quantity.
func (o *Order) ParseExecutedQty() (decimal.Decimal, error) {
	if o.ExecutedQty == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(o.ExecutedQty)
}

// ParseQuoteQty parses the cumulative quote asset quantity.
func (o *Order) ParseQuoteQty() (decimal.Decimal, error) {
	if o.CummulativeQuoteQty == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(o.CummulativeQuoteQty)
}

// StreamEvent wraps a combined-streams WebSocket message.
type StreamEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// WSRequest is a WebSocket API request frame.
type WSRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
	ID     int64    `json:"id"`
}

// WSResponse is a WebSocket API response frame.
type WSResponse struct {
	Result json.RawMessage `json:"result"`
	ID     int64           `json:"id"`
}

// BookTickerEvent is a bookTicker stream payload: best bid/ask per symbol.
type BookTickerEvent struct {
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

// MidPrice returns the bid/ask midpoint.
func (e *BookTickerEvent) MidPrice() (decimal.Decimal, error) {
	bid, err := decimal.NewFromString(e.BidPrice)
	if err != nil {
		return decimal.Zero, err
	}
	ask, err := decimal.NewFromString(e.AskPrice)
	if err != nil {
		return decimal.Zero, err
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), nil
}

// BookTickerStream returns the stream name for a symbol.
func BookTickerStream(symbol string) string {
	return strings.ToLower(symbol) + "@bookTicker"
}

// APIError is an error response body from the Binance REST API.
type APIError struct {
	Code       int    `json:"code"`
	Message    string `json:"msg"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// apiErrorHandler parses Binance error responses into *APIError.
func apiErrorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		apiErr.StatusCode = statusCode
		return &apiErr
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
}

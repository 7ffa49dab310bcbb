package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/s9927637/arbitrage-trader/business/engine/app"
	"github.com/s9927637/arbitrage-trader/internal/apperror"
	"github.com/s9927637/arbitrage-trader/internal/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

func newTestRESTClient(t *testing.T, baseURL string) *RESTClient {
	t.Helper()
	cfg := DefaultRESTConfig()
	cfg.BaseURL = baseURL
	cfg.APIKey = "test-key"
	cfg.APISecret = "test-secret"

	client, err := NewRESTClient(cfg, &mockLogger{})
	if err != nil {
		t.Fatalf("failed to create REST client: %v", err)
	}
	return client
}

func TestRESTClient_TickerPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			t.Errorf("expected path /api/v3/ticker/price, got %s", r.URL.Path)
		}
		if symbol := r.URL.Query().Get("symbol"); symbol != "BNBUSDT" {
			t.Errorf("expected symbol BNBUSDT, got %s", symbol)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TickerPrice{Symbol: "BNBUSDT", Price: "600.10"})
	}))
	defer server.Close()

	client := newTestRESTClient(t, server.URL)

	price, err := client.TickerPrice(context.Background(), "BNBUSDT")
	if err != nil {
		t.Fatalf("TickerPrice failed: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("600.10")) {
		t.Errorf("expected price 600.10, got %s", price)
	}
}

func TestRESTClient_TickerPrice_UnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"code": -1121, "msg": "Invalid symbol."})
	}))
	defer server.Close()

	client := newTestRESTClient(t, server.URL)

	_, err := client.TickerPrice(context.Background(), "NOPE")
	if err == nil {
		t.Fatal("expected error for invalid symbol, got nil")
	}
	if !apperror.IsCode(err, apperror.CodeUnknownSymbol) {
		t.Errorf("expected UNKNOWN_SYMBOL, got %v", apperror.GetCode(err))
	}
}

func TestRESTClient_Account_Signed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/account" {
			t.Errorf("expected path /api/v3/account, got %s", r.URL.Path)
		}
		if key := r.Header.Get("X-MBX-APIKEY"); key != "test-key" {
			t.Errorf("expected api key header, got %q", key)
		}
		q := r.URL.Query()
		if q.Get("timestamp") == "" {
			t.Error("expected timestamp param")
		}
		if q.Get("signature") == "" {
			t.Error("expected signature param")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Account{
			CanTrade: true,
			Balances: []AccountBalance{
				{Asset: "USDT", Free: "1234.56", Locked: "0"},
				{Asset: "BNB", Free: "0.04", Locked: "0"},
			},
		})
	}))
	defer server.Close()

	client := newTestRESTClient(t, server.URL)

	account, err := client.Account(context.Background())
	if err != nil {
		t.Fatalf("Account failed: %v", err)
	}

	free, err := account.FreeOf("USDT")
	if err != nil {
		t.Fatalf("FreeOf failed: %v", err)
	}
	if !free.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("expected USDT free 1234.56, got %s", free)
	}

	missing, err := account.FreeOf("ETH")
	if err != nil {
		t.Fatalf("FreeOf failed: %v", err)
	}
	if !missing.IsZero() {
		t.Errorf("expected zero balance for missing asset, got %s", missing)
	}
}

func TestRESTClient_CreateMarketOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/v3/order" {
			t.Errorf("expected path /api/v3/order, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("type") != "MARKET" {
			t.Errorf("expected type MARKET, got %s", q.Get("type"))
		}
		if q.Get("side") != "SELL" {
			t.Errorf("expected side SELL, got %s", q.Get("side"))
		}
		if q.Get("quantity") != "2" {
			t.Errorf("expected quantity 2, got %s", q.Get("quantity"))
		}
		if q.Get("signature") == "" {
			t.Error("expected signature param")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Order{
			Symbol:              "BNBUSDT",
			OrderID:             42,
			Status:              "FILLED",
			ExecutedQty:         "2.00000000",
			CummulativeQuoteQty: "1200.20000000",
		})
	}))
	defer server.Close()

	client := newTestRESTClient(t, server.URL)

	order, err := client.CreateMarketOrder(context.Background(), "BNBUSDT", "SELL", decimal.NewFromInt(2))
	if err != nil {
		t.Fatalf("CreateMarketOrder failed: %v", err)
	}
	if !order.IsFilled() {
		t.Errorf("expected FILLED, got %s", order.Status)
	}
	quote, err := order.ParseQuoteQty()
	if err != nil {
		t.Fatalf("ParseQuoteQty failed: %v", err)
	}
	if !quote.Equal(decimal.RequireFromString("1200.2")) {
		t.Errorf("expected quote qty 1200.2, got %s", quote)
	}
}

func TestRESTClient_CreateMarketOrder_InsufficientFunds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"code": -2010,
			"msg":  "Account has insufficient balance for requested action.",
		})
	}))
	defer server.Close()

	client := newTestRESTClient(t, server.URL)

	_, err := client.CreateMarketOrder(context.Background(), "BNBUSDT", "BUY", decimal.NewFromInt(100000))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !apperror.IsCode(err, apperror.CodeInsufficientFunds) {
		t.Errorf("expected INSUFFICIENT_FUNDS, got %v", apperror.GetCode(err))
	}
}

func newTestProvider(t *testing.T, rest *RESTClient, stream *PriceStream) *Provider {
	t.Helper()
	return &Provider{
		rest:   rest,
		stream: stream,
		logger: &mockLogger{},
		tracer: otel.Tracer(tracerName),
	}
}

func TestProvider_LatestPrice_PrefersFreshStream(t *testing.T) {
	restCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		restCalls++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TickerPrice{Symbol: "BNBUSDT", Price: "601"})
	}))
	defer server.Close()

	stream, err := NewPriceStream(StreamConfig{
		BaseURL:      BaseWSURL,
		Symbols:      []string{"BNBUSDT"},
		StaleTimeout: time.Minute,
	}, &mockLogger{})
	if err != nil {
		t.Fatalf("failed to create stream: %v", err)
	}
	stream.mu.Lock()
	stream.prices["BNBUSDT"] = pricePoint{price: decimal.RequireFromString("600.5"), at: time.Now()}
	stream.mu.Unlock()

	provider := newTestProvider(t, newTestRESTClient(t, server.URL), stream)

	price, err := provider.LatestPrice(context.Background(), "BNBUSDT")
	if err != nil {
		t.Fatalf("LatestPrice failed: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("600.5")) {
		t.Errorf("expected streamed price 600.5, got %s", price)
	}
	if restCalls != 0 {
		t.Errorf("expected no REST calls with fresh stream price, got %d", restCalls)
	}
}

func TestProvider_LatestPrice_FallsBackWhenStale(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TickerPrice{Symbol: "BNBUSDT", Price: "601"})
	}))
	defer server.Close()

	stream, err := NewPriceStream(StreamConfig{
		BaseURL:      BaseWSURL,
		Symbols:      []string{"BNBUSDT"},
		StaleTimeout: time.Second,
	}, &mockLogger{})
	if err != nil {
		t.Fatalf("failed to create stream: %v", err)
	}
	stream.mu.Lock()
	stream.prices["BNBUSDT"] = pricePoint{
		price: decimal.RequireFromString("600.5"),
		at:    time.Now().Add(-time.Hour),
	}
	stream.mu.Unlock()

	provider := newTestProvider(t, newTestRESTClient(t, server.URL), stream)

	price, err := provider.LatestPrice(context.Background(), "BNBUSDT")
	if err != nil {
		t.Fatalf("LatestPrice failed: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("601")) {
		t.Errorf("expected REST price 601, got %s", price)
	}
}

func TestProvider_LatestPrice_UnknownSymbolIsPriceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"code": -1121, "msg": "Invalid symbol."})
	}))
	defer server.Close()

	provider := newTestProvider(t, newTestRESTClient(t, server.URL), nil)

	_, err := provider.LatestPrice(context.Background(), "NOPE")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !apperror.IsCode(err, apperror.CodePriceUnavailable) {
		t.Errorf("expected PRICE_UNAVAILABLE, got %v", apperror.GetCode(err))
	}
}

func TestProvider_PlaceMarketOrder_BuyReceivesBase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("quoteOrderQty") != "100" {
			t.Errorf("expected quoteOrderQty 100, got %s", q.Get("quoteOrderQty"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Order{
			Symbol:              "BNBUSDT",
			OrderID:             7,
			Status:              "FILLED",
			ExecutedQty:         "0.16600000",
			CummulativeQuoteQty: "100.00000000",
		})
	}))
	defer server.Close()

	provider := newTestProvider(t, newTestRESTClient(t, server.URL), nil)

	result, err := provider.PlaceMarketOrder(context.Background(), "BNBUSDT", app.SideBuy, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("PlaceMarketOrder failed: %v", err)
	}
	if !result.Filled {
		t.Error("expected filled order")
	}
	if !result.FilledAmount.Equal(decimal.RequireFromString("0.166")) {
		t.Errorf("expected filled amount 0.166, got %s", result.FilledAmount)
	}
}

func TestProvider_PlaceMarketOrder_RejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Order{Symbol: "BNBUSDT", OrderID: 8, Status: "EXPIRED"})
	}))
	defer server.Close()

	provider := newTestProvider(t, newTestRESTClient(t, server.URL), nil)

	_, err := provider.PlaceMarketOrder(context.Background(), "BNBUSDT", app.SideSell, decimal.NewFromInt(1))
	if err == nil {
		t.Fatal("expected error for expired order, got nil")
	}
	if !apperror.IsCode(err, apperror.CodeOrderRejected) {
		t.Errorf("expected ORDER_REJECTED, got %v", apperror.GetCode(err))
	}
}

func TestPriceStream_HandleMessage(t *testing.T) {
	stream, err := NewPriceStream(StreamConfig{
		BaseURL:      BaseWSURL,
		Symbols:      []string{"BNBUSDT"},
		StaleTimeout: time.Minute,
	}, &mockLogger{})
	if err != nil {
		t.Fatalf("failed to create stream: %v", err)
	}

	payload := []byte(`{"stream":"bnbusdt@bookTicker","data":{"s":"BNBUSDT","b":"600.00","B":"10","a":"600.20","A":"12"}}`)
	stream.handleMessage(context.Background(), payload)

	price, ok := stream.Price("BNBUSDT")
	if !ok {
		t.Fatal("expected fresh price after book ticker")
	}
	if !price.Equal(decimal.RequireFromString("600.10")) {
		t.Errorf("expected mid 600.10, got %s", price)
	}
}

func TestPriceStream_StalePriceNotServed(t *testing.T) {
	stream, err := NewPriceStream(StreamConfig{
		BaseURL:      BaseWSURL,
		Symbols:      []string{"BNBUSDT"},
		StaleTimeout: time.Second,
	}, &mockLogger{})
	if err != nil {
		t.Fatalf("failed to create stream: %v", err)
	}

	base := time.Now()
	stream.now = func() time.Time { return base }

	payload := []byte(`{"stream":"bnbusdt@bookTicker","data":{"s":"BNBUSDT","b":"600.00","B":"10","a":"600.20","A":"12"}}`)
	stream.handleMessage(context.Background(), payload)

	if _, ok := stream.Price("BNBUSDT"); !ok {
		t.Fatal("expected fresh price immediately after update")
	}

	stream.now = func() time.Time { return base.Add(2 * time.Second) }
	if _, ok := stream.Price("BNBUSDT"); ok {
		t.Error("expected stale price to be rejected")
	}
}

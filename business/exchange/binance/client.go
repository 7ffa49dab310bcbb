// Package binance implements the exchange capability against the Binance
// spot REST and WebSocket APIs.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/s9927637/arbitrage-trader/internal/apperror"
	"github.com/s9927637/arbitrage-trader/internal/circuitbreaker"
	"github.com/s9927637/arbitrage-trader/internal/httpclient"
	"github.com/s9927637/arbitrage-trader/internal/logger"
	"github.com/s9927637/arbitrage-trader/internal/ratelimit"
	"github.com/shopspring/decimal"
)

const (
	tracerName = "binance"

	// Binance endpoints
	BaseAPIURL    = "https://api.binance.com"
	TestnetAPIURL = "https://testnet.binance.vision"

	BaseWSURL    = "wss://stream.binance.com:9443"
	TestnetWSURL = "wss://stream.testnet.binance.vision"

	tickerPriceEndpoint = "/api/v3/ticker/price"
	accountEndpoint     = "/api/v3/account"
	orderEndpoint       = "/api/v3/order"

	httpTimeout = 10 * time.Second

	// Spot API weight budget is 6000/min; stay well under it.
	defaultRequestsPerMinute = 1200
)

// RESTConfig holds configuration for the Binance REST client.
type RESTConfig struct {
	BaseURL           string
	APIKey            string
	APISecret         string
	Timeout           time.Duration
	RequestsPerMinute int
	RecvWindowMs      int
}

// DefaultRESTConfig returns sensible defaults.
func DefaultRESTConfig() RESTConfig {
	return RESTConfig{
		BaseURL:           BaseAPIURL,
		Timeout:           httpTimeout,
		RequestsPerMinute: defaultRequestsPerMinute,
		RecvWindowMs:      5000,
	}
}

// RESTClient is a Binance spot REST client. Signed endpoints use HMAC
// SHA256 over the query string per the Binance security scheme.
type RESTClient struct {
	config  RESTConfig
	client  httpclient.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.Breaker[*httpclient.Response]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewRESTClient creates a Binance REST client.
func NewRESTClient(cfg RESTConfig, log logger.LoggerInterface) (*RESTClient, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseAPIURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = httpTimeout
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = defaultRequestsPerMinute
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	return &RESTClient{
		config:  cfg,
		client:  client,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		breaker: circuitbreaker.New[*httpclient.Response](circuitbreaker.DefaultConfig("binance-rest")),
		logger:  log,
		tracer:  tracer,
	}, nil
}

// TickerPrice fetches the latest traded price for a symbol.
func (c *RESTClient) TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	ctx, span := c.tracer.Start(ctx, "binance.ticker_price",
		trace.WithAttributes(attribute.String("symbol", symbol)),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}

	var result TickerPrice
	_, err := c.breaker.Execute(func() (*httpclient.Response, error) {
		return c.client.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "ticker_price")),
			httpclient.WithResponseErrorHandler(apiErrorHandler),
		).
			SetQueryParam("symbol", symbol).
			SetResult(&result).
			Get(ctx, tickerPriceEndpoint)
	})
	if err != nil {
		span.RecordError(err)
		return decimal.Zero, classifyError(err, "ticker price for "+symbol)
	}

	price, err := result.ParsePrice()
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithCause(err),
			apperror.WithContext("malformed price for "+symbol))
	}

	span.SetAttributes(attribute.String("price", price.String()))
	return price, nil
}

// Account fetches the account information including balances. Signed.
func (c *RESTClient) Account(ctx context.Context) (*Account, error) {
	ctx, span := c.tracer.Start(ctx, "binance.account")
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result Account
	_, err := c.breaker.Execute(func() (*httpclient.Response, error) {
		return c.client.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("endpoint", "account")),
			httpclient.WithResponseErrorHandler(apiErrorHandler),
		).
			SetHeader("X-MBX-APIKEY", c.config.APIKey).
			SetResult(&result).
			Get(ctx, c.signedPath(accountEndpoint, url.Values{}))
	})
	if err != nil {
		span.RecordError(err)
		return nil, classifyError(err, "account info")
	}

	return &result, nil
}

// CreateMarketOrder submits a market order. For BUY orders the amount is
// the quote quantity to spend; for SELL orders it is the base quantity to
// sell. Signed.
func (c *RESTClient) CreateMarketOrder(ctx context.Context, symbol, side string, amount decimal.Decimal) (*Order, error) {
	ctx, span := c.tracer.Start(ctx, "binance.create_order",
		trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("side", side),
			attribute.String("amount", amount.String()),
		),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	if side == "BUY" {
		params.Set("quoteOrderQty", amount.String())
	} else {
		params.Set("quantity", amount.String())
	}

	var result Order
	_, err := c.breaker.Execute(func() (*httpclient.Response, error) {
		return c.client.NewRequestWithOptions(
			httpclient.WithLabels(
				httpclient.NewLabel("endpoint", "order"),
				httpclient.NewLabel("symbol", symbol),
			),
			httpclient.WithResponseErrorHandler(apiErrorHandler),
		).
			SetHeader("X-MBX-APIKEY", c.config.APIKey).
			SetResult(&result).
			Post(ctx, c.signedPath(orderEndpoint, params))
	})
	if err != nil {
		span.RecordError(err)
		return nil, classifyError(err, fmt.Sprintf("%s %s order", side, symbol))
	}

	span.SetAttributes(
		attribute.Int64("order_id", result.OrderID),
		attribute.String("status", result.Status),
	)

	c.logger.Info(ctx, "order placed",
		"symbol", symbol,
		"side", side,
		"order_id", result.OrderID,
		"status", result.Status,
	)

	return &result, nil
}

// signedPath appends timestamp, recvWindow and the HMAC signature to the
// params and returns the endpoint with the final query already encoded.
// The signature must be computed over the exact query string sent, with
// the signature parameter last.
func (c *RESTClient) signedPath(endpoint string, params url.Values) string {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	if c.config.RecvWindowMs > 0 {
		params.Set("recvWindow", strconv.Itoa(c.config.RecvWindowMs))
	}

	query := params.Encode()
	mac := hmac.New(sha256.New, []byte(c.config.APISecret))
	mac.Write([]byte(query))
	signature := hex.EncodeToString(mac.Sum(nil))

	return endpoint + "?" + query + "&signature=" + signature
}

// classifyError maps transport and API errors onto the application error
// taxonomy.
func classifyError(err error, context string) error {
	if apperror.IsAppError(err) {
		return err
	}

	if apiErr, ok := err.(*APIError); ok {
		switch {
		case apiErr.Code == apiCodeUnknownSymbol:
			return apperror.New(apperror.CodeUnknownSymbol,
				apperror.WithCause(apiErr),
				apperror.WithContext(context))
		case apiErr.Code == apiCodeInsufficientBalance:
			return apperror.New(apperror.CodeInsufficientFunds,
				apperror.WithCause(apiErr),
				apperror.WithContext(context))
		case apiErr.StatusCode == 429 || apiErr.StatusCode == 418:
			return apperror.New(apperror.CodeExchangeRateLimited,
				apperror.WithCause(apiErr),
				apperror.WithContext(context))
		default:
			return apperror.New(apperror.CodeExchangeAPIError,
				apperror.WithCause(apiErr),
				apperror.WithContext(context))
		}
	}

	return apperror.New(apperror.CodeNetworkError,
		apperror.WithCause(err),
		apperror.WithContext(context))
}

package binance

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/s9927637/arbitrage-trader/business/engine/app"
	"github.com/s9927637/arbitrage-trader/internal/apperror"
	"github.com/s9927637/arbitrage-trader/internal/logger"
	"github.com/shopspring/decimal"
)

// Ensure Provider implements the engine's exchange capability.
var _ app.ExchangeClient = (*Provider)(nil)

// ProviderConfig holds configuration for the Binance provider.
type ProviderConfig struct {
	RESTConfig   RESTConfig
	WebSocketURL string        // empty disables the stream
	Symbols      []string      // symbols to keep warm prices for
	StaleTimeout time.Duration // how long a streamed price stays fresh
}

// Provider implements app.ExchangeClient for Binance. Prices come from
// the WebSocket bookTicker cache when fresh, falling back to the REST
// ticker endpoint; balances and orders always go over REST.
type Provider struct {
	rest   *RESTClient
	stream *PriceStream
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewProvider creates a Binance provider. The price stream is optional;
// without it every price lookup goes to the REST API.
func NewProvider(cfg ProviderConfig, log logger.LoggerInterface) (*Provider, error) {
	rest, err := NewRESTClient(cfg.RESTConfig, log)
	if err != nil {
		return nil, err
	}

	var stream *PriceStream
	if cfg.WebSocketURL != "" && len(cfg.Symbols) > 0 {
		streamCfg := StreamConfig{
			BaseURL:      cfg.WebSocketURL,
			Symbols:      cfg.Symbols,
			StaleTimeout: cfg.StaleTimeout,
		}
		stream, err = NewPriceStream(streamCfg, log)
		if err != nil {
			return nil, err
		}
	}

	return &Provider{
		rest:   rest,
		stream: stream,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Start connects the price stream, when configured.
func (p *Provider) Start(ctx context.Context) error {
	if p.stream == nil {
		return nil
	}
	return p.stream.Start(ctx)
}

// Close releases the stream connection.
func (p *Provider) Close() error {
	if p.stream == nil {
		return nil
	}
	return p.stream.Close()
}

// Connected reports whether the price stream is up. Always false without
// a stream.
func (p *Provider) Connected() bool {
	return p.stream != nil && p.stream.Connected()
}

// FreeBalance returns the free balance of an asset.
func (p *Provider) FreeBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	account, err := p.rest.Account(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := account.FreeOf(asset)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithCause(err),
			apperror.WithContext("malformed balance for "+asset))
	}
	return balance, nil
}

// LatestPrice returns the most recent price for a symbol, preferring the
// warm stream cache over a REST round trip.
func (p *Provider) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	ctx, span := p.tracer.Start(ctx, "binance.latest_price",
		trace.WithAttributes(attribute.String("symbol", symbol)),
	)
	defer span.End()

	if p.stream != nil {
		if price, ok := p.stream.Price(symbol); ok {
			span.SetAttributes(attribute.String("source", "websocket"))
			return price, nil
		}
		p.logger.Debug(ctx, "no fresh streamed price, using REST", "symbol", symbol)
	}

	price, err := p.rest.TickerPrice(ctx, symbol)
	if err != nil {
		if apperror.IsCode(err, apperror.CodeUnknownSymbol) {
			return decimal.Zero, apperror.New(apperror.CodePriceUnavailable,
				apperror.WithCause(err),
				apperror.WithContext("unknown symbol "+symbol))
		}
		return decimal.Zero, err
	}

	span.SetAttributes(attribute.String("source", "rest"))
	return price, nil
}

// PlaceMarketOrder submits a market order and reports the filled amount
// of the destination asset.
func (p *Provider) PlaceMarketOrder(ctx context.Context, symbol string, side app.OrderSide, amount decimal.Decimal) (app.OrderResult, error) {
	order, err := p.rest.CreateMarketOrder(ctx, symbol, string(side), amount)
	if err != nil {
		return app.OrderResult{}, err
	}

	if order.Status != "FILLED" && order.Status != "PARTIALLY_FILLED" {
		return app.OrderResult{}, apperror.New(apperror.CodeOrderRejected,
			apperror.WithContext("order "+order.Status+" for "+symbol))
	}

	// A buy receives the base asset, a sell receives the quote asset.
	var filled decimal.Decimal
	if side == app.SideBuy {
		filled, err = order.ParseExecutedQty()
	} else {
		filled, err = order.ParseQuoteQty()
	}
	if err != nil {
		return app.OrderResult{}, apperror.New(apperror.CodeExchangeAPIError,
			apperror.WithCause(err),
			apperror.WithContext("malformed fill quantity for "+symbol))
	}

	return app.OrderResult{
		Symbol:       symbol,
		Side:         side,
		OrderID:      order.OrderID,
		Filled:       order.IsFilled(),
		FilledAmount: filled,
	}, nil
}

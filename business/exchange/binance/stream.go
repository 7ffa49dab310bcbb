package binance

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/s9927637/arbitrage-trader/internal/apperror"
	"github.com/s9927637/arbitrage-trader/internal/logger"
	"github.com/s9927637/arbitrage-trader/internal/wsconn"
	"github.com/shopspring/decimal"
)

// StreamConfig holds configuration for the price stream.
type StreamConfig struct {
	BaseURL      string
	Symbols      []string
	StaleTimeout time.Duration
}

// DefaultStreamConfig returns sensible defaults.
func DefaultStreamConfig(symbols []string) StreamConfig {
	return StreamConfig{
		BaseURL:      BaseWSURL,
		Symbols:      symbols,
		StaleTimeout: 5 * time.Second,
	}
}

type pricePoint struct {
	price decimal.Decimal
	at    time.Time
}

// PriceStream keeps a warm cache of mid prices from the bookTicker
// streams of the configured symbols.
type PriceStream struct {
	config StreamConfig
	conn   *wsconn.Client
	logger logger.LoggerInterface

	prices map[string]pricePoint
	mu     sync.RWMutex

	now func() time.Time
}

// NewPriceStream creates a price stream for the given symbols.
func NewPriceStream(cfg StreamConfig, log logger.LoggerInterface) (*PriceStream, error) {
	if len(cfg.Symbols) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("no symbols configured for price stream"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseWSURL
	}
	if cfg.StaleTimeout == 0 {
		cfg.StaleTimeout = 5 * time.Second
	}

	streamURL, err := buildStreamURL(cfg.BaseURL, cfg.Symbols)
	if err != nil {
		return nil, err
	}

	return &PriceStream{
		config: cfg,
		conn:   wsconn.New(wsconn.DefaultConfig(streamURL)),
		logger: log,
		prices: make(map[string]pricePoint, len(cfg.Symbols)),
		now:    time.Now,
	}, nil
}

// buildStreamURL constructs the combined streams URL, which subscribes
// on connect without an explicit SUBSCRIBE frame.
func buildStreamURL(base string, symbols []string) (string, error) {
	streams := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		streams = append(streams, BookTickerStream(sym))
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("invalid websocket base url "+base))
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

// Start connects and consumes ticker events until the context is
// cancelled.
func (s *PriceStream) Start(ctx context.Context) error {
	if err := s.conn.Connect(ctx); err != nil {
		return err
	}

	go s.consume(ctx)

	s.logger.Info(ctx, "price stream started", "symbols", s.config.Symbols)
	return nil
}

func (s *PriceStream) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-s.conn.Messages():
			if !ok {
				return
			}
			s.handleMessage(ctx, data)
		}
	}
}

func (s *PriceStream) handleMessage(ctx context.Context, data []byte) {
	var event StreamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Debug(ctx, "unparseable stream message", "error", err.Error())
		return
	}
	if !strings.HasSuffix(event.Stream, "@bookTicker") {
		return
	}

	var ticker BookTickerEvent
	if err := json.Unmarshal(event.Data, &ticker); err != nil {
		s.logger.Debug(ctx, "unparseable book ticker", "error", err.Error())
		return
	}

	mid, err := ticker.MidPrice()
	if err != nil || !mid.IsPositive() {
		return
	}

	s.mu.Lock()
	s.prices[ticker.Symbol] = pricePoint{price: mid, at: s.now()}
	s.mu.Unlock()
}

// Price returns the cached mid price for a symbol. The second return
// value is false when the symbol has no fresh price.
func (s *PriceStream) Price(symbol string) (decimal.Decimal, bool) {
	s.mu.RLock()
	point, ok := s.prices[symbol]
	s.mu.RUnlock()

	if !ok || s.now().Sub(point.at) > s.config.StaleTimeout {
		return decimal.Zero, false
	}
	return point.price, true
}

// Connected reports whether the underlying WebSocket is connected.
func (s *PriceStream) Connected() bool {
	return s.conn.State() == wsconn.StateConnected
}

// Close shuts the stream down.
func (s *PriceStream) Close() error {
	return s.conn.Close()
}

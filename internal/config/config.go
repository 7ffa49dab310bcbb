// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Funding   FundingConfig   `mapstructure:"funding"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ExchangeConfig holds exchange API configuration.
type ExchangeConfig struct {
	APIURL            string        `mapstructure:"api_url"`
	WebSocketURL      string        `mapstructure:"websocket_url"`
	APIKey            string        `mapstructure:"api_key"`
	APISecret         string        `mapstructure:"api_secret"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	StaleTimeout      time.Duration `mapstructure:"stale_timeout"`
	UseStream         bool          `mapstructure:"use_stream"`
}

// TradingConfig holds the arbitrage engine settings.
type TradingConfig struct {
	Cycles          []string      `mapstructure:"cycles"`           // e.g. "USDT,BNB,ETH,USDT"
	FeeRate         float64       `mapstructure:"fee_rate"`         // proportional fee per leg
	MinProfit       float64       `mapstructure:"min_profit"`       // absolute amount in the base asset
	CapitalFraction float64       `mapstructure:"capital_fraction"` // share of free balance to trade
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	DryRun          bool          `mapstructure:"dry_run"`
	TUIMode         bool          `mapstructure:"-"` // set at runtime, not from config file
}

// FundingConfig holds the fee-asset pre-funding policy.
type FundingConfig struct {
	FeeAsset      string  `mapstructure:"fee_asset"`      // e.g. BNB
	QuoteAsset    string  `mapstructure:"quote_asset"`    // e.g. USDT
	ReserveMin    float64 `mapstructure:"reserve_min"`    // minimum fee-asset balance
	TopUpFraction float64 `mapstructure:"topup_fraction"` // share of free quote balance to convert
}

// LedgerConfig holds trade-record storage settings.
type LedgerConfig struct {
	Driver      string `mapstructure:"driver"` // "postgres" or "memory"
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health endpoint settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// FeeRateDecimal returns the per-leg fee rate as decimal.Decimal.
func (c *TradingConfig) FeeRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.FeeRate)
}

// MinProfitDecimal returns the minimum profit threshold as decimal.Decimal.
func (c *TradingConfig) MinProfitDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfit)
}

// CapitalFractionDecimal returns the capital fraction as decimal.Decimal.
func (c *TradingConfig) CapitalFractionDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.CapitalFraction)
}

// ReserveMinDecimal returns the fee-asset reserve floor as decimal.Decimal.
func (c *FundingConfig) ReserveMinDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.ReserveMin)
}

// TopUpFractionDecimal returns the top-up fraction as decimal.Decimal.
func (c *FundingConfig) TopUpFractionDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.TopUpFraction)
}

// PairSymbol returns the market symbol used to buy the fee asset
// (e.g. "BNBUSDT").
func (c *FundingConfig) PairSymbol() string {
	return c.FeeAsset + c.QuoteAsset
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Exchange
	v.BindEnv("exchange.api_url", "ARB_EXCHANGE_API_URL", "BINANCE_API_URL")
	v.BindEnv("exchange.websocket_url", "ARB_EXCHANGE_WS_URL", "BINANCE_WS_URL")
	v.BindEnv("exchange.api_key", "ARB_EXCHANGE_API_KEY", "BINANCE_API_KEY")
	v.BindEnv("exchange.api_secret", "ARB_EXCHANGE_API_SECRET", "BINANCE_API_SECRET")

	// Trading
	v.BindEnv("trading.cycles", "ARB_CYCLES")
	v.BindEnv("trading.fee_rate", "ARB_FEE_RATE")
	v.BindEnv("trading.min_profit", "ARB_MIN_PROFIT")
	v.BindEnv("trading.capital_fraction", "ARB_CAPITAL_FRACTION")
	v.BindEnv("trading.dry_run", "ARB_DRY_RUN")

	// Ledger
	v.BindEnv("ledger.postgres_dsn", "ARB_LEDGER_DSN", "DATABASE_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "arbitrage-trader")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Exchange defaults (Binance spot testnet endpoints are safest defaults)
	v.SetDefault("exchange.api_url", "https://testnet.binance.vision")
	v.SetDefault("exchange.websocket_url", "wss://stream.testnet.binance.vision")
	v.SetDefault("exchange.request_timeout", "10s")
	v.SetDefault("exchange.requests_per_minute", 1200)
	v.SetDefault("exchange.stale_timeout", "5s")
	v.SetDefault("exchange.use_stream", true)

	// Trading defaults mirror the fee schedule for BNB-discounted accounts
	v.SetDefault("trading.cycles", []string{"USDT,BNB,ETH,USDT"})
	v.SetDefault("trading.fee_rate", 0.00075)
	v.SetDefault("trading.min_profit", 1.0)
	v.SetDefault("trading.capital_fraction", 0.8)
	v.SetDefault("trading.poll_interval", "5s")
	v.SetDefault("trading.dry_run", false)

	// Funding defaults
	v.SetDefault("funding.fee_asset", "BNB")
	v.SetDefault("funding.quote_asset", "USDT")
	v.SetDefault("funding.reserve_min", 0.05)
	v.SetDefault("funding.topup_fraction", 0.2)

	// Ledger defaults
	v.SetDefault("ledger.driver", "memory")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "arbitrage-trader")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Health defaults
	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Exchange.APIURL == "" {
		return fmt.Errorf("exchange.api_url is required")
	}
	if len(c.Trading.Cycles) == 0 {
		return fmt.Errorf("trading.cycles cannot be empty")
	}
	for _, cycle := range c.Trading.Cycles {
		if len(strings.Split(cycle, ",")) < 3 {
			return fmt.Errorf("trading.cycles entry %q is too short, need at least 3 assets", cycle)
		}
	}
	if c.Trading.FeeRate < 0 || c.Trading.FeeRate >= 1 {
		return fmt.Errorf("trading.fee_rate must be in [0, 1), got %v", c.Trading.FeeRate)
	}
	if c.Trading.CapitalFraction <= 0 || c.Trading.CapitalFraction > 1 {
		return fmt.Errorf("trading.capital_fraction must be in (0, 1], got %v", c.Trading.CapitalFraction)
	}
	if c.Trading.PollInterval <= 0 {
		return fmt.Errorf("trading.poll_interval must be positive")
	}
	if c.Funding.TopUpFraction < 0 || c.Funding.TopUpFraction >= 1 {
		return fmt.Errorf("funding.topup_fraction must be in [0, 1), got %v", c.Funding.TopUpFraction)
	}
	if c.Ledger.Driver != "postgres" && c.Ledger.Driver != "memory" {
		return fmt.Errorf("ledger.driver must be \"postgres\" or \"memory\", got %q", c.Ledger.Driver)
	}
	if c.Ledger.Driver == "postgres" && c.Ledger.PostgresDSN == "" {
		return fmt.Errorf("ledger.postgres_dsn is required when ledger.driver is postgres")
	}
	return nil
}

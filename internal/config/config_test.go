package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for explicit missing config file")
	}

	// No explicit path: missing file falls back to defaults.
	cfg, err = loadFromDir(t, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Name != "arbitrage-trader" {
		t.Errorf("unexpected default app name %q", cfg.App.Name)
	}
	if cfg.Trading.PollInterval != 5*time.Second {
		t.Errorf("expected default poll interval 5s, got %s", cfg.Trading.PollInterval)
	}
	if !cfg.Trading.CapitalFractionDecimal().Equal(decimalFromString(t, "0.8")) {
		t.Errorf("expected default capital fraction 0.8, got %s", cfg.Trading.CapitalFractionDecimal())
	}
	if cfg.Ledger.Driver != "memory" {
		t.Errorf("expected default ledger driver memory, got %q", cfg.Ledger.Driver)
	}
	if got := cfg.Funding.PairSymbol(); got != "BNBUSDT" {
		t.Errorf("expected default funding pair BNBUSDT, got %q", got)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	yaml := `
app:
  name: test-trader
  log_level: debug
trading:
  cycles:
    - "USDT,BNB,ETH,USDT"
    - "USDT,ETH,BTC,USDT"
  fee_rate: 0.001
  min_profit: 2.5
  poll_interval: 10s
ledger:
  driver: postgres
  postgres_dsn: postgres://localhost/trades
`
	cfg, err := loadFromDir(t, yaml)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Name != "test-trader" {
		t.Errorf("unexpected app name %q", cfg.App.Name)
	}
	if len(cfg.Trading.Cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cfg.Trading.Cycles))
	}
	if !cfg.Trading.MinProfitDecimal().Equal(decimalFromString(t, "2.5")) {
		t.Errorf("expected min profit 2.5, got %s", cfg.Trading.MinProfitDecimal())
	}
	if cfg.Trading.PollInterval != 10*time.Second {
		t.Errorf("expected poll interval 10s, got %s", cfg.Trading.PollInterval)
	}
	if cfg.Ledger.Driver != "postgres" {
		t.Errorf("expected ledger driver postgres, got %q", cfg.Ledger.Driver)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ARB_EXCHANGE_API_KEY", "env-key")
	t.Setenv("ARB_DRY_RUN", "true")

	cfg, err := loadFromDir(t, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Exchange.APIKey != "env-key" {
		t.Errorf("expected api key from env, got %q", cfg.Exchange.APIKey)
	}
	if !cfg.Trading.DryRun {
		t.Error("expected dry_run true from env")
	}
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		t.Helper()
		cfg, err := loadFromDir(t, "")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no cycles", func(c *Config) { c.Trading.Cycles = nil }},
		{"short cycle", func(c *Config) { c.Trading.Cycles = []string{"USDT,BNB"} }},
		{"fee rate too high", func(c *Config) { c.Trading.FeeRate = 1.5 }},
		{"zero capital fraction", func(c *Config) { c.Trading.CapitalFraction = 0 }},
		{"capital fraction above one", func(c *Config) { c.Trading.CapitalFraction = 1.2 }},
		{"zero poll interval", func(c *Config) { c.Trading.PollInterval = 0 }},
		{"unknown ledger driver", func(c *Config) { c.Ledger.Driver = "sqlite" }},
		{"postgres without dsn", func(c *Config) { c.Ledger.Driver = "postgres"; c.Ledger.PostgresDSN = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

// loadFromDir loads config from a temp working directory, optionally
// seeded with a config.yaml.
func loadFromDir(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	if yaml != "" {
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return Load("")
}

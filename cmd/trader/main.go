// Package main is the entry point for the triangular arbitrage trader.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/s9927637/arbitrage-trader/business/engine/app"
	"github.com/s9927637/arbitrage-trader/business/engine/domain"
	"github.com/s9927637/arbitrage-trader/business/engine/infra"
	"github.com/s9927637/arbitrage-trader/business/exchange/binance"
	"github.com/s9927637/arbitrage-trader/business/ledger/memory"
	"github.com/s9927637/arbitrage-trader/business/ledger/postgres"
	"github.com/s9927637/arbitrage-trader/internal/apm"
	"github.com/s9927637/arbitrage-trader/internal/config"
	"github.com/s9927637/arbitrage-trader/internal/health"
	"github.com/s9927637/arbitrage-trader/internal/logger"
	"github.com/s9927637/arbitrage-trader/internal/metrics"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("arbitrage-trader %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Trading.TUIMode = tuiMode

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if tuiMode {
		// In TUI mode the alternate screen owns the terminal
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting arbitrage trader",
			"version", version,
			"environment", cfg.App.Environment,
			"dry_run", cfg.Trading.DryRun,
		)
	}

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthServer := health.NewServer(cfg.Health.Port, version)

	cycles, err := parseCycles(cfg.Trading.Cycles)
	if err != nil {
		return fmt.Errorf("invalid trading cycles: %w", err)
	}

	provider, err := buildProvider(cfg, cycles, log)
	if err != nil {
		return fmt.Errorf("failed to create exchange provider: %w", err)
	}
	if err := provider.Start(ctx); err != nil {
		return fmt.Errorf("failed to start exchange provider: %w", err)
	}
	defer provider.Close()

	healthServer.RegisterCheck("exchange_stream", func(ctx context.Context) (bool, string) {
		if !cfg.Exchange.UseStream {
			return true, "stream disabled"
		}
		if provider.Connected() {
			return true, "connected"
		}
		return false, "websocket disconnected"
	})

	ledger, closeLedger, err := buildLedger(ctx, cfg, healthServer, log)
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}
	defer closeLedger()

	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer healthServer.Stop(ctx)

	feeRate := cfg.Trading.FeeRateDecimal()
	estimator := app.NewPathProfitEstimator(provider, feeRate, log)
	selector := app.NewPathSelector(estimator, cfg.Trading.MinProfitDecimal(), log)
	executor := app.NewTradeExecutor(provider, estimator, ledger, feeRate, log)

	// The funder places real conversion orders, so it stays off in dry runs.
	var funder *app.FeeFunder
	if !cfg.Trading.DryRun {
		funder = app.NewFeeFunder(provider,
			cfg.Funding.FeeAsset,
			cfg.Funding.QuoteAsset,
			cfg.Funding.PairSymbol(),
			cfg.Funding.ReserveMinDecimal(),
			cfg.Funding.TopUpFractionDecimal(),
			log,
		)
	}

	var reporter app.Reporter
	if tuiMode {
		reporter = infra.NewTUIReporter()
	} else {
		reporter = infra.NewConsoleReporter()
	}

	runner, err := app.NewRunner(provider, selector, executor, funder, reporter, app.RunnerConfig{
		Cycles:          cycles,
		CapitalFraction: cfg.Trading.CapitalFractionDecimal(),
		DryRun:          cfg.Trading.DryRun,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	healthServer.RegisterCheck("engine", func(ctx context.Context) (bool, string) {
		last := runner.LastPass()
		if last.IsZero() {
			return true, "no pass completed yet"
		}
		if age := time.Since(last); age > 3*cfg.Trading.PollInterval {
			return false, fmt.Sprintf("last pass %s ago", age.Round(time.Second))
		}
		return true, "passing"
	})

	if err := reporter.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reporter: %w", err)
	}
	defer reporter.Stop()

	return runner.Run(ctx, app.NewIntervalTicker(cfg.Trading.PollInterval))
}

func parseCycles(raw []string) ([]domain.AssetCycle, error) {
	cycles := make([]domain.AssetCycle, 0, len(raw))
	for _, r := range raw {
		cycle, err := domain.ParseCycle(r)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, cycle)
	}
	return cycles, nil
}

func buildProvider(cfg *config.Config, cycles []domain.AssetCycle, log *logger.Logger) (*binance.Provider, error) {
	restCfg := binance.DefaultRESTConfig()
	restCfg.BaseURL = cfg.Exchange.APIURL
	restCfg.APIKey = cfg.Exchange.APIKey
	restCfg.APISecret = cfg.Exchange.APISecret
	if cfg.Exchange.RequestTimeout > 0 {
		restCfg.Timeout = cfg.Exchange.RequestTimeout
	}
	if cfg.Exchange.RequestsPerMinute > 0 {
		restCfg.RequestsPerMinute = cfg.Exchange.RequestsPerMinute
	}

	providerCfg := binance.ProviderConfig{
		RESTConfig:   restCfg,
		Symbols:      cycleSymbols(cycles),
		StaleTimeout: cfg.Exchange.StaleTimeout,
	}
	if cfg.Exchange.UseStream {
		providerCfg.WebSocketURL = cfg.Exchange.WebSocketURL
	}

	return binance.NewProvider(providerCfg, log)
}

// cycleSymbols collects the distinct pair symbols across all cycle legs,
// so the price stream subscribes to each market exactly once.
func cycleSymbols(cycles []domain.AssetCycle) []string {
	seen := make(map[string]struct{})
	var symbols []string
	for _, cycle := range cycles {
		for _, leg := range cycle.Legs() {
			if _, ok := seen[leg.Symbol]; ok {
				continue
			}
			seen[leg.Symbol] = struct{}{}
			symbols = append(symbols, leg.Symbol)
		}
	}
	return symbols
}

func buildLedger(ctx context.Context, cfg *config.Config, healthServer *health.Server, log *logger.Logger) (app.Ledger, func(), error) {
	switch cfg.Ledger.Driver {
	case "postgres":
		repo, err := postgres.Connect(ctx, cfg.Ledger.PostgresDSN, log)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close()
			return nil, nil, err
		}
		healthServer.RegisterCheck("ledger", func(ctx context.Context) (bool, string) {
			if err := repo.Ping(ctx); err != nil {
				return false, err.Error()
			}
			return true, "connected"
		})
		return repo, repo.Close, nil
	default:
		return memory.New(), func() {}, nil
	}
}

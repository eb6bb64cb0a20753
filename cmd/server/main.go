package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjannette/trahn-pnl/internal/api"
	"github.com/kjannette/trahn-pnl/internal/config"
	"github.com/kjannette/trahn-pnl/internal/db"
	"github.com/kjannette/trahn-pnl/internal/external"
	"github.com/kjannette/trahn-pnl/internal/history"
	"github.com/kjannette/trahn-pnl/internal/logging"
	"github.com/kjannette/trahn-pnl/internal/metrics"
	"github.com/kjannette/trahn-pnl/internal/pnl"
	"github.com/kjannette/trahn-pnl/internal/repository"
)

const banner = `
╔══════════════════════════════════════╗
║       TRAHN PnL Report Server        ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	file := flag.String("file", "", "serve reports from a trade export file instead of trade_history")
	flag.Parse()

	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg.Print(log)
	cfg.Warn(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := pnl.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatal("invalid report options", zap.Error(err))
	}

	// History source
	var src history.Source
	var pinger api.Pinger
	if *file != "" {
		src = history.NewFileSource(*file, cfg.AssetSymbol, cfg.QuoteSymbol, log)
	} else {
		dbLog := log.Named("db")
		dbLog.Info("connecting", zap.String("host", cfg.DBHost), zap.Int("port", cfg.DBPort), zap.String("name", cfg.DBName))
		pool, err := db.Connect(ctx, cfg.DSN())
		if err != nil {
			dbLog.Fatal("connection failed", zap.Error(err))
		}
		defer func() {
			pool.Close()
			dbLog.Info("connection pool closed")
		}()

		if err := db.TestConnection(ctx, pool, dbLog); err != nil {
			dbLog.Fatal("test query failed", zap.Error(err))
		}

		src = history.NewDBSource(
			repository.NewTradeRepo(pool),
			repository.NewWalletRepo(pool),
			cfg.PaperMode(), cfg.HistoryLimit,
			cfg.AssetSymbol, cfg.QuoteSymbol, log,
		)
		pinger = pool
	}

	m := metrics.New()
	svc := pnl.NewService(src, opts, m, log)

	prices := external.NewCoinGeckoClient(cfg.MarketPriceURL, cfg.MarketCoinID, cfg.MarketVsCurrency, log)
	srv := api.NewServer(svc, pinger, m.Handler(), cfg.APIPort, cfg.APIKey, cfg.CORSAllowOrigin, log).
		WithPriceFeed(prices)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	log.Info("all services started")

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	log.Info("shutdown complete")
}

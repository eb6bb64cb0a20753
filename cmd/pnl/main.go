package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/kjannette/trahn-pnl/internal/config"
	"github.com/kjannette/trahn-pnl/internal/db"
	"github.com/kjannette/trahn-pnl/internal/external"
	"github.com/kjannette/trahn-pnl/internal/history"
	"github.com/kjannette/trahn-pnl/internal/logging"
	"github.com/kjannette/trahn-pnl/internal/notifications"
	"github.com/kjannette/trahn-pnl/internal/pnl"
	"github.com/kjannette/trahn-pnl/internal/repository"
)

const usage = `Supported actions:
  t, trades      buy/sell stats per month and day
  r, revenue     realized revenue per month and day
  b, balance     open lots backing the current holdings
  s, sell-at     quote a sell: [-price <p>] [-amount <a>]; no price uses the market, no amount sells everything
  c, calc        simulate a round trip: -amount <a> -buy <p> -sell <p>
`

func main() {
	action := flag.String("do", "", "action to perform (see below)")
	file := flag.String("file", "", "trade export file (YAML or JSON); reads trade_history when empty")
	price := flag.Float64("price", 0, "sell price for sell-at")
	amount := flag.Float64("amount", 0, "amount for sell-at and calc")
	buy := flag.Float64("buy", 0, "buy price for calc")
	sell := flag.Float64("sell", 0, "sell price for calc")
	minimal := flag.Bool("minimal", false, "print month totals only")
	asJSON := flag.Bool("json", false, "print JSON instead of tables")
	notify := flag.Bool("notify", false, "send the report headline to WEBHOOK_URL")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprint(flag.CommandLine.Output(), "\n"+usage)
	}
	flag.Parse()

	if *action == "" {
		flag.Usage()
		os.Exit(2)
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, options{
		action:  *action,
		file:    *file,
		price:   *price,
		amount:  *amount,
		buy:     *buy,
		sell:    *sell,
		minimal: *minimal,
		json:    *asJSON,
		notify:  *notify,
	}); err != nil {
		log.Error("pnl failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	action    string
	file      string
	price     float64
	amount    float64
	buy, sell float64
	minimal   bool
	json      bool
	notify    bool
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, o options) error {
	opts, err := pnl.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	action := normalizeAction(o.action)
	if action == "calc" {
		c, err := pnl.CalcTrade(o.amount, o.buy, o.sell, opts.SellFeePercent)
		if err != nil {
			return err
		}
		return output(o.json, c, func() { printCalc(os.Stdout, c, cfg.QuoteSymbol) })
	}
	if action == "" {
		return fmt.Errorf("unknown action %q", o.action)
	}

	src, closeSrc, err := openSource(ctx, cfg, o.file, log)
	if err != nil {
		return err
	}
	defer closeSrc()

	svc := pnl.NewService(src, opts, nil, log)
	rep, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	for _, p := range rep.Problems {
		fmt.Fprintf(os.Stderr, "skipped: %s\n", p)
	}

	switch action {
	case "trades":
		err = output(o.json, rep.Summary, func() { printTrades(os.Stdout, rep, o.minimal) })
	case "revenue":
		err = output(o.json, rep.Summary, func() { printRevenue(os.Stdout, rep, o.minimal) })
	case "balance":
		err = output(o.json, rep.Balance, func() { printBalance(os.Stdout, rep) })
	case "sell-at":
		price := o.price
		if price <= 0 {
			prices := external.NewCoinGeckoClient(cfg.MarketPriceURL, cfg.MarketCoinID, cfg.MarketVsCurrency, log)
			if price, err = prices.SpotPrice(ctx); err != nil {
				return fmt.Errorf("no -price given and market price unavailable: %w", err)
			}
			fmt.Fprintf(os.Stderr, "using market price %.2f\n", price)
		}
		q, qerr := svc.QuoteSell(rep, price, o.amount)
		if qerr != nil {
			return qerr
		}
		if !o.minimal && !o.json {
			printBalance(os.Stdout, rep)
		}
		err = output(o.json, q, func() { printQuote(os.Stdout, q, rep.Asset, rep.Quote) })
	}
	if err != nil {
		return err
	}

	if o.notify {
		sender := notifications.NewSender(cfg.WebhookURL, cfg.ReportName, log)
		if err := sender.Send(ctx, rep.Headline()); err != nil {
			return err
		}
	}
	return nil
}

func normalizeAction(a string) string {
	switch strings.ToLower(a) {
	case "t", "trades":
		return "trades"
	case "r", "revenue":
		return "revenue"
	case "b", "balance":
		return "balance"
	case "s", "sell-at", "sim", "simulate":
		return "sell-at"
	case "c", "calc":
		return "calc"
	}
	return ""
}

// openSource picks the export file when given, the database otherwise.
func openSource(ctx context.Context, cfg *config.Config, file string, log *zap.Logger) (history.Source, func(), error) {
	if file != "" {
		return history.NewFileSource(file, cfg.AssetSymbol, cfg.QuoteSymbol, log), func() {}, nil
	}

	pool, err := db.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s:%d/%s: %w", cfg.DBHost, cfg.DBPort, cfg.DBName, err)
	}
	src := history.NewDBSource(
		repository.NewTradeRepo(pool),
		repository.NewWalletRepo(pool),
		cfg.PaperMode(), cfg.HistoryLimit,
		cfg.AssetSymbol, cfg.QuoteSymbol, log,
	)
	return src, pool.Close, nil
}

func output(asJSON bool, v any, table func()) error {
	if !asJSON {
		table()
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

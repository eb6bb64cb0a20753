package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	// Secrets (from .env)
	APIKey          string
	CORSAllowOrigin string
	WebhookURL      string
	ReportName      string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Pair
	AssetSymbol string
	QuoteSymbol string

	// Ledger replay
	TradeMode          string // paper, live or all
	ShortfallPolicy    string // abort or zero-cost
	ReconcileDirection string // oldest or newest
	HistoryLimit       int

	// Reporting
	Timezone         string
	AggregateWorkers int
	SellFeePercent   float64

	// Market price for sell quotes without an explicit price
	MarketPriceURL   string
	MarketCoinID     string
	MarketVsCurrency string

	// Server
	APIPort int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Secrets
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		ReportName:      envStr("REPORT_NAME", "TrahnPnL"),

		// Database
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "trahn_grid_trader"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Pair
		AssetSymbol: envStr("ASSET_SYMBOL", "ETH"),
		QuoteSymbol: envStr("QUOTE_SYMBOL", "USDC"),

		// Ledger replay
		TradeMode:          strings.ToLower(envStr("TRADE_MODE", "paper")),
		ShortfallPolicy:    strings.ToLower(envStr("SHORTFALL_POLICY", "abort")),
		ReconcileDirection: strings.ToLower(envStr("RECONCILE_DIRECTION", "oldest")),
		HistoryLimit:       envInt("HISTORY_LIMIT", 0),

		// Reporting
		Timezone:         envStr("TIMEZONE", "UTC"),
		AggregateWorkers: envInt("AGGREGATE_WORKERS", 4),
		SellFeePercent:   envFloat("SELL_FEE_PERCENT", 0.25),

		// Market price
		MarketPriceURL:   envStr("MARKET_PRICE_URL", ""),
		MarketCoinID:     envStr("MARKET_COIN_ID", "ethereum"),
		MarketVsCurrency: envStr("MARKET_VS_CURRENCY", "usd"),

		// Server
		APIPort: envInt("API_PORT", 3001),

		// Logging
		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "console"),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	switch c.TradeMode {
	case "paper", "live", "all":
	default:
		errs = append(errs, fmt.Sprintf("TRADE_MODE must be paper, live or all (got %q)", c.TradeMode))
	}
	switch c.ShortfallPolicy {
	case "abort", "zero-cost":
	default:
		errs = append(errs, fmt.Sprintf("SHORTFALL_POLICY must be abort or zero-cost (got %q)", c.ShortfallPolicy))
	}
	switch c.ReconcileDirection {
	case "oldest", "newest":
	default:
		errs = append(errs, fmt.Sprintf("RECONCILE_DIRECTION must be oldest or newest (got %q)", c.ReconcileDirection))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("TIMEZONE %q: %v", c.Timezone, err))
	}
	if c.AggregateWorkers < 1 {
		errs = append(errs, "AGGREGATE_WORKERS must be at least 1")
	}
	if c.SellFeePercent < 0 || c.SellFeePercent >= 100 {
		errs = append(errs, "SELL_FEE_PERCENT must be in [0, 100)")
	}
	if c.HistoryLimit < 0 {
		errs = append(errs, "HISTORY_LIMIT must not be negative")
	}
	if c.MarketCoinID == "" || c.MarketVsCurrency == "" {
		errs = append(errs, "MARKET_COIN_ID and MARKET_VS_CURRENCY are required")
	}
	if c.AssetSymbol == "" || c.QuoteSymbol == "" {
		errs = append(errs, "ASSET_SYMBOL and QUOTE_SYMBOL are required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Warn reports settings that are valid but probably unintended.
func (c *Config) Warn(log *zap.Logger) {
	if c.APIKey == "" {
		log.Warn("API_KEY not set, REST API has no authentication")
	}
	if c.ShortfallPolicy == "zero-cost" {
		log.Warn("SHORTFALL_POLICY=zero-cost, sells without cost basis count as pure profit")
	}
}

func (c *Config) Print(log *zap.Logger) {
	log.Info("configuration",
		zap.String("report", c.ReportName),
		zap.String("pair", c.AssetSymbol+"/"+c.QuoteSymbol),
		zap.String("tradeMode", c.TradeMode),
		zap.String("shortfallPolicy", c.ShortfallPolicy),
		zap.String("reconcileDirection", c.ReconcileDirection),
		zap.String("timezone", c.Timezone),
		zap.Int("aggregateWorkers", c.AggregateWorkers),
		zap.Float64("sellFeePercent", c.SellFeePercent),
		zap.String("marketPrice", c.MarketCoinID+"/"+c.MarketVsCurrency),
		zap.String("db", fmt.Sprintf("%s:%d/%s", c.DBHost, c.DBPort, c.DBName)),
		zap.String("webhook", boolLabel(c.WebhookURL != "", "configured", "not set")),
	)
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// PaperMode maps TRADE_MODE to the trade_history filter: nil means all rows.
func (c *Config) PaperMode() *bool {
	var v bool
	switch c.TradeMode {
	case "paper":
		v = true
	case "live":
		v = false
	default:
		return nil
	}
	return &v
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

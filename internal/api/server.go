package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjannette/trahn-pnl/internal/pnl"
)

const maxQueryLimit = 1000

var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Reporter is the report side of pnl.Service.
type Reporter interface {
	Run(ctx context.Context) (*pnl.Report, error)
	QuoteSell(rep *pnl.Report, price, amount float64) (*pnl.SellQuote, error)
	Calc(amount, buy, sell float64) (pnl.TradeCalc, error)
}

// Pinger reports database reachability; *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PriceFeed supplies the market price for sell quotes that omit one.
type PriceFeed interface {
	SpotPrice(ctx context.Context) (float64, error)
}

type Server struct {
	reports    Reporter
	db         Pinger
	prices     PriceFeed
	httpServer *http.Server
	apiKey     string
	log        *zap.Logger
}

// NewServer builds the REST API. db and metricsHandler may be nil.
func NewServer(reports Reporter, db Pinger, metricsHandler http.Handler, port int, apiKey, corsOrigin string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		reports: reports,
		db:      db,
		apiKey:  apiKey,
		log:     log.Named("api"),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.routes(metricsHandler, corsOrigin),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// WithPriceFeed lets /v1/pnl/sell-quote fall back to the market price.
func (s *Server) WithPriceFeed(f PriceFeed) *Server {
	s.prices = f
	return s
}

func (s *Server) routes(metricsHandler http.Handler, corsOrigin string) http.Handler {
	mux := http.NewServeMux()

	// PnL routes
	mux.HandleFunc("GET /v1/pnl/trades", s.handleTrades)
	mux.HandleFunc("GET /v1/pnl/revenue", s.handleRevenue)
	mux.HandleFunc("GET /v1/pnl/ledger", s.handleLedger)
	mux.HandleFunc("GET /v1/pnl/sell-quote", s.handleSellQuote)
	mux.HandleFunc("GET /v1/pnl/calc", s.handleCalc)

	// Health check and metrics (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return s.authMiddleware(corsMiddleware(mux, corsOrigin))
}

func (s *Server) Start() error {
	s.log.Info("REST API server started",
		zap.String("addr", "http://localhost"+s.httpServer.Addr),
		zap.String("health", "http://localhost"+s.httpServer.Addr+"/health"),
		zap.Bool("auth", s.apiKey != ""),
	)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func validateDate(date string) bool {
	if !dateRegexp.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// parseFloatParam returns fallback when the parameter is absent.
func parseFloatParam(r *http.Request, name string, fallback float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return f, nil
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

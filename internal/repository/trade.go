package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjannette/trahn-pnl/internal/models"
)

const tradeColumns = `id, timestamp, trading_day, side, price, quantity, usd_value,
	grid_level, tx_hash, is_paper_trade, slippage_percent, gas_cost_eth, created_at`

// tradingDayCutoffHour is the UTC hour the grid bot rolls its trading day at.
const tradingDayCutoffHour = 17

type TradeRepo struct {
	pool *pgxpool.Pool
}

func NewTradeRepo(pool *pgxpool.Pool) *TradeRepo {
	return &TradeRepo{pool: pool}
}

// Record inserts a trade the way the grid bot writes it.
func (r *TradeRepo) Record(ctx context.Context, t *models.Trade) (*models.Trade, error) {
	ts := t.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO trade_history
		 (timestamp, trading_day, side, price, quantity, usd_value,
		  grid_level, tx_hash, is_paper_trade, slippage_percent, gas_cost_eth)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING `+tradeColumns,
		ts, tradingDay(ts), t.Side, t.Price, t.Quantity, t.USDValue,
		t.GridLevel, t.TxHash, t.IsPaperTrade, t.SlippagePercent, t.GasCostETH,
	)
	return scanTrade(row)
}

// GetHistory returns trades oldest first, as the ledger replays them.
// If paperMode is non-nil, filters by is_paper_trade. A positive limit keeps
// only the most recent trades.
func (r *TradeRepo) GetHistory(ctx context.Context, paperMode *bool, limit int) ([]models.Trade, error) {
	query, args := buildFilteredQuery(
		`SELECT `+tradeColumns+` FROM trade_history WHERE 1=1`,
		nil,
		paperMode,
	)
	if limit > 0 {
		args = append(args, limit)
		query = fmt.Sprintf(`SELECT * FROM (%s ORDER BY timestamp DESC, id DESC LIMIT $%d) recent`, query, len(args))
	}
	query += " ORDER BY timestamp ASC, id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trade history: %w", err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

// buildFilteredQuery appends an is_paper_trade clause when paperMode is non-nil.
func buildFilteredQuery(baseQuery string, baseArgs []any, paperMode *bool) (string, []any) {
	if paperMode == nil {
		return baseQuery, baseArgs
	}
	args := append(baseArgs, *paperMode)
	return baseQuery + fmt.Sprintf(" AND is_paper_trade = $%d", len(args)), args
}

// tradingDay returns the bot's trading day (YYYY-MM-DD): before the cutoff
// hour a trade still belongs to the previous day.
func tradingDay(ts time.Time) string {
	utc := ts.UTC()
	if utc.Hour() < tradingDayCutoffHour {
		utc = utc.AddDate(0, 0, -1)
	}
	return utc.Format("2006-01-02")
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTrade(row scannable) (*models.Trade, error) {
	var t models.Trade
	var td time.Time
	err := row.Scan(
		&t.ID, &t.Timestamp, &td, &t.Side, &t.Price, &t.Quantity, &t.USDValue,
		&t.GridLevel, &t.TxHash, &t.IsPaperTrade, &t.SlippagePercent, &t.GasCostETH,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.TradingDay = td.Format("2006-01-02")
	return &t, nil
}

func collectTrades(rows rowsIter) ([]models.Trade, error) {
	var out []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

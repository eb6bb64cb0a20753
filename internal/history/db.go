package history

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjannette/trahn-pnl/internal/models"
	"github.com/kjannette/trahn-pnl/internal/normalize"
)

type TradeStore interface {
	GetHistory(ctx context.Context, paperMode *bool, limit int) ([]models.Trade, error)
}

type WalletStore interface {
	GetPaperWallet(ctx context.Context) (*models.PaperWallet, error)
}

// DBSource reads the grid bot's trade_history. For paper trades the paper
// wallet balance is reported as the held amount.
type DBSource struct {
	trades    TradeStore
	wallet    WalletStore
	paperMode *bool
	limit     int
	asset     string
	quote     string
	log       *zap.Logger
}

func NewDBSource(trades TradeStore, wallet WalletStore, paperMode *bool, limit int, asset, quote string, log *zap.Logger) *DBSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &DBSource{
		trades:    trades,
		wallet:    wallet,
		paperMode: paperMode,
		limit:     limit,
		asset:     asset,
		quote:     quote,
		log:       log.Named("history"),
	}
}

func (s *DBSource) Load(ctx context.Context) (*Batch, error) {
	rows, err := s.trades.GetHistory(ctx, s.paperMode, s.limit)
	if err != nil {
		return nil, fmt.Errorf("load trade history: %w", err)
	}

	n := normalize.New(s.asset, s.quote, s.log)
	res := normalize.Batch(n, rows, n.Row)
	b := &Batch{
		Source:  normalize.SourceLedger,
		Asset:   s.asset,
		Quote:   s.quote,
		Records: res.Records,
		Errors:  res.Errors,
		Skipped: res.Skipped,
	}

	if s.wallet != nil && s.paperMode != nil && *s.paperMode {
		pw, err := s.wallet.GetPaperWallet(ctx)
		if err != nil {
			return nil, fmt.Errorf("load paper wallet: %w", err)
		}
		if pw != nil {
			bal := pw.ETHBalance
			b.Balance = &bal
		}
	}

	s.log.Debug("loaded trade history",
		zap.Int("rows", len(rows)),
		zap.Int("records", len(b.Records)),
		zap.Int("malformed", len(b.Errors)),
	)
	return b, nil
}

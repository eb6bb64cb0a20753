package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjannette/trahn-pnl/internal/models"
)

// WalletRepo reads the paper wallet the grid bot keeps on its active
// grid_state row. Its asset balance is the reconciliation target.
type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// GetPaperWallet returns nil when there is no active state or the paper
// wallet was never initialized.
func (r *WalletRepo) GetPaperWallet(ctx context.Context) (*models.PaperWallet, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT paper_eth_balance, paper_usdc_balance, paper_total_gas_spent,
		        paper_start_time, paper_initial_eth, paper_initial_usdc
		 FROM grid_state WHERE is_active = true ORDER BY updated_at DESC LIMIT 1`,
	)

	var eth, usdc, gas, initETH, initUSDC *float64
	var pw models.PaperWallet
	if err := row.Scan(&eth, &usdc, &gas, &pw.StartTime, &initETH, &initUSDC); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query paper wallet: %w", err)
	}
	if eth == nil {
		return nil, nil
	}

	pw.ETHBalance = *eth
	pw.USDCBalance = valOr(usdc, 0)
	pw.TotalGasSpent = valOr(gas, 0)
	pw.InitialETH = valOr(initETH, 0)
	pw.InitialUSDC = valOr(initUSDC, 0)
	return &pw, nil
}

func valOr(p *float64, fallback float64) float64 {
	if p != nil {
		return *p
	}
	return fallback
}

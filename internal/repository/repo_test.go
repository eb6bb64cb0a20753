package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/kjannette/trahn-pnl/internal/models"
	"github.com/kjannette/trahn-pnl/internal/repository"
	"github.com/kjannette/trahn-pnl/internal/testutil"
)

// ---------- TradeRepo ----------

func TestTradeRepoHistory(t *testing.T) {
	pool := testutil.SetupPool(t)
	repo := repository.NewTradeRepo(pool)
	ctx := context.Background()

	gasCost := 0.002
	base := time.Now().Add(-time.Hour)

	for i, side := range []string{"buy", "sell"} {
		trade := &models.Trade{
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
			Side:         side,
			Price:        2600.00 + float64(i)*50,
			Quantity:     0.0385,
			USDValue:     100.00,
			IsPaperTrade: true,
			GasCostETH:   &gasCost,
		}
		recorded, err := repo.Record(ctx, trade)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if recorded.ID == 0 {
			t.Fatal("expected non-zero ID")
		}
		t.Logf("Recorded trade: id=%d side=%s price=%.2f", recorded.ID, recorded.Side, recorded.Price)
	}

	paperMode := true
	history, err := repo.GetHistory(ctx, &paperMode, 0)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) < 2 {
		t.Fatalf("expected at least 2 trades, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp.Before(history[i-1].Timestamp) {
			t.Fatalf("history not ascending at %d", i)
		}
		if !history[i].IsPaperTrade {
			t.Fatalf("expected paper trade, got live trade id=%d", history[i].ID)
		}
	}

	recent, err := repo.GetHistory(ctx, nil, 1)
	if err != nil {
		t.Fatalf("GetHistory(limit): %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(recent))
	}
	t.Logf("GetHistory: %d paper trades, latest id=%d", len(history), recent[0].ID)
}

// ---------- WalletRepo ----------

func TestWalletRepo(t *testing.T) {
	pool := testutil.SetupPool(t)
	repo := repository.NewWalletRepo(pool)

	pw, err := repo.GetPaperWallet(context.Background())
	if err != nil {
		t.Fatalf("GetPaperWallet: %v", err)
	}
	if pw == nil {
		t.Skip("no active paper wallet")
	}
	if pw.ETHBalance < 0 {
		t.Fatalf("negative ETH balance: %f", pw.ETHBalance)
	}
	t.Logf("PaperWallet: ETH=%.4f USDC=%.2f", pw.ETHBalance, pw.USDCBalance)
}

package pnl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/trahn-pnl/internal/history"
	"github.com/kjannette/trahn-pnl/internal/ledger"
	"github.com/kjannette/trahn-pnl/internal/metrics"
	"github.com/kjannette/trahn-pnl/internal/models"
)

type fakeSource struct {
	batch *history.Batch
	err   error
}

func (f fakeSource) Load(context.Context) (*history.Batch, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.batch
	cp.Records = append([]models.TradeRecord(nil), f.batch.Records...)
	return &cp, nil
}

func rec(id string, side models.Side, vol, price, fee float64, ts time.Time) models.TradeRecord {
	return models.TradeRecord{
		ID: id, Source: "test", Side: side, Volume: vol, Price: price,
		QuoteCost: vol * price, Fee: fee, Timestamp: ts,
	}
}

func sampleBatch() *history.Batch {
	return &history.Batch{
		Source: "test",
		Asset:  "ETH",
		Quote:  "USD",
		Records: []models.TradeRecord{
			rec("b1", models.Buy, 1.0, 100, 1, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
			rec("b2", models.Buy, 1.0, 200, 2, time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)),
			rec("s1", models.Sell, 1.5, 300, 1.5, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)),
		},
		Errors:  []error{errors.New("kraken record #3: bad price")},
		Skipped: 2,
	}
}

func TestRunForward(t *testing.T) {
	m := metrics.New()
	svc := NewService(fakeSource{batch: sampleBatch()}, Options{Workers: 2, SellFeePercent: 1}, m, nil)

	rep, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Records)
	assert.Equal(t, 1, rep.Malformed)
	assert.Equal(t, 2, rep.Skipped)
	assert.Len(t, rep.Problems, 1)
	assert.Equal(t, 1, rep.Sells)
	assert.InDelta(t, 250, rep.Realized.Revenue, 1e-9)
	assert.InDelta(t, 2, rep.Realized.Fee, 1e-9)

	require.NotNil(t, rep.Summary)
	require.Len(t, rep.Summary.Months, 2)
	assert.Equal(t, "202401", rep.Summary.Months[0].Key)
	assert.Equal(t, 3, rep.Summary.Stats.Total.Trades)
	assert.InDelta(t, 4.5, rep.Summary.Stats.Total.Fees, 1e-9)
	assert.InDelta(t, 250, rep.Summary.Months[1].Stats.Sell.Revenue, 1e-9)

	assert.False(t, rep.Balance.Reconciled)
	require.Len(t, rep.Balance.Lots, 1)
	assert.Equal(t, models.Lot{Price: 200, Amount: 0.5, Fee: 1}, rep.Balance.Lots[0])

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsNormalized.WithLabelValues("test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsMalformed.WithLabelValues("test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SellsMatched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpenLots))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsGenerated.WithLabelValues("full")))
}

func TestRunReconcilesKnownBalance(t *testing.T) {
	b := sampleBatch()
	bal := 1.2
	b.Balance = &bal

	rep, err := NewService(fakeSource{batch: b}, Options{}, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.Balance.Reconciled)
	require.Len(t, rep.Balance.Lots, 2)
	assert.Equal(t, models.Lot{Price: 100, Amount: 1, Fee: 1}, rep.Balance.Lots[0])
	assert.InDelta(t, 0.2, rep.Balance.Lots[1].Amount, 1e-12)
	assert.InDelta(t, 0.4, rep.Balance.Lots[1].Fee, 1e-12)
	assert.InDelta(t, 1.2, rep.Balance.Holdings.Amount, 1e-12)
	assert.Zero(t, rep.Balance.Unexplained)
}

func TestRunNewestFirstReconcile(t *testing.T) {
	b := sampleBatch()
	bal := 0.5
	b.Balance = &bal

	rep, err := NewService(fakeSource{batch: b}, Options{Direction: ledger.NewestFirst}, nil, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Balance.Lots, 1)
	assert.Equal(t, 200.0, rep.Balance.Lots[0].Price)
}

func TestRunShortfall(t *testing.T) {
	b := sampleBatch()
	b.Records[2].Volume = 3
	m := metrics.New()

	_, err := NewService(fakeSource{batch: b}, Options{}, m, nil).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInsufficientCostBasis)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Shortfalls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportErrors.WithLabelValues("full")))

	rep, err := NewService(fakeSource{batch: b}, Options{Shortfall: ledger.ShortfallZeroCost}, nil, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Shortfalls, 1)
	assert.InDelta(t, 1.0, rep.Shortfalls[0].Unmatched, 1e-12)
	assert.Empty(t, rep.Balance.Lots)
}

func TestRunSourceError(t *testing.T) {
	boom := errors.New("db down")
	_, err := NewService(fakeSource{err: boom}, Options{}, nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestHeadline(t *testing.T) {
	rep, err := NewService(fakeSource{batch: sampleBatch()}, Options{}, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t,
		"test ETH/USD: realized 250.00 USD over 1 sells, fees 4.50, holding 0.50000000 ETH in 1 lots (1 malformed records skipped)",
		rep.Headline())
}

package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/trahn-pnl/internal/models"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func buy(id string, vol, price, fee float64, at time.Duration) models.TradeRecord {
	return models.TradeRecord{ID: id, Side: models.Buy, Volume: vol, Price: price, QuoteCost: vol * price, Fee: fee, Timestamp: t0.Add(at)}
}

func sell(id string, vol, price, fee float64, at time.Duration) models.TradeRecord {
	return models.TradeRecord{ID: id, Side: models.Sell, Volume: vol, Price: price, QuoteCost: vol * price, Fee: fee, Timestamp: t0.Add(at)}
}

func history() []models.TradeRecord {
	return []models.TradeRecord{
		buy("b1", 10, 100, 1, 0),
		buy("b2", 5, 120, 0.5, time.Hour),
		sell("s1", 12, 150, 0.9, 2*time.Hour),
		buy("b3", 4, 90, 0.4, 3*time.Hour),
		sell("s2", 2, 95, 0.2, 4*time.Hour),
	}
}

func TestBuild_AnnotatesSells(t *testing.T) {
	res, err := Build(history())
	require.NoError(t, err)
	require.Len(t, res.Records, 5)
	assert.Equal(t, 2, res.SellsCount)

	s1 := res.Records[2]
	assert.InDelta(t, 560, s1.Revenue, tol)
	assert.InDelta(t, 1.2, s1.BasisFee, tol)

	// s2 consumes from the 90 lot bought after s1
	s2 := res.Records[4]
	assert.InDelta(t, 10, s2.Revenue, tol)
	assert.InDelta(t, 0.2, s2.BasisFee, tol)

	assert.InDelta(t, 570, res.Realized.Revenue, tol)
	assert.InDelta(t, 1.4, res.Realized.Fee, tol)

	lots := res.Ledger.Lots()
	require.Len(t, lots, 2)
	assert.Equal(t, 90.0, lots[0].Price)
	assert.InDelta(t, 2, lots[0].Amount, tol)
	assert.Equal(t, 120.0, lots[1].Price)
	assert.InDelta(t, 3, lots[1].Amount, tol)
}

func TestBuild_LeavesInputUntouched(t *testing.T) {
	in := history()
	_, err := Build(in)
	require.NoError(t, err)
	assert.Zero(t, in[2].Revenue)
	assert.Zero(t, in[2].BasisFee)
}

func TestBuild_ShortfallAborts(t *testing.T) {
	recs := []models.TradeRecord{
		buy("b1", 1, 100, 0.1, 0),
		sell("s1", 2, 150, 0.1, time.Hour),
	}
	_, err := Build(recs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientCostBasis)
	assert.Contains(t, err.Error(), "s1")
}

func TestBuild_ShortfallZeroCost(t *testing.T) {
	recs := []models.TradeRecord{
		buy("b1", 1, 100, 0.1, 0),
		sell("s1", 2, 150, 0.1, time.Hour),
	}
	res, err := Build(recs, WithShortfallPolicy(ShortfallZeroCost))
	require.NoError(t, err)
	require.Len(t, res.Shortfalls, 1)
	assert.InDelta(t, 1, res.Shortfalls[0].Unmatched, tol)
	// 1 × (150-100) matched + 1 × 150 at zero basis
	assert.InDelta(t, 200, res.Records[1].Revenue, tol)
	assert.InDelta(t, 0.1, res.Records[1].BasisFee, tol)
}

func TestReconcile_ZeroTargetIsEmpty(t *testing.T) {
	l, err := ReconcileToBalance(history(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestReconcile_NegativeTargetRejected(t *testing.T) {
	_, err := ReconcileToBalance(history(), -1)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestReconcile_TargetAboveAllBuysMatchesBuysOnlyLedger(t *testing.T) {
	recs := history()

	var buys []models.TradeRecord
	total := 0.0
	for _, r := range recs {
		if r.IsBuy() {
			buys = append(buys, r)
			total += r.Volume
		}
	}
	want, err := Build(buys)
	require.NoError(t, err)

	for _, target := range []float64{total, total + 5} {
		got, err := ReconcileToBalance(recs, target)
		require.NoError(t, err)
		assert.Equal(t, want.Ledger.Lots(), got.Lots())
	}
}

func TestReconcile_ProRatesLastRecord(t *testing.T) {
	res, err := Replay(history(), Options{Mode: Reconcile, Target: 12})
	require.NoError(t, err)

	lots := res.Ledger.Lots()
	require.Len(t, lots, 2)
	assert.Equal(t, 100.0, lots[0].Price)
	assert.InDelta(t, 10, lots[0].Amount, tol)
	assert.InDelta(t, 1, lots[0].Fee, tol)
	assert.Equal(t, 120.0, lots[1].Price)
	assert.InDelta(t, 2, lots[1].Amount, tol)
	assert.InDelta(t, 0.2, lots[1].Fee, tol)

	require.Len(t, res.Records, 2)
	assert.InDelta(t, 240, res.Records[1].QuoteCost, tol)
	assert.InDelta(t, 12, res.Attributed, tol)
	assert.Zero(t, res.Unexplained)
}

func TestReconcile_NewestFirst(t *testing.T) {
	l, err := ReconcileToBalance(history(), 6, WithDirection(NewestFirst))
	require.NoError(t, err)

	lots := l.Lots()
	require.Len(t, lots, 2)
	assert.Equal(t, 90.0, lots[0].Price)
	assert.InDelta(t, 4, lots[0].Amount, tol)
	assert.Equal(t, 120.0, lots[1].Price)
	assert.InDelta(t, 2, lots[1].Amount, tol)
}

func TestReconcile_ReportsUnexplained(t *testing.T) {
	res, err := Replay(history(), Options{Mode: Reconcile, Target: 25})
	require.NoError(t, err)
	assert.InDelta(t, 19, res.Attributed, tol)
	assert.InDelta(t, 6, res.Unexplained, tol)
}

func TestReconcile_FeedsDepletion(t *testing.T) {
	l, err := ReconcileToBalance(history(), 12)
	require.NoError(t, err)

	res, err := l.ApplySell(150, 12)
	require.NoError(t, err)
	assert.InDelta(t, 560, res.Revenue, tol)
	assert.InDelta(t, 1.2, res.Fee, tol)
	assert.Equal(t, 0, l.Len())
}

func TestParseHelpers(t *testing.T) {
	d, err := ParseDirection("newest")
	require.NoError(t, err)
	assert.Equal(t, NewestFirst, d)
	_, err = ParseDirection("sideways")
	assert.Error(t, err)

	p, err := ParseShortfallPolicy("zero-cost")
	require.NoError(t, err)
	assert.Equal(t, ShortfallZeroCost, p)
	_, err = ParseShortfallPolicy("ignore")
	assert.Error(t, err)
}

package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/trahn-pnl/internal/models"
)

func at(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return ts
}

func TestAggregate_SameDayBuyAndSell(t *testing.T) {
	recs := []models.TradeRecord{
		{Side: models.Buy, Volume: 1, Price: 100, QuoteCost: 100, Fee: 1, Timestamp: at("2024-05-02T09:00:00Z")},
		{Side: models.Sell, Volume: 1, Price: 90, QuoteCost: 90, Fee: 0.5, Timestamp: at("2024-05-02T17:30:00Z")},
	}

	sum, err := Aggregate(recs)
	require.NoError(t, err)
	require.Len(t, sum.Months, 1)
	require.Len(t, sum.Months[0].Days, 1)

	day := sum.Months[0].Days[0]
	assert.Equal(t, "20240502", day.Key)
	assert.Equal(t, 1.5, day.Stats.Total.Fees)
	assert.Equal(t, 190.0, day.Stats.Total.VolumeQuote)
	assert.Equal(t, 1.0, day.Stats.Total.VolumeSold)
	assert.Equal(t, 2.0, day.Stats.Total.VolumeAsset)
	assert.Equal(t, 1.0, day.Stats.Buy.Fees)
	assert.Equal(t, 0.5, day.Stats.Sell.Fees)
}

func TestAggregate_RollsUpMonthsAndAllTime(t *testing.T) {
	recs := []models.TradeRecord{
		{Side: models.Buy, Volume: 2, QuoteCost: 200, Fee: 1, Timestamp: at("2024-01-05T10:00:00Z")},
		{Side: models.Sell, Volume: 1, QuoteCost: 120, Fee: 0.25, Revenue: 20, Timestamp: at("2024-01-07T10:00:00Z")},
		{Side: models.Sell, Volume: 1, QuoteCost: 130, Fee: 0.25, Revenue: 30, Timestamp: at("2024-02-01T10:00:00Z")},
		{Side: models.Buy, Volume: 1, QuoteCost: 90, Fee: 0.5, Timestamp: at("2023-12-31T23:00:00Z")},
	}

	sum, err := Aggregate(recs, WithWorkers(2))
	require.NoError(t, err)
	require.Len(t, sum.Months, 3)
	assert.Equal(t, "202312", sum.Months[0].Key)
	assert.Equal(t, "202401", sum.Months[1].Key)
	assert.Equal(t, "202402", sum.Months[2].Key)

	jan := sum.Months[1]
	require.Len(t, jan.Days, 2)
	assert.Equal(t, 2, jan.Stats.Total.Trades)
	assert.Equal(t, 20.0, jan.Stats.Total.Revenue)
	assert.Equal(t, 1.25, jan.Stats.Total.Fees)
	assert.Equal(t, time.January, jan.Date.Month())

	assert.Equal(t, 4, sum.Stats.Total.Trades)
	assert.Equal(t, 50.0, sum.Stats.Total.Revenue)
	assert.Equal(t, 2.0, sum.Stats.Total.Fees)
	assert.Equal(t, 540.0, sum.Stats.Total.VolumeQuote)
	assert.Equal(t, 2.0, sum.Stats.Sell.VolumeSold)
	assert.Equal(t, 3.0, sum.Stats.Buy.VolumeAsset)
}

func TestAggregate_LocationShiftsDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	recs := []models.TradeRecord{
		{Side: models.Buy, Volume: 1, QuoteCost: 10, Timestamp: at("2024-03-01T02:00:00Z")},
	}

	utc := Group(recs, nil)
	assert.Equal(t, []string{"20240301"}, utc.Days("202403"))

	local := Group(recs, ny)
	assert.Equal(t, []string{"202402"}, local.Months())
	assert.Equal(t, []string{"20240229"}, local.Days("202402"))
	assert.Equal(t, 1, local.Len())
}

func TestAggregate_WorkerCountDoesNotChangeResult(t *testing.T) {
	var recs []models.TradeRecord
	start := at("2024-01-01T00:00:00Z")
	for i := 0; i < 300; i++ {
		side := models.Buy
		if i%3 == 0 {
			side = models.Sell
		}
		recs = append(recs, models.TradeRecord{
			Side: side, Volume: 0.1 * float64(i%7+1), QuoteCost: 13.7 * float64(i%11+1),
			Fee: 0.013 * float64(i%5+1), Revenue: 0.7 * float64(i%4),
			Timestamp: start.Add(time.Duration(i) * 7 * time.Hour),
		})
	}

	one, err := Aggregate(recs, WithWorkers(1))
	require.NoError(t, err)
	many, err := Aggregate(recs, WithWorkers(16))
	require.NoError(t, err)
	assert.Equal(t, one, many)
}

func TestAggregate_NonFiniteFails(t *testing.T) {
	recs := []models.TradeRecord{
		{Side: models.Buy, Volume: 1, QuoteCost: math.Inf(1), Timestamp: at("2024-01-01T00:00:00Z")},
	}
	_, err := Aggregate(recs)
	assert.Error(t, err)
}

func TestAggregate_Empty(t *testing.T) {
	sum, err := Aggregate(nil)
	require.NoError(t, err)
	assert.Empty(t, sum.Months)
	assert.Equal(t, Split{}, sum.Stats)
}

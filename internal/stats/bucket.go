package stats

import (
	"math"

	"github.com/kjannette/trahn-pnl/internal/models"
)

// Bucket is an additive aggregate over a set of trade records.
type Bucket struct {
	Trades      int     `json:"trades"`
	Revenue     float64 `json:"revenue"`
	Fees        float64 `json:"fees"`
	VolumeQuote float64 `json:"volumeQuote"`
	VolumeAsset float64 `json:"volumeAsset"`
	VolumeSold  float64 `json:"volumeSold"`
}

// Merge returns the field-wise sum of a and b.
func Merge(a, b Bucket) Bucket {
	return Bucket{
		Trades:      a.Trades + b.Trades,
		Revenue:     a.Revenue + b.Revenue,
		Fees:        a.Fees + b.Fees,
		VolumeQuote: a.VolumeQuote + b.VolumeQuote,
		VolumeAsset: a.VolumeAsset + b.VolumeAsset,
		VolumeSold:  a.VolumeSold + b.VolumeSold,
	}
}

// Add folds one record into the bucket.
func (b *Bucket) Add(r models.TradeRecord) {
	b.Trades++
	b.Revenue += r.Revenue
	b.Fees += r.Fee
	b.VolumeQuote += r.QuoteCost
	b.VolumeAsset += r.Volume
	if r.IsSell() {
		b.VolumeSold += r.Volume
	}
}

// Profit is realized revenue net of the fees paid in the bucket.
func (b Bucket) Profit() float64 {
	return b.Revenue - b.Fees
}

func (b Bucket) finite() bool {
	for _, v := range []float64{b.Revenue, b.Fees, b.VolumeQuote, b.VolumeAsset, b.VolumeSold} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Split holds the all-records bucket plus the buy-only and sell-only parts.
type Split struct {
	Total Bucket `json:"total"`
	Buy   Bucket `json:"buy"`
	Sell  Bucket `json:"sell"`
}

func (s *Split) Add(r models.TradeRecord) {
	s.Total.Add(r)
	if r.IsSell() {
		s.Sell.Add(r)
	} else {
		s.Buy.Add(r)
	}
}

func MergeSplit(a, b Split) Split {
	return Split{
		Total: Merge(a.Total, b.Total),
		Buy:   Merge(a.Buy, b.Buy),
		Sell:  Merge(a.Sell, b.Sell),
	}
}

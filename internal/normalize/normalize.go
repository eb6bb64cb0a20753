// Package normalize turns exchange-specific trade payloads into
// models.TradeRecord values.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kjannette/trahn-pnl/internal/models"
)

const (
	SourceKraken   = "kraken"
	SourceBitstamp = "bitstamp"
	SourceLedger   = "ledger"
	SourceOnChain  = "onchain"
)

var (
	ErrMalformedRecord = errors.New("malformed trade record")
	// ErrNotTrade marks payloads that are valid but are not trades
	// (deposits, withdrawals). Batches skip them without reporting.
	ErrNotTrade = errors.New("not a trade")
)

type MalformedError struct {
	Source string
	Index  int
	ID     string
	Reason string
}

func (e *MalformedError) Error() string {
	ref := e.ID
	if ref == "" {
		ref = fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("%s record %s: %s", e.Source, ref, e.Reason)
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func malformed(source, id, format string, args ...any) error {
	return &MalformedError{Source: source, Index: -1, ID: id, Reason: fmt.Sprintf(format, args...)}
}

// Normalizer knows the asset/quote pair the payloads are denominated in.
type Normalizer struct {
	asset string
	quote string
	log   *zap.Logger
}

func New(asset, quote string, log *zap.Logger) *Normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{
		asset: strings.ToLower(asset),
		quote: strings.ToLower(quote),
		log:   log,
	}
}

type BatchResult struct {
	Records []models.TradeRecord
	Errors  []error
	Skipped int
}

// Batch normalizes items one by one. A malformed item is reported in Errors
// and left out; the rest of the batch still goes through. Records come back
// in chronological order.
func Batch[T any](n *Normalizer, items []T, fn func(T) (models.TradeRecord, error)) BatchResult {
	var out BatchResult
	for i, it := range items {
		rec, err := fn(it)
		if err != nil {
			if errors.Is(err, ErrNotTrade) {
				out.Skipped++
				continue
			}
			var me *MalformedError
			if errors.As(err, &me) && me.Index < 0 {
				me.Index = i
			}
			n.log.Warn("skipping trade record", zap.Int("index", i), zap.Error(err))
			out.Errors = append(out.Errors, err)
			continue
		}
		out.Records = append(out.Records, rec)
	}
	SortChronological(out.Records)
	return out
}

// SortChronological orders records by timestamp, keeping input order for ties.
func SortChronological(records []models.TradeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
}

// parseDecimal reads an exchange decimal string exactly before converting it.
// Empty input yields fallback.
func parseDecimal(v string, fallback float64) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

func checkRecord(source string, r models.TradeRecord) error {
	switch {
	case !finite(r.Price, r.Volume, r.Fee, r.QuoteCost):
		return malformed(source, r.ID, "non-finite amount")
	case r.Price <= 0:
		return malformed(source, r.ID, "price must be positive, got %v", r.Price)
	case r.Volume < 0:
		return malformed(source, r.ID, "negative volume %v", r.Volume)
	case r.Fee < 0:
		return malformed(source, r.ID, "negative fee %v", r.Fee)
	case r.QuoteCost < 0:
		return malformed(source, r.ID, "negative quote cost %v", r.QuoteCost)
	case r.Timestamp.IsZero():
		return malformed(source, r.ID, "missing timestamp")
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

package normalize

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kjannette/trahn-pnl/internal/models"
)

// bitstampMarketTrade is the user_transactions type code for a trade.
const bitstampMarketTrade = "2"

var bitstampTimeLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// BitstampTransaction is one user_transactions entry. Field names depend on
// the pair ("btc", "eur", "btc_eur"), so it stays a loose map; values may be
// strings or numbers.
type BitstampTransaction map[string]any

// Bitstamp derives the side from the sign of the asset balance change.
func (n *Normalizer) Bitstamp(tx BitstampTransaction) (models.TradeRecord, error) {
	id := tx.str("id")

	if typ := tx.str("type"); typ != bitstampMarketTrade {
		return models.TradeRecord{}, fmt.Errorf("bitstamp %s type %q: %w", id, typ, ErrNotTrade)
	}

	assetDelta, err := parseDecimal(tx.str(n.asset), math.NaN())
	if err != nil || math.IsNaN(assetDelta) {
		return models.TradeRecord{}, malformed(SourceBitstamp, id, "missing or invalid %q amount", n.asset)
	}
	quoteDelta, err := parseDecimal(tx.str(n.quote), math.NaN())
	if err != nil || math.IsNaN(quoteDelta) {
		return models.TradeRecord{}, malformed(SourceBitstamp, id, "missing or invalid %q amount", n.quote)
	}
	pairKey := n.asset + "_" + n.quote
	price, err := parseDecimal(tx.str(pairKey), 0)
	if err != nil {
		return models.TradeRecord{}, malformed(SourceBitstamp, id, "%s: %v", pairKey, err)
	}
	fee, err := parseDecimal(tx.str("fee"), 0)
	if err != nil {
		return models.TradeRecord{}, malformed(SourceBitstamp, id, "fee: %v", err)
	}
	ts, err := parseBitstampTime(tx.str("datetime"))
	if err != nil {
		return models.TradeRecord{}, malformed(SourceBitstamp, id, "datetime: %v", err)
	}

	side := models.Buy
	if assetDelta < 0 {
		side = models.Sell
	}

	rec := models.TradeRecord{
		ID:        id,
		Source:    SourceBitstamp,
		Side:      side,
		Volume:    math.Abs(assetDelta),
		Price:     price,
		QuoteCost: math.Abs(quoteDelta),
		Fee:       math.Abs(fee),
		Timestamp: ts,
	}
	if err := checkRecord(SourceBitstamp, rec); err != nil {
		return models.TradeRecord{}, err
	}
	return rec, nil
}

func (tx BitstampTransaction) str(key string) string {
	switch v := tx[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

func parseBitstampTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("empty")
	}
	for _, layout := range bitstampTimeLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", v)
}

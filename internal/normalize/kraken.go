package normalize

import (
	"math"
	"time"

	"github.com/kjannette/trahn-pnl/internal/models"
)

// KrakenTrade is one entry of Kraken's TradesHistory result. Amounts arrive
// as decimal strings.
type KrakenTrade struct {
	TxID      string  `json:"txid" yaml:"txid"`
	OrderTxID string  `json:"ordertxid" yaml:"ordertxid"`
	Pair      string  `json:"pair" yaml:"pair"`
	Time      float64 `json:"time" yaml:"time"`
	Type      string  `json:"type" yaml:"type"`
	OrderType string  `json:"ordertype" yaml:"ordertype"`
	Price     string  `json:"price" yaml:"price"`
	Cost      string  `json:"cost" yaml:"cost"`
	Fee       string  `json:"fee" yaml:"fee"`
	Vol       string  `json:"vol" yaml:"vol"`
	Margin    string  `json:"margin" yaml:"margin"`
}

func (n *Normalizer) Kraken(t KrakenTrade) (models.TradeRecord, error) {
	side, err := models.ParseSide(t.Type)
	if err != nil {
		return models.TradeRecord{}, malformed(SourceKraken, t.TxID, "%v", err)
	}

	price, err := parseDecimal(t.Price, 0)
	if err != nil {
		return models.TradeRecord{}, malformed(SourceKraken, t.TxID, "price %q: %v", t.Price, err)
	}
	vol, err := parseDecimal(t.Vol, -1)
	if err != nil {
		return models.TradeRecord{}, malformed(SourceKraken, t.TxID, "vol %q: %v", t.Vol, err)
	}
	if vol < 0 {
		return models.TradeRecord{}, malformed(SourceKraken, t.TxID, "missing or negative vol")
	}
	cost, err := parseDecimal(t.Cost, price*vol)
	if err != nil {
		return models.TradeRecord{}, malformed(SourceKraken, t.TxID, "cost %q: %v", t.Cost, err)
	}
	fee, err := parseDecimal(t.Fee, 0)
	if err != nil {
		return models.TradeRecord{}, malformed(SourceKraken, t.TxID, "fee %q: %v", t.Fee, err)
	}
	if t.Time <= 0 {
		return models.TradeRecord{}, malformed(SourceKraken, t.TxID, "missing time")
	}

	sec, frac := math.Modf(t.Time)
	rec := models.TradeRecord{
		ID:        t.TxID,
		Source:    SourceKraken,
		Side:      side,
		Volume:    vol,
		Price:     price,
		QuoteCost: cost,
		Fee:       fee,
		Timestamp: time.Unix(int64(sec), int64(frac*1e9)).UTC(),
	}
	if err := checkRecord(SourceKraken, rec); err != nil {
		return models.TradeRecord{}, err
	}
	return rec, nil
}

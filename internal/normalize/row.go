package normalize

import (
	"fmt"

	"github.com/kjannette/trahn-pnl/internal/models"
)

// Row converts a trade_history row. Rows written before the fee column
// existed fall back to gas cost, converted to quote at the trade price.
func (n *Normalizer) Row(t models.Trade) (models.TradeRecord, error) {
	id := fmt.Sprintf("trade_history:%d", t.ID)

	side, err := models.ParseSide(t.Side)
	if err != nil {
		return models.TradeRecord{}, malformed(SourceLedger, id, "%v", err)
	}

	var fee float64
	switch {
	case t.Fee != nil:
		fee = *t.Fee
	case t.GasCostETH != nil:
		fee = *t.GasCostETH * t.Price
	}

	cost := t.USDValue
	if cost == 0 {
		cost = t.Price * t.Quantity
	}

	rec := models.TradeRecord{
		ID:        id,
		Source:    SourceLedger,
		Side:      side,
		Volume:    t.Quantity,
		Price:     t.Price,
		QuoteCost: cost,
		Fee:       fee,
		Timestamp: t.Timestamp.UTC(),
	}
	if err := checkRecord(SourceLedger, rec); err != nil {
		return models.TradeRecord{}, err
	}
	return rec, nil
}

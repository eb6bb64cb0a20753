package normalize

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/params"

	"github.com/kjannette/trahn-pnl/internal/models"
)

// SwapEvent is a decoded DEX swap seen from the wallet's side. AssetDelta
// is the signed change of the native asset in wei, QuoteDelta the signed
// change of the quote token in its base units. Big numbers are decimal or
// 0x-prefixed hex strings.
type SwapEvent struct {
	TxHash        string `json:"txHash" yaml:"txHash"`
	Timestamp     int64  `json:"timestamp" yaml:"timestamp"`
	AssetDelta    string `json:"assetDelta" yaml:"assetDelta"`
	QuoteDelta    string `json:"quoteDelta" yaml:"quoteDelta"`
	QuoteDecimals int    `json:"quoteDecimals" yaml:"quoteDecimals"`
	GasUsed       uint64 `json:"gasUsed" yaml:"gasUsed"`
	GasPrice      string `json:"gasPrice" yaml:"gasPrice"`
}

// OnChain treats receiving the asset as a buy. Gas is charged as the fee,
// valued at the swap's own price.
func (n *Normalizer) OnChain(s SwapEvent) (models.TradeRecord, error) {
	raw, err := hexutil.Decode(s.TxHash)
	if err != nil || len(raw) != common.HashLength {
		return models.TradeRecord{}, malformed(SourceOnChain, s.TxHash, "invalid tx hash")
	}
	id := common.BytesToHash(raw).Hex()

	assetWei, ok := parseSigned(s.AssetDelta)
	if !ok {
		return models.TradeRecord{}, malformed(SourceOnChain, id, "invalid asset delta %q", s.AssetDelta)
	}
	quoteUnits, ok := parseSigned(s.QuoteDelta)
	if !ok {
		return models.TradeRecord{}, malformed(SourceOnChain, id, "invalid quote delta %q", s.QuoteDelta)
	}
	if assetWei.Sign() == 0 {
		return models.TradeRecord{}, malformed(SourceOnChain, id, "zero asset delta")
	}
	if s.QuoteDecimals < 0 || s.QuoteDecimals > 36 {
		return models.TradeRecord{}, malformed(SourceOnChain, id, "quote decimals %d out of range", s.QuoteDecimals)
	}
	if s.Timestamp <= 0 {
		return models.TradeRecord{}, malformed(SourceOnChain, id, "missing timestamp")
	}

	side := models.Buy
	if assetWei.Sign() < 0 {
		side = models.Sell
	}

	volume := scaleDown(new(big.Int).Abs(assetWei), big.NewInt(params.Ether))
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(s.QuoteDecimals)), nil)
	cost := scaleDown(new(big.Int).Abs(quoteUnits), unit)

	var price float64
	if volume > 0 {
		price = cost / volume
	}

	var fee float64
	if s.GasUsed > 0 && s.GasPrice != "" {
		gasPrice, ok := math.ParseBig256(s.GasPrice)
		if !ok {
			return models.TradeRecord{}, malformed(SourceOnChain, id, "invalid gas price %q", s.GasPrice)
		}
		gasWei := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(s.GasUsed))
		fee = scaleDown(gasWei, big.NewInt(params.Ether)) * price
	}

	rec := models.TradeRecord{
		ID:        id,
		Source:    SourceOnChain,
		Side:      side,
		Volume:    volume,
		Price:     price,
		QuoteCost: cost,
		Fee:       fee,
		Timestamp: time.Unix(s.Timestamp, 0).UTC(),
	}
	if err := checkRecord(SourceOnChain, rec); err != nil {
		return models.TradeRecord{}, err
	}
	return rec, nil
}

// parseSigned accepts an optional leading minus before a ParseBig256 string.
func parseSigned(v string) (*big.Int, bool) {
	neg := len(v) > 0 && v[0] == '-'
	if neg {
		v = v[1:]
	}
	if v == "" {
		return nil, false
	}
	x, ok := math.ParseBig256(v)
	if !ok {
		return nil, false
	}
	if neg {
		x.Neg(x)
	}
	return x, true
}

func scaleDown(x, unit *big.Int) float64 {
	f, _ := new(big.Rat).SetFrac(x, unit).Float64()
	return f
}

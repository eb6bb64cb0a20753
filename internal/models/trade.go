package models

import "time"

// Trade is one row of the trade_history table written by the grid bot. Fee
// is not a column; exported ledger files may carry it.
type Trade struct {
	ID              int64     `json:"id" yaml:"id"`
	Timestamp       time.Time `json:"timestamp" yaml:"timestamp"`
	TradingDay      string    `json:"tradingDay" yaml:"tradingDay"`
	Side            string    `json:"side" yaml:"side"` // "buy" or "sell"
	Price           float64   `json:"price" yaml:"price"`
	Quantity        float64   `json:"quantity" yaml:"quantity"`
	USDValue        float64   `json:"usdValue" yaml:"usdValue"`
	GridLevel       *int      `json:"gridLevel,omitempty" yaml:"gridLevel,omitempty"`
	TxHash          *string   `json:"txHash,omitempty" yaml:"txHash,omitempty"`
	IsPaperTrade    bool      `json:"isPaperTrade" yaml:"isPaperTrade"`
	SlippagePercent *float64  `json:"slippagePercent,omitempty" yaml:"slippagePercent,omitempty"`
	GasCostETH      *float64  `json:"gasCostEth,omitempty" yaml:"gasCostEth,omitempty"`
	Fee             *float64  `json:"fee,omitempty" yaml:"fee,omitempty"`
	CreatedAt       time.Time `json:"createdAt" yaml:"createdAt"`
}

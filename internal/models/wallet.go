package models

import "time"

// PaperWallet is the paper-trading balance snapshot kept on the active
// grid_state row.
type PaperWallet struct {
	ETHBalance    float64    `json:"ethBalance"`
	USDCBalance   float64    `json:"usdcBalance"`
	TotalGasSpent float64    `json:"totalGasSpent"`
	StartTime     *time.Time `json:"startTime"`
	InitialETH    float64    `json:"initialEth"`
	InitialUSDC   float64    `json:"initialUsdc"`
}

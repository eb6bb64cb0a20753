// Package history loads trade history for a report, either from the grid
// bot's database or from an exchange export file.
package history

import (
	"context"

	"github.com/kjannette/trahn-pnl/internal/models"
)

// Batch is normalized history plus what was left out of it.
type Batch struct {
	Source  string
	Asset   string
	Quote   string
	Records []models.TradeRecord
	Errors  []error
	Skipped int

	// Balance is the currently held asset amount when the source knows it.
	Balance *float64
}

type Source interface {
	Load(ctx context.Context) (*Batch, error)
}

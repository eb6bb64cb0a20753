package pnl

import (
	"fmt"

	"github.com/kjannette/trahn-pnl/internal/config"
	"github.com/kjannette/trahn-pnl/internal/ledger"
)

func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := ledger.ParseShortfallPolicy(cfg.ShortfallPolicy)
	if err != nil {
		return Options{}, err
	}
	dir, err := ledger.ParseDirection(cfg.ReconcileDirection)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Shortfall:      policy,
		Direction:      dir,
		Location:       cfg.Location(),
		Workers:        cfg.AggregateWorkers,
		SellFeePercent: cfg.SellFeePercent,
	}, nil
}

// Headline is the one-line summary sent to the webhook.
func (r *Report) Headline() string {
	total := r.Summary.Stats.Total
	msg := fmt.Sprintf("%s %s/%s: realized %.2f %s over %d sells, fees %.2f, holding %.8f %s in %d lots",
		r.Source, r.Asset, r.Quote,
		r.Realized.Revenue, r.Quote, r.Sells,
		total.Fees,
		r.Balance.Holdings.Amount, r.Asset, len(r.Balance.Lots),
	)
	if r.Malformed > 0 {
		msg += fmt.Sprintf(" (%d malformed records skipped)", r.Malformed)
	}
	if len(r.Shortfalls) > 0 {
		msg += fmt.Sprintf(" (%d sells without cost basis)", len(r.Shortfalls))
	}
	return msg
}

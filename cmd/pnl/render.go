package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kjannette/trahn-pnl/internal/pnl"
	"github.com/kjannette/trahn-pnl/internal/stats"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
}

func printTrades(w io.Writer, rep *pnl.Report, minimal bool) {
	tw := newTable(w)
	fmt.Fprintf(tw, "period\tside\ttrades\tfees (%s)\tvolume (%s)\tvolume (%s)\t\n", rep.Quote, rep.Quote, rep.Asset)
	row := func(period, side string, b stats.Bucket) {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%.2f\t%.8f\t\n", period, side, b.Trades, b.Fees, b.VolumeQuote, b.VolumeAsset)
	}
	for _, m := range rep.Summary.Months {
		month := m.Date.Format("January 2006")
		row(month, "buy", m.Stats.Buy)
		row(month, "sell", m.Stats.Sell)
		if minimal {
			continue
		}
		for _, d := range m.Days {
			day := d.Date.Format("02 Jan 2006")
			row(day, "buy", d.Stats.Buy)
			row(day, "sell", d.Stats.Sell)
		}
	}
	row("all", "buy", rep.Summary.Stats.Buy)
	row("all", "sell", rep.Summary.Stats.Sell)
	tw.Flush()
}

func printRevenue(w io.Writer, rep *pnl.Report, minimal bool) {
	tw := newTable(w)
	fmt.Fprintf(tw, "period\trevenue (%s)\tfees (%s)\tprofit (%s)\tsold (%s)\t\n", rep.Quote, rep.Quote, rep.Quote, rep.Asset)
	row := func(period string, b stats.Bucket) {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.8f\t\n", period, b.Revenue, b.Fees, b.Profit(), b.VolumeSold)
	}
	for _, m := range rep.Summary.Months {
		row(m.Date.Format("January 2006"), m.Stats.Total)
		if minimal {
			continue
		}
		for _, d := range m.Days {
			row(d.Date.Format("02 Jan 2006"), d.Stats.Total)
		}
	}
	row("all", rep.Summary.Stats.Total)
	tw.Flush()

	for _, sf := range rep.Shortfalls {
		fmt.Fprintf(w, "warning: %s sold %.8f %s without cost basis\n", sf.Record.Timestamp.Format("2006-01-02"), sf.Unmatched, rep.Asset)
	}
}

func printBalance(w io.Writer, rep *pnl.Report) {
	b := rep.Balance
	tw := newTable(w)
	fmt.Fprintf(tw, "price (%s)\tamount (%s)\tfee (%s)\tcost (%s)\t\n", rep.Quote, rep.Asset, rep.Quote, rep.Quote)
	for _, l := range b.Lots {
		fmt.Fprintf(tw, "%.2f\t%.8f\t%.4f\t%.2f\t\n", l.Price, l.Amount, l.Fee, l.Cost())
	}
	fmt.Fprintf(tw, "total\t%.8f\t%.4f\t%.2f\t\n", b.Holdings.Amount, b.Holdings.Fee, b.Holdings.Cost)
	tw.Flush()

	if b.Reconciled && b.Unexplained > 0 {
		fmt.Fprintf(w, "warning: %.8f %s of the balance is not explained by any buy\n", b.Unexplained, rep.Asset)
	}
}

func printQuote(w io.Writer, q *pnl.SellQuote, asset, quote string) {
	tw := newTable(w)
	fmt.Fprintf(tw, "sell\t%.8f %s @ %.2f\t\n", q.Amount, asset, q.Price)
	fmt.Fprintf(tw, "revenue (%s)\t%.2f\t\n", quote, q.Revenue)
	fmt.Fprintf(tw, "buy fee (%s)\t%.4f\t\n", quote, q.BasisFee)
	fmt.Fprintf(tw, "expected sell fee (%s)\t%.4f\t\n", quote, q.ExpectedFee)
	fmt.Fprintf(tw, "expected profit (%s)\t%.2f\t\n", quote, q.ExpectedProfit)
	if q.Unmatched > 0 {
		fmt.Fprintf(tw, "not covered by lots\t%.8f %s\t\n", q.Unmatched, asset)
	}
	tw.Flush()
}

func printCalc(w io.Writer, c pnl.TradeCalc, quote string) {
	tw := newTable(w)
	fmt.Fprintf(tw, "buy @\t%.2f\t\n", c.BuyPrice)
	fmt.Fprintf(tw, "sell @\t%.2f\t\n", c.SellPrice)
	fmt.Fprintf(tw, "expected revenue (%s)\t%.2f\t\n", quote, c.Revenue)
	fmt.Fprintf(tw, "expected buy fee (%s)\t%.4f\t\n", quote, c.BuyFee)
	fmt.Fprintf(tw, "expected sell fee (%s)\t%.4f\t\n", quote, c.SellFee)
	fmt.Fprintf(tw, "expected profit (%s)\t%.2f\t\n", quote, c.ExpectedProfit)
	tw.Flush()
}

package pnl

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kjannette/trahn-pnl/internal/ledger"
)

var ErrInvalidQuote = errors.New("invalid quote request")

// SellQuote is the outcome of a hypothetical sell against the current lots.
type SellQuote struct {
	Price          float64 `json:"price"`
	Amount         float64 `json:"amount"`
	Revenue        float64 `json:"revenue"`
	BasisFee       float64 `json:"basisFee"`
	ExpectedFee    float64 `json:"expectedFee"`
	ExpectedProfit float64 `json:"expectedProfit"`
	Unmatched      float64 `json:"unmatched,omitempty"`
}

// QuoteSell prices a sell of amount at price against the report's open
// lots without touching them. amount <= 0 sells everything held. Volume
// beyond the lots is reported as Unmatched and earns nothing.
func (s *Service) QuoteSell(rep *Report, price, amount float64) (*SellQuote, error) {
	if rep == nil || rep.book == nil {
		return nil, fmt.Errorf("%w: report has no ledger", ErrInvalidQuote)
	}
	if !(price > 0) || math.IsInf(price, 0) || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, fmt.Errorf("%w: price %v amount %v", ErrInvalidQuote, price, amount)
	}
	if amount <= 0 {
		amount = rep.Balance.Holdings.Amount
	}

	q := &SellQuote{Price: price, Amount: amount}
	res, err := rep.book.QuoteSell(price, amount)
	if err != nil {
		var se *ledger.ShortfallError
		if !errors.As(err, &se) {
			return nil, err
		}
		res = se.Partial
		q.Unmatched = se.Unmatched
	}

	q.Revenue = res.Revenue
	q.BasisFee = res.Fee
	q.ExpectedFee = feeFor(price, amount, s.opts.SellFeePercent)
	q.ExpectedProfit = q.Revenue - (q.BasisFee + q.ExpectedFee)
	return q, nil
}

// SellQuote runs a fresh report and quotes against it.
func (s *Service) SellQuote(ctx context.Context, price, amount float64) (*SellQuote, error) {
	rep, err := s.run(ctx)
	if err != nil {
		s.countError("sell-quote")
		return nil, err
	}
	q, err := s.QuoteSell(rep, price, amount)
	if err != nil {
		s.countError("sell-quote")
		return nil, err
	}
	s.countReport("sell-quote")
	return q, nil
}

// TradeCalc is a standalone buy-then-sell estimate.
type TradeCalc struct {
	Amount         float64 `json:"amount"`
	BuyPrice       float64 `json:"buyPrice"`
	SellPrice      float64 `json:"sellPrice"`
	Revenue        float64 `json:"revenue"`
	BuyFee         float64 `json:"buyFee"`
	SellFee        float64 `json:"sellFee"`
	ExpectedProfit float64 `json:"expectedProfit"`
}

// CalcTrade estimates buying amount at buy and selling it at sell, both
// legs charged feePercent of their notional.
func CalcTrade(amount, buy, sell, feePercent float64) (TradeCalc, error) {
	if !(amount > 0) || !(buy > 0) || !(sell > 0) || !(feePercent >= 0) ||
		math.IsInf(amount, 0) || math.IsInf(buy, 0) || math.IsInf(sell, 0) {
		return TradeCalc{}, fmt.Errorf("%w: amount %v buy %v sell %v fee %v%%", ErrInvalidQuote, amount, buy, sell, feePercent)
	}
	c := TradeCalc{
		Amount:    amount,
		BuyPrice:  buy,
		SellPrice: sell,
		Revenue:   amount * (sell - buy),
		BuyFee:    feeFor(buy, amount, feePercent),
		SellFee:   feeFor(sell, amount, feePercent),
	}
	c.ExpectedProfit = c.Revenue - c.BuyFee - c.SellFee
	return c, nil
}

func feeFor(price, amount, percent float64) float64 {
	return price * amount * percent / 100
}

// Calc is CalcTrade at the configured sell fee.
func (s *Service) Calc(amount, buy, sell float64) (TradeCalc, error) {
	return CalcTrade(amount, buy, sell, s.opts.SellFeePercent)
}

package ledger

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"

	"github.com/kjannette/trahn-pnl/internal/models"
)

// Epsilon is the single zero threshold used by the ledger and by
// reconciliation. Amounts at or below it are treated as nothing.
const Epsilon = 1e-8

var ErrInsufficientCostBasis = errors.New("sell exceeds known cost basis")

// ShortfallError reports a sell that ran out of lots. Partial holds what was
// consumed before the ledger emptied; Unmatched is the volume left over.
type ShortfallError struct {
	Price     float64
	Requested float64
	Unmatched float64
	Partial   models.RevenueResult
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("%v: sell %.8f @ %.4f has %.8f without a matching buy",
		ErrInsufficientCostBasis, e.Requested, e.Price, e.Unmatched)
}

func (e *ShortfallError) Is(target error) bool {
	return target == ErrInsufficientCostBasis
}

// Ledger maps price to the lot bought at that price and depletes lots
// lowest price first. Not safe for concurrent use.
type Ledger struct {
	lots   map[float64]*models.Lot
	prices priceHeap
}

func New() *Ledger {
	return &Ledger{lots: make(map[float64]*models.Lot)}
}

// ApplyBuy merges amount and fee into the lot at price, creating it if needed.
func (l *Ledger) ApplyBuy(price, amount, fee float64) {
	if lot, ok := l.lots[price]; ok {
		lot.Amount += amount
		lot.Fee += fee
		return
	}
	if amount <= Epsilon {
		return
	}
	l.lots[price] = &models.Lot{Price: price, Amount: amount, Fee: fee}
	heap.Push(&l.prices, price)
}

// ApplySell depletes amount starting at the cheapest lot and returns the
// realized revenue and the buy fee carried by the consumed volume.
// If the lots run out, the ledger is left empty and a *ShortfallError is
// returned alongside the partial result.
func (l *Ledger) ApplySell(price, amount float64) (models.RevenueResult, error) {
	var res models.RevenueResult
	remaining := amount

	for remaining > Epsilon {
		if l.prices.Len() == 0 {
			return res, &ShortfallError{
				Price:     price,
				Requested: amount,
				Unmatched: remaining,
				Partial:   res,
			}
		}

		minPrice := l.prices[0]
		lot := l.lots[minPrice]

		if lot.Amount-remaining > Epsilon {
			fraction := (lot.Amount - remaining) / lot.Amount
			feeLeft := lot.Fee * fraction
			res.Fee += lot.Fee - feeLeft
			res.Revenue += remaining * (price - minPrice)
			lot.Amount -= remaining
			lot.Fee = feeLeft
			return res, nil
		}

		res.Revenue += lot.Amount * (price - minPrice)
		res.Fee += lot.Fee
		remaining -= lot.Amount
		l.remove(minPrice)
	}

	return res, nil
}

// QuoteSell reports what ApplySell would return without touching the ledger.
func (l *Ledger) QuoteSell(price, amount float64) (models.RevenueResult, error) {
	return l.Clone().ApplySell(price, amount)
}

func (l *Ledger) remove(price float64) {
	delete(l.lots, price)
	heap.Pop(&l.prices)
}

func (l *Ledger) Len() int { return len(l.lots) }

// Has reports whether a live lot exists at price.
func (l *Ledger) Has(price float64) bool {
	_, ok := l.lots[price]
	return ok
}

// Lot returns a copy of the lot at price.
func (l *Ledger) Lot(price float64) (models.Lot, bool) {
	lot, ok := l.lots[price]
	if !ok {
		return models.Lot{}, false
	}
	return *lot, true
}

// Lots returns copies of every live lot in ascending price order.
func (l *Ledger) Lots() []models.Lot {
	out := make([]models.Lot, 0, len(l.lots))
	for _, lot := range l.lots {
		out = append(out, *lot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// MinPrice returns the cheapest live lot price.
func (l *Ledger) MinPrice() (float64, bool) {
	if l.prices.Len() == 0 {
		return 0, false
	}
	return l.prices[0], true
}

type Holdings struct {
	Amount float64 `json:"amount"`
	Fee    float64 `json:"fee"`
	Cost   float64 `json:"cost"`
}

// Holdings sums the live lots in ascending price order.
func (l *Ledger) Holdings() Holdings {
	var h Holdings
	for _, lot := range l.Lots() {
		h.Amount += lot.Amount
		h.Fee += lot.Fee
		h.Cost += lot.Cost()
	}
	return h
}

func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		lots:   make(map[float64]*models.Lot, len(l.lots)),
		prices: make(priceHeap, len(l.prices)),
	}
	copy(c.prices, l.prices)
	for p, lot := range l.lots {
		cp := *lot
		c.lots[p] = &cp
	}
	return c
}

// priceHeap is a min-heap of the distinct lot prices.
type priceHeap []float64

func (h priceHeap) Len() int           { return len(h) }
func (h priceHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h priceHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *priceHeap) Push(x any) { *h = append(*h, x.(float64)) }

func (h *priceHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

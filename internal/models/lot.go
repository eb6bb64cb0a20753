package models

// Lot is still-held volume acquired at one price, with its pro-rated
// acquisition fee.
type Lot struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
	Fee    float64 `json:"fee"`
}

// Cost is the quote-currency amount paid for the lot, fee excluded.
func (l Lot) Cost() float64 {
	return l.Amount * l.Price
}

// RevenueResult is what a single sell realized against the ledger.
type RevenueResult struct {
	Revenue float64 `json:"revenue"`
	Fee     float64 `json:"fee"`
}

func (r RevenueResult) Add(o RevenueResult) RevenueResult {
	return RevenueResult{Revenue: r.Revenue + o.Revenue, Fee: r.Fee + o.Fee}
}

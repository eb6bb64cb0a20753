package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kjannette/trahn-pnl/internal/ledger"
	"github.com/kjannette/trahn-pnl/internal/models"
	"github.com/kjannette/trahn-pnl/internal/pnl"
	"github.com/kjannette/trahn-pnl/internal/stats"
)

type tradesDayJSON struct {
	Day  string       `json:"day"`
	Buy  stats.Bucket `json:"buy"`
	Sell stats.Bucket `json:"sell"`
}

type tradesMonthJSON struct {
	Month string          `json:"month"`
	Buy   stats.Bucket    `json:"buy"`
	Sell  stats.Bucket    `json:"sell"`
	Days  []tradesDayJSON `json:"days"`
}

type tradesResponse struct {
	Months []tradesMonthJSON `json:"months"`
	Buy    stats.Bucket      `json:"buy"`
	Sell   stats.Bucket      `json:"sell"`
}

type revenueJSON struct {
	Key     string        `json:"key,omitempty"`
	Trades  int           `json:"trades"`
	Revenue float64       `json:"revenue"`
	Fees    float64       `json:"fees"`
	Profit  float64       `json:"profit"`
	Volume  float64       `json:"volume"`
	Sold    float64       `json:"sold"`
	Days    []revenueJSON `json:"days,omitempty"`
}

type revenueResponse struct {
	Months []revenueJSON `json:"months"`
	Total  revenueJSON   `json:"total"`
}

type ledgerResponse struct {
	Asset      string               `json:"asset"`
	Quote      string               `json:"quote"`
	Balance    pnl.Balance          `json:"balance"`
	Realized   models.RevenueResult `json:"realized"`
	Shortfalls []ledger.Shortfall   `json:"shortfalls,omitempty"`
	Malformed  int                  `json:"malformed"`
	Problems   []string             `json:"problems,omitempty"`
}

// dayRange is an inclusive YYYYMMDD window; empty bounds are open.
type dayRange struct {
	from, to string
}

func (d dayRange) contains(key string) bool {
	return (d.from == "" || key >= d.from) && (d.to == "" || key <= d.to)
}

func parseDayRange(r *http.Request) (dayRange, error) {
	var d dayRange
	for _, p := range []struct {
		name string
		dst  *string
	}{{"from", &d.from}, {"to", &d.to}} {
		v := r.URL.Query().Get(p.name)
		if v == "" {
			continue
		}
		if !validateDate(v) {
			return d, errors.New("invalid " + p.name + " date, expected YYYY-MM-DD")
		}
		*p.dst = strings.ReplaceAll(v, "-", "")
	}
	return d, nil
}

// filterMonths drops days outside rng and keeps the most recent limit months.
// Month totals are recomputed from the kept days.
func filterMonths(months []stats.Month, rng dayRange, limit int) []stats.Month {
	var out []stats.Month
	for _, m := range months {
		kept := stats.Month{Key: m.Key, Date: m.Date}
		for _, d := range m.Days {
			if !rng.contains(d.Key) {
				continue
			}
			kept.Days = append(kept.Days, d)
			kept.Stats = stats.MergeSplit(kept.Stats, d.Stats)
		}
		if len(kept.Days) > 0 {
			out = append(out, kept)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (s *Server) runReport(w http.ResponseWriter, r *http.Request) (*pnl.Report, bool) {
	rep, err := s.reports.Run(r.Context())
	if err != nil {
		s.log.Error("report failed", zap.String("path", r.URL.Path), zap.Error(err))
		if errors.Is(err, ledger.ErrInsufficientCostBasis) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return nil, false
	}
	return rep, true
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDayRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, ok := s.runReport(w, r)
	if !ok {
		return
	}

	var resp tradesResponse
	resp.Months = []tradesMonthJSON{}
	for _, m := range filterMonths(rep.Summary.Months, rng, parseLimit(r, 0)) {
		mj := tradesMonthJSON{Month: m.Key, Buy: m.Stats.Buy, Sell: m.Stats.Sell}
		for _, d := range m.Days {
			mj.Days = append(mj.Days, tradesDayJSON{Day: d.Key, Buy: d.Stats.Buy, Sell: d.Stats.Sell})
		}
		resp.Buy = stats.Merge(resp.Buy, m.Stats.Buy)
		resp.Sell = stats.Merge(resp.Sell, m.Stats.Sell)
		resp.Months = append(resp.Months, mj)
	}
	writeJSON(w, http.StatusOK, resp)
}

func revenueOf(key string, b stats.Bucket) revenueJSON {
	return revenueJSON{
		Key:     key,
		Trades:  b.Trades,
		Revenue: b.Revenue,
		Fees:    b.Fees,
		Profit:  b.Profit(),
		Volume:  b.VolumeAsset,
		Sold:    b.VolumeSold,
	}
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	rng, err := parseDayRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, ok := s.runReport(w, r)
	if !ok {
		return
	}

	resp := revenueResponse{Months: []revenueJSON{}}
	var total stats.Bucket
	for _, m := range filterMonths(rep.Summary.Months, rng, parseLimit(r, 0)) {
		mj := revenueOf(m.Key, m.Stats.Total)
		for _, d := range m.Days {
			mj.Days = append(mj.Days, revenueOf(d.Key, d.Stats.Total))
		}
		total = stats.Merge(total, m.Stats.Total)
		resp.Months = append(resp.Months, mj)
	}
	resp.Total = revenueOf("", total)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.runReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ledgerResponse{
		Asset:      rep.Asset,
		Quote:      rep.Quote,
		Balance:    rep.Balance,
		Realized:   rep.Realized,
		Shortfalls: rep.Shortfalls,
		Malformed:  rep.Malformed,
		Problems:   rep.Problems,
	})
}

func (s *Server) handleSellQuote(w http.ResponseWriter, r *http.Request) {
	price, err := parseFloatParam(r, "price", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if price <= 0 {
		if s.prices == nil {
			writeError(w, http.StatusBadRequest, "price query parameter is required")
			return
		}
		price, err = s.prices.SpotPrice(r.Context())
		if err != nil {
			s.log.Error("spot price failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "market price unavailable")
			return
		}
	}
	// amount=0 or absent quotes the whole holding
	amount, err := parseFloatParam(r, "amount", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, ok := s.runReport(w, r)
	if !ok {
		return
	}
	q, err := s.reports.QuoteSell(rep, price, amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleCalc(w http.ResponseWriter, r *http.Request) {
	var vals [3]float64
	for i, name := range []string{"amount", "buy", "sell"} {
		v, err := parseFloatParam(r, name, 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		vals[i] = v
	}

	c, err := s.reports.Calc(vals[0], vals[1], vals[2])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

package ledger

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kjannette/trahn-pnl/internal/models"
)

var ErrInvalidTarget = errors.New("target volume must be a finite, non-negative number")

// Mode selects how Replay treats the record stream.
type Mode int

const (
	// Forward replays every buy and sell and realizes revenue per sell.
	Forward Mode = iota
	// Reconcile attributes buys to a known current balance and ignores sells.
	Reconcile
)

func (m Mode) String() string {
	if m == Reconcile {
		return "reconcile"
	}
	return "forward"
}

// Direction is the order in which Reconcile walks the records.
type Direction int

const (
	OldestFirst Direction = iota
	NewestFirst
)

func ParseDirection(v string) (Direction, error) {
	switch v {
	case "", "oldest":
		return OldestFirst, nil
	case "newest":
		return NewestFirst, nil
	default:
		return OldestFirst, fmt.Errorf("invalid direction %q, expected oldest|newest", v)
	}
}

// ShortfallPolicy decides what a forward replay does when a sell outruns the
// known lots.
type ShortfallPolicy int

const (
	ShortfallAbort ShortfallPolicy = iota
	// ShortfallZeroCost realizes the unmatched volume at a zero cost basis.
	ShortfallZeroCost
)

func ParseShortfallPolicy(v string) (ShortfallPolicy, error) {
	switch v {
	case "", "abort":
		return ShortfallAbort, nil
	case "zero-cost":
		return ShortfallZeroCost, nil
	default:
		return ShortfallAbort, fmt.Errorf("invalid shortfall policy %q, expected abort|zero-cost", v)
	}
}

type Options struct {
	Mode      Mode
	Target    float64
	Direction Direction
	Shortfall ShortfallPolicy
	Logger    *zap.Logger
}

type Option func(*Options)

func WithDirection(d Direction) Option {
	return func(o *Options) { o.Direction = d }
}

func WithShortfallPolicy(p ShortfallPolicy) Option {
	return func(o *Options) { o.Shortfall = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Shortfall records one sell that was only partly covered by known lots.
type Shortfall struct {
	Record    models.TradeRecord `json:"record"`
	Unmatched float64            `json:"unmatched"`
}

type Result struct {
	Mode   Mode    `json:"mode"`
	Ledger *Ledger `json:"-"`

	// Records holds annotated copies. Forward: every input record, sells
	// carrying Revenue and BasisFee. Reconcile: the scaled buys that explain
	// the target, in walk order.
	Records []models.TradeRecord `json:"records"`

	Realized   models.RevenueResult `json:"realized"`
	SellsCount int                  `json:"sellsCount"`
	Shortfalls []Shortfall          `json:"shortfalls,omitempty"`

	// Attributed is the volume reconcile could explain; Unexplained is the
	// part of the target that no buy covered.
	Attributed  float64 `json:"attributed,omitempty"`
	Unexplained float64 `json:"unexplained,omitempty"`
}

// Build replays records in order, buys filling the ledger and sells
// depleting it cheapest lot first. Records must already be chronological.
func Build(records []models.TradeRecord, opts ...Option) (*Result, error) {
	o := Options{Mode: Forward}
	for _, fn := range opts {
		fn(&o)
	}
	return Replay(records, o)
}

// ReconcileToBalance returns a ledger whose lots add up to target, attributed
// to the prices of the buys that explain it.
func ReconcileToBalance(records []models.TradeRecord, target float64, opts ...Option) (*Ledger, error) {
	o := Options{Mode: Reconcile, Target: target}
	for _, fn := range opts {
		fn(&o)
	}
	res, err := Replay(records, o)
	if err != nil {
		return nil, err
	}
	return res.Ledger, nil
}

// Replay is the single entry point behind Build and ReconcileToBalance.
func Replay(records []models.TradeRecord, o Options) (*Result, error) {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	switch o.Mode {
	case Forward:
		return replayForward(records, o)
	case Reconcile:
		return replayReconcile(records, o)
	default:
		return nil, fmt.Errorf("unknown replay mode %d", o.Mode)
	}
}

func replayForward(records []models.TradeRecord, o Options) (*Result, error) {
	l := New()
	res := &Result{Mode: Forward, Ledger: l, Records: make([]models.TradeRecord, 0, len(records))}

	for i, rec := range records {
		if rec.IsBuy() {
			l.ApplyBuy(rec.Price, rec.Volume, rec.Fee)
			res.Records = append(res.Records, rec)
			continue
		}

		sold, err := l.ApplySell(rec.Price, rec.Volume)
		if err != nil {
			var se *ShortfallError
			if !errors.As(err, &se) || o.Shortfall != ShortfallZeroCost {
				return res, fmt.Errorf("record %d (%s): %w", i, recordRef(rec), err)
			}
			sold = se.Partial
			sold.Revenue += se.Unmatched * rec.Price
			res.Shortfalls = append(res.Shortfalls, Shortfall{Record: rec, Unmatched: se.Unmatched})
			o.Logger.Warn("sell without cost basis, realized at zero cost",
				zap.String("record", recordRef(rec)),
				zap.Float64("unmatched", se.Unmatched),
				zap.Float64("price", rec.Price),
			)
		}

		rec.Revenue = sold.Revenue
		rec.BasisFee = sold.Fee
		res.Realized = res.Realized.Add(sold)
		res.SellsCount++
		res.Records = append(res.Records, rec)
	}

	o.Logger.Debug("forward replay done",
		zap.Int("records", len(records)),
		zap.Int("sells", res.SellsCount),
		zap.Int("lots", l.Len()),
		zap.Float64("revenue", res.Realized.Revenue),
	)
	return res, nil
}

func replayReconcile(records []models.TradeRecord, o Options) (*Result, error) {
	if o.Target < 0 || math.IsNaN(o.Target) || math.IsInf(o.Target, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidTarget, o.Target)
	}

	l := New()
	res := &Result{Mode: Reconcile, Ledger: l}
	accumulated := 0.0

	for k := range records {
		if accumulated >= o.Target-Epsilon {
			break
		}

		i := k
		if o.Direction == NewestFirst {
			i = len(records) - 1 - k
		}
		rec := records[i]
		if !rec.IsBuy() || rec.Volume <= Epsilon {
			continue
		}

		remaining := o.Target - accumulated
		fraction := 1.0
		if remaining < rec.Volume {
			fraction = math.Max(remaining, 0) / rec.Volume
		}

		scaled := rec.Scale(fraction)
		l.ApplyBuy(scaled.Price, scaled.Volume, scaled.Fee)
		accumulated += scaled.Volume
		res.Records = append(res.Records, scaled)
	}

	res.Attributed = accumulated
	if gap := o.Target - accumulated; gap > Epsilon {
		res.Unexplained = gap
		o.Logger.Warn("buys do not explain the whole balance",
			zap.Float64("target", o.Target),
			zap.Float64("attributed", accumulated),
		)
	}

	o.Logger.Debug("reconcile done",
		zap.Float64("target", o.Target),
		zap.Int("attributed_records", len(res.Records)),
		zap.Int("lots", l.Len()),
	)
	return res, nil
}

func recordRef(r models.TradeRecord) string {
	if r.ID != "" {
		return r.ID
	}
	return fmt.Sprintf("%s %.8f @ %.4f %s", r.Side, r.Volume, r.Price, r.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
}

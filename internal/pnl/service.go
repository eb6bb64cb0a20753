// Package pnl runs realized profit reports: it loads history, replays it
// through the cost-basis ledger and rolls the annotated trades up by day
// and month.
package pnl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjannette/trahn-pnl/internal/history"
	"github.com/kjannette/trahn-pnl/internal/ledger"
	"github.com/kjannette/trahn-pnl/internal/metrics"
	"github.com/kjannette/trahn-pnl/internal/models"
	"github.com/kjannette/trahn-pnl/internal/stats"
)

type Options struct {
	Shortfall      ledger.ShortfallPolicy
	Direction      ledger.Direction
	Location       *time.Location
	Workers        int
	SellFeePercent float64
}

type Service struct {
	src     history.Source
	opts    Options
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewService wires a report service. m may be nil.
func NewService(src history.Source, opts Options, m *metrics.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{src: src, opts: opts, metrics: m, log: log.Named("pnl"), now: time.Now}
}

// Report is one full pass over the history.
type Report struct {
	Source      string    `json:"source"`
	Asset       string    `json:"asset"`
	Quote       string    `json:"quote"`
	GeneratedAt time.Time `json:"generatedAt"`

	Records   int      `json:"records"`
	Malformed int      `json:"malformed"`
	Skipped   int      `json:"skipped"`
	Problems  []string `json:"problems,omitempty"`

	Realized   models.RevenueResult `json:"realized"`
	Sells      int                  `json:"sells"`
	Shortfalls []ledger.Shortfall   `json:"shortfalls,omitempty"`
	Summary    *stats.Summary       `json:"summary"`

	// Balance is what is still held: the reconciled ledger when the source
	// knows the current holdings, the forward ledger otherwise.
	Balance Balance `json:"balance"`

	book *ledger.Ledger
}

// Balance describes the open lots backing the current holdings.
type Balance struct {
	Reconciled  bool            `json:"reconciled"`
	Target      *float64        `json:"target,omitempty"`
	Unexplained float64         `json:"unexplained,omitempty"`
	Lots        []models.Lot    `json:"lots"`
	Holdings    ledger.Holdings `json:"holdings"`
}

// Run loads the history and builds the full report.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	rep, err := s.run(ctx)
	if err != nil {
		s.countError("full")
		return nil, err
	}
	s.countReport("full")
	return rep, nil
}

func (s *Service) run(ctx context.Context) (*Report, error) {
	b, err := s.src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	s.observeBatch(b)

	rep := &Report{
		Source:      b.Source,
		Asset:       b.Asset,
		Quote:       b.Quote,
		GeneratedAt: s.now().UTC(),
		Records:     len(b.Records),
		Malformed:   len(b.Errors),
		Skipped:     b.Skipped,
	}
	for _, e := range b.Errors {
		rep.Problems = append(rep.Problems, e.Error())
	}

	start := time.Now()
	fwd, err := ledger.Build(b.Records,
		ledger.WithShortfallPolicy(s.opts.Shortfall),
		ledger.WithLogger(s.log),
	)
	s.observeReplay(ledger.Forward, start)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientCostBasis) {
			s.inc(func(m *metrics.Metrics) { m.Shortfalls.Inc() })
		}
		return nil, fmt.Errorf("replay history: %w", err)
	}
	rep.Realized = fwd.Realized
	rep.Sells = fwd.SellsCount
	rep.Shortfalls = fwd.Shortfalls
	s.inc(func(m *metrics.Metrics) {
		m.SellsMatched.Add(float64(fwd.SellsCount))
		m.Shortfalls.Add(float64(len(fwd.Shortfalls)))
	})

	rep.Summary, err = stats.Aggregate(fwd.Records,
		stats.WithLocation(s.opts.Location),
		stats.WithWorkers(s.opts.Workers),
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	book := fwd.Ledger
	if b.Balance != nil {
		start = time.Now()
		rec, err := ledger.Replay(b.Records, ledger.Options{
			Mode:      ledger.Reconcile,
			Target:    *b.Balance,
			Direction: s.opts.Direction,
			Logger:    s.log,
		})
		s.observeReplay(ledger.Reconcile, start)
		if err != nil {
			return nil, fmt.Errorf("reconcile balance: %w", err)
		}
		book = rec.Ledger
		rep.Balance.Reconciled = true
		rep.Balance.Target = b.Balance
		rep.Balance.Unexplained = rec.Unexplained
	}
	rep.book = book
	rep.Balance.Lots = book.Lots()
	rep.Balance.Holdings = book.Holdings()
	s.inc(func(m *metrics.Metrics) { m.OpenLots.Set(float64(book.Len())) })

	s.log.Info("report built",
		zap.String("source", rep.Source),
		zap.Int("records", rep.Records),
		zap.Int("malformed", rep.Malformed),
		zap.Int("sells", rep.Sells),
		zap.Float64("revenue", rep.Realized.Revenue),
		zap.Int("openLots", len(rep.Balance.Lots)),
		zap.Bool("reconciled", rep.Balance.Reconciled),
	)
	return rep, nil
}

func (s *Service) observeBatch(b *history.Batch) {
	s.inc(func(m *metrics.Metrics) {
		m.RecordsNormalized.WithLabelValues(b.Source).Add(float64(len(b.Records)))
		m.RecordsMalformed.WithLabelValues(b.Source).Add(float64(len(b.Errors)))
		m.RecordsSkipped.WithLabelValues(b.Source).Add(float64(b.Skipped))
	})
}

func (s *Service) observeReplay(mode ledger.Mode, start time.Time) {
	s.inc(func(m *metrics.Metrics) {
		m.ReplayDuration.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
	})
}

func (s *Service) countReport(kind string) {
	s.inc(func(m *metrics.Metrics) { m.ReportsGenerated.WithLabelValues(kind).Inc() })
}

func (s *Service) countError(kind string) {
	s.inc(func(m *metrics.Metrics) { m.ReportErrors.WithLabelValues(kind).Inc() })
}

func (s *Service) inc(fn func(*metrics.Metrics)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

package stats

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kjannette/trahn-pnl/internal/models"
)

const (
	MonthLayout = "200601"
	DayLayout   = "20060102"
)

// Tree groups records by calendar month, then by day, in the location the
// tree was built with. Records keep their input order inside a day.
type Tree struct {
	loc    *time.Location
	months map[string]map[string][]models.TradeRecord
}

// Group buckets records by the month and day of their timestamp in loc.
// A nil loc means UTC.
func Group(records []models.TradeRecord, loc *time.Location) *Tree {
	if loc == nil {
		loc = time.UTC
	}
	t := &Tree{loc: loc, months: make(map[string]map[string][]models.TradeRecord)}
	for _, r := range records {
		ts := r.Timestamp.In(loc)
		mk, dk := ts.Format(MonthLayout), ts.Format(DayLayout)

		days, ok := t.months[mk]
		if !ok {
			days = make(map[string][]models.TradeRecord)
			t.months[mk] = days
		}
		days[dk] = append(days[dk], r)
	}
	return t
}

func (t *Tree) Location() *time.Location { return t.loc }

// Months returns the month keys in ascending order.
func (t *Tree) Months() []string {
	return sortedKeys(t.months)
}

// Days returns the day keys of month in ascending order.
func (t *Tree) Days(month string) []string {
	return sortedKeys(t.months[month])
}

func (t *Tree) Records(month, day string) []models.TradeRecord {
	return t.months[month][day]
}

// Len is the number of records in the tree.
func (t *Tree) Len() int {
	n := 0
	for _, days := range t.months {
		for _, recs := range days {
			n += len(recs)
		}
	}
	return n
}

type Day struct {
	Key   string    `json:"key"`
	Date  time.Time `json:"date"`
	Stats Split     `json:"stats"`
}

type Month struct {
	Key   string    `json:"key"`
	Date  time.Time `json:"date"`
	Days  []Day     `json:"days"`
	Stats Split     `json:"stats"`
}

// Summary is the day → month → all-time roll-up of a Tree.
type Summary struct {
	Months []Month `json:"months"`
	Stats  Split   `json:"stats"`
}

type Options struct {
	Location *time.Location
	// Workers bounds how many days are summed concurrently; <= 0 means GOMAXPROCS.
	Workers int
}

type Option func(*Options)

func WithLocation(loc *time.Location) Option {
	return func(o *Options) { o.Location = loc }
}

func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// Aggregate groups records and summarizes the resulting tree.
func Aggregate(records []models.TradeRecord, opts ...Option) (*Summary, error) {
	var o Options
	for _, fn := range opts {
		fn(&o)
	}
	return Summarize(Group(records, o.Location), o.Workers)
}

// Summarize computes every day bucket independently, then merges days into
// months and months into the all-time bucket in ascending key order.
func Summarize(t *Tree, workers int) (*Summary, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	type slot struct{ month, day string }
	var slots []slot
	for _, mk := range t.Months() {
		for _, dk := range t.Days(mk) {
			slots = append(slots, slot{mk, dk})
		}
	}

	daily := make([]Split, len(slots))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, s := range slots {
		i, s := i, s
		g.Go(func() error {
			var sp Split
			for _, r := range t.Records(s.month, s.day) {
				sp.Add(r)
			}
			if !sp.Total.finite() {
				return fmt.Errorf("day %s: totals are not finite", s.day)
			}
			daily[i] = sp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sum := &Summary{}
	var cur *Month
	for i, s := range slots {
		if cur == nil || cur.Key != s.month {
			sum.Months = append(sum.Months, Month{Key: s.month, Date: t.parse(MonthLayout, s.month)})
			cur = &sum.Months[len(sum.Months)-1]
		}
		cur.Days = append(cur.Days, Day{Key: s.day, Date: t.parse(DayLayout, s.day), Stats: daily[i]})
		cur.Stats = MergeSplit(cur.Stats, daily[i])
	}
	for _, m := range sum.Months {
		sum.Stats = MergeSplit(sum.Stats, m.Stats)
	}
	return sum, nil
}

func (t *Tree) parse(layout, key string) time.Time {
	ts, _ := time.ParseInLocation(layout, key, t.loc)
	return ts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package regime

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Series holds daily volatility closes indexed by calendar day. The filter
// only ever looks at day granularity, so timestamps are normalized to
// midnight UTC on insert.
type Series struct {
	days   []time.Time
	values map[time.Time]decimal.Decimal
}

// NewSeries creates an empty daily series.
func NewSeries() *Series {
	return &Series{values: make(map[time.Time]decimal.Decimal)}
}

// Day truncates a timestamp to its calendar day in UTC.
func Day(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Add records the close value for a day, replacing any previous value.
func (s *Series) Add(day time.Time, value decimal.Decimal) {
	day = Day(day)
	if _, ok := s.values[day]; !ok {
		idx := sort.Search(len(s.days), func(i int) bool { return !s.days[i].Before(day) })
		s.days = append(s.days, time.Time{})
		copy(s.days[idx+1:], s.days[idx:])
		s.days[idx] = day
	}
	s.values[day] = value
}

// Value returns the close for a day, if present.
func (s *Series) Value(day time.Time) (decimal.Decimal, bool) {
	v, ok := s.values[Day(day)]
	return v, ok
}

// Prev returns the most recent day in the series strictly before day,
// together with its value.
func (s *Series) Prev(day time.Time) (time.Time, decimal.Decimal, bool) {
	day = Day(day)
	idx := sort.Search(len(s.days), func(i int) bool { return !s.days[i].Before(day) })
	if idx == 0 {
		return time.Time{}, decimal.Decimal{}, false
	}
	prev := s.days[idx-1]
	return prev, s.values[prev], true
}

// Min returns the lowest close observed in [from, to], if any day falls in
// that range.
func (s *Series) Min(from, to time.Time) (decimal.Decimal, bool) {
	from, to = Day(from), Day(to)
	var low decimal.Decimal
	found := false
	for _, d := range s.days {
		if d.Before(from) || d.After(to) {
			continue
		}
		v := s.values[d]
		if !found || v.LessThan(low) {
			low = v
			found = true
		}
	}
	return low, found
}

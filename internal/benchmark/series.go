// Package benchmark resolves index levels nearest to arbitrary dates.
package benchmark

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrMissingSeriesData is returned when the series has no entries
	ErrMissingSeriesData = errors.New("benchmark series is empty")
	// ErrUnknownColumn is returned for a column the series does not track
	ErrUnknownColumn = errors.New("unknown benchmark column")
	// ErrDuplicateDate is returned when two entries share a timestamp
	ErrDuplicateDate = errors.New("duplicate benchmark date")
)

// Series is an immutable, date-ordered table of index levels.
// One column per sector plus one broad-market column. Missing cells are NaN.
// Safe for concurrent reads.
type Series struct {
	dates   []time.Time
	columns map[string][]float64
	names   []string
}

// NewSeries builds a series from parallel slices. Dates are normalised to
// naive wall-clock time, sorted ascending and must be unique after normalisation.
func NewSeries(dates []time.Time, columns map[string][]float64) (*Series, error) {
	names := make([]string, 0, len(columns))
	for name, values := range columns {
		if len(values) != len(dates) {
			return nil, fmt.Errorf("column %q has %d values for %d dates", name, len(values), len(dates))
		}
		names = append(names, name)
	}
	sort.Strings(names)

	order := make([]int, len(dates))
	naive := make([]time.Time, len(dates))
	for i, d := range dates {
		order[i] = i
		naive[i] = Naive(d)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return naive[order[a]].Before(naive[order[b]])
	})

	s := &Series{
		dates:   make([]time.Time, len(dates)),
		columns: make(map[string][]float64, len(columns)),
		names:   names,
	}
	for pos, src := range order {
		s.dates[pos] = naive[src]
		if pos > 0 && s.dates[pos].Equal(s.dates[pos-1]) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDate, s.dates[pos].Format("2006-01-02"))
		}
	}
	for name, values := range columns {
		sorted := make([]float64, len(values))
		for pos, src := range order {
			sorted[pos] = values[src]
		}
		s.columns[name] = sorted
	}

	return s, nil
}

// Naive drops the zone offset and keeps the wall-clock reading.
// This is an approximation, not a timezone conversion.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Len returns the number of dated entries
func (s *Series) Len() int {
	return len(s.dates)
}

// Columns returns the tracked column names, sorted
func (s *Series) Columns() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// HasColumn reports whether column is tracked
func (s *Series) HasColumn(column string) bool {
	_, ok := s.columns[column]
	return ok
}

// MinDate returns the first date. Zero time if the series is empty.
func (s *Series) MinDate() time.Time {
	if len(s.dates) == 0 {
		return time.Time{}
	}
	return s.dates[0]
}

// MaxDate returns the last date. Zero time if the series is empty.
func (s *Series) MaxDate() time.Time {
	if len(s.dates) == 0 {
		return time.Time{}
	}
	return s.dates[len(s.dates)-1]
}

// NearestIndex returns the position of the entry closest to target.
// Equidistant candidates resolve to the earlier date.
func (s *Series) NearestIndex(target time.Time) (int, error) {
	n := len(s.dates)
	if n == 0 {
		return 0, ErrMissingSeriesData
	}
	target = Naive(target)

	i := sort.Search(n, func(i int) bool { return !s.dates[i].Before(target) })
	switch {
	case i == 0:
		return 0, nil
	case i == n:
		return n - 1, nil
	}

	before := target.Sub(s.dates[i-1])
	after := s.dates[i].Sub(target)
	if after < before {
		return i, nil
	}
	return i - 1, nil
}

// NearestValue returns column's level at the entry closest to target.
// The level is NaN when that cell is missing.
func (s *Series) NearestValue(target time.Time, column string) (float64, error) {
	if len(s.dates) == 0 {
		return math.NaN(), ErrMissingSeriesData
	}
	values, ok := s.columns[column]
	if !ok {
		return math.NaN(), fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}

	i, err := s.NearestIndex(target)
	if err != nil {
		return math.NaN(), err
	}
	return values[i], nil
}

// Date returns the i-th date in ascending order
func (s *Series) Date(i int) time.Time {
	return s.dates[i]
}

// Value returns column's level at position i, NaN for an unknown column
func (s *Series) Value(i int, column string) float64 {
	values, ok := s.columns[column]
	if !ok {
		return math.NaN()
	}
	return values[i]
}

package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidStayRange = errors.New("start date must be before end date")
	ErrStayInPast       = errors.New("start date cannot be in the past")
)

// StayRange is the half-open calendar interval [start, end): the checkout
// day itself is not occupied. Both bounds are dates at midnight UTC.
type StayRange struct {
	start time.Time
	end   time.Time
}

func NewStayRange(start, end time.Time) (StayRange, error) {
	start = truncateToDate(start)
	end = truncateToDate(end)
	if !start.Before(end) {
		return StayRange{}, ErrInvalidStayRange
	}
	return StayRange{start: start, end: end}, nil
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r StayRange) Start() time.Time { return r.start }
func (r StayRange) End() time.Time   { return r.end }

func (r StayRange) Nights() int {
	return int(r.end.Sub(r.start).Hours() / 24)
}

// Days returns the occupied dates in ascending order. This is the
// system-wide lock acquisition order for inventory rows.
func (r StayRange) Days() []time.Time {
	days := make([]time.Time, 0, r.Nights())
	for d := r.start; d.Before(r.end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (r StayRange) ValidateNotPast(now time.Time) error {
	if r.start.Before(truncateToDate(now)) {
		return ErrStayInPast
	}
	return nil
}

func (r StayRange) Overlaps(other StayRange) bool {
	return r.start.Before(other.end) && other.start.Before(r.end)
}

func (r StayRange) String() string {
	return fmt.Sprintf("[%s,%s)", r.start.Format(time.DateOnly), r.end.Format(time.DateOnly))
}

type Money struct {
	cents int64
}

func NewMoney(cents int64) Money {
	return Money{cents: cents}
}

func (m Money) Cents() int64 { return m.cents }

func (m Money) Mul(n int64) Money {
	return Money{cents: m.cents * n}
}

func (m Money) IsZero() bool { return m.cents == 0 }

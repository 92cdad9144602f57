// Package period models the calendar month used as the tracking period.
//
// A Month is stored and transported as "YYYY-MM" so that natural keys such as
// (user_id, month, goal_id) compare and sort lexically.
package period

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the textual form of a Month.
const Layout = "2006-01"

// ErrInvalidMonth is returned when a month string cannot be parsed.
var ErrInvalidMonth = errors.New("invalid month, expected YYYY-MM")

// Month is a calendar month in UTC.
type Month struct {
	year  int
	month time.Month
}

// Of returns the month containing t (in UTC).
func Of(t time.Time) Month {
	t = t.UTC()
	return Month{year: t.Year(), month: t.Month()}
}

// New builds a Month from its parts.
func New(year int, month time.Month) Month {
	return Of(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

// Parse parses a "YYYY-MM" string.
func Parse(s string) (Month, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Of(t), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Month {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// IsZero reports whether m is the zero Month.
func (m Month) IsZero() bool { return m.year == 0 && m.month == 0 }

// String returns the "YYYY-MM" form.
func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.year, int(m.month))
}

// Start is the first instant of the month.
func (m Month) Start() time.Time {
	return time.Date(m.year, m.month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last second of the month. It is used as the period-end
// timestamp for milestones and projections.
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0).Add(-time.Second)
}

// AddMonths shifts m by n months (n may be negative).
func (m Month) AddMonths(n int) Month {
	return Of(m.Start().AddDate(0, n, 0))
}

// Prev returns the previous month.
func (m Month) Prev() Month { return m.AddMonths(-1) }

// Next returns the following month.
func (m Month) Next() Month { return m.AddMonths(1) }

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool {
	return m.year < o.year || (m.year == o.year && m.month < o.month)
}

// After reports whether m is strictly later than o.
func (m Month) After(o Month) bool { return o.Before(m) }

// Trailing returns the n months immediately preceding m, oldest first.
func (m Month) Trailing(n int) []Month {
	out := make([]Month, 0, n)
	for i := n; i >= 1; i-- {
		out = append(out, m.AddMonths(-i))
	}
	return out
}

// MonthsUntil returns the fractional number of months between from and to,
// using the mean Gregorian month length. Negative when to is before from.
func MonthsUntil(from, to time.Time) float64 {
	const hoursPerMonth = 24 * 30.436875
	return to.Sub(from).Hours() / hoursPerMonth
}

// MarshalText implements encoding.TextMarshaler.
func (m Month) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Empty text is the zero Month.
func (m *Month) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*m = Month{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseOrZero parses s, mapping "" to the zero Month.
func ParseOrZero(s string) (Month, error) {
	if s == "" {
		return Month{}, nil
	}
	return Parse(s)
}

package pricing

import (
	"fmt"
	"strings"
	"time"
)

// DefaultHolidays are the fixed-date public holidays surcharged every year.
var DefaultHolidays = []string{"01-01", "04-30", "05-01", "09-02", "12-25"}

// Calendar answers whether a calendar date is a surcharged holiday.
// Entries are either recurring "MM-DD" or one-off "YYYY-MM-DD" dates.
type Calendar struct {
	recurring map[string]struct{}
	fixed     map[string]struct{}
}

func NewCalendar(entries []string) (*Calendar, error) {
	c := &Calendar{
		recurring: make(map[string]struct{}),
		fixed:     make(map[string]struct{}),
	}
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		switch len(entry) {
		case len("01-02"):
			if _, err := time.Parse("01-02", entry); err != nil {
				return nil, fmt.Errorf("invalid holiday %q: %w", raw, err)
			}
			c.recurring[entry] = struct{}{}
		case len("2006-01-02"):
			if _, err := time.Parse("2006-01-02", entry); err != nil {
				return nil, fmt.Errorf("invalid holiday %q: %w", raw, err)
			}
			c.fixed[entry] = struct{}{}
		default:
			return nil, fmt.Errorf("invalid holiday %q: expected MM-DD or YYYY-MM-DD", raw)
		}
	}
	return c, nil
}

func DefaultCalendar() *Calendar {
	c, err := NewCalendar(DefaultHolidays)
	if err != nil {
		panic(err)
	}
	return c
}

// IsHoliday checks the year/month/day of date as written, ignoring its location.
func (c *Calendar) IsHoliday(date time.Time) bool {
	if c == nil {
		return false
	}
	y, m, d := date.Date()
	if _, ok := c.recurring[fmt.Sprintf("%02d-%02d", m, d)]; ok {
		return true
	}
	_, ok := c.fixed[fmt.Sprintf("%04d-%02d-%02d", y, m, d)]
	return ok
}

// daysBetween counts calendar days from one date to another.
func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

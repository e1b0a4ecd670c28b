// Package calendar builds month grids for the climb calendar.
package calendar

import (
	"fmt"
	"time"
)

// Weekdays are the column headers of a grid, Sunday first.
var Weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Cell is one day of a month grid.
type Cell struct {
	Date   time.Time `json:"date"`
	Day    int       `json:"day"`
	Climbs int       `json:"climbs"`
}

// Month is a grid of weeks. Cells outside the month are nil.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Weeks [][7]*Cell `json:"weeks"`
	Days  []Cell     `json:"-"`
}

// Counter reports climbs per day of month, as climbstore.Store.CountsInMonth does.
type Counter interface {
	CountsInMonth(year int, month time.Month) map[int]int
}

// DaysIn returns the number of days in month.
func DaysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// Build returns the grid for year/month in loc. When counter is non-nil each
// cell carries the number of climbs logged that day.
func Build(year int, month time.Month, loc *time.Location, counter Counter) Month {
	if loc == nil {
		loc = time.Local
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	// Normalise overflowing months (e.g. month 13).
	year, month = first.Year(), first.Month()

	var counts map[int]int
	if counter != nil {
		counts = counter.CountsInMonth(year, month)
	}

	n := DaysIn(year, month, loc)
	m := Month{Year: year, Month: month, Days: make([]Cell, n)}
	for d := 1; d <= n; d++ {
		m.Days[d-1] = Cell{
			Date:   time.Date(year, month, d, 0, 0, 0, 0, loc),
			Day:    d,
			Climbs: counts[d],
		}
	}

	offset := int(first.Weekday())
	rows := (offset + n + 6) / 7
	m.Weeks = make([][7]*Cell, rows)
	for i := range m.Days {
		pos := offset + i
		m.Weeks[pos/7][pos%7] = &m.Days[i]
	}
	return m
}

// Prev returns the year and month before year/month.
func Prev(year int, month time.Month) (int, time.Month) {
	t := time.Date(year, month-1, 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

// Next returns the year and month after year/month.
func Next(year int, month time.Month) (int, time.Month) {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("calendar: invalid month %q: %w", s, err)
	}
	return t.Year(), t.Month(), nil
}

// ParseDay parses "YYYY-MM-DD" as local midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: invalid day %q: %w", s, err)
	}
	return t, nil
}

// ParseDate accepts an RFC 3339 timestamp or a plain "YYYY-MM-DD" day,
// which is read as local midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := ParseDay(s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("calendar: date %q must be RFC 3339 or YYYY-MM-DD", s)
}

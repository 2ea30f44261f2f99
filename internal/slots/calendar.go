package slots

import (
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/clinicbook/internal/bookingform"
)

// ErrMonthOutOfRange is returned for months outside the booking window.
var ErrMonthOutOfRange = errors.New("slots: month outside booking window")

// WindowMonths is how far ahead appointments can be booked.
const WindowMonths = 2

// Day is one cell of the calendar.
type Day struct {
	Date     string `json:"date"`
	Day      int    `json:"day"`
	Weekday  string `json:"weekday"`
	Disabled bool   `json:"disabled"`
}

// Month is one page of the calendar.
type Month struct {
	Year    int        `json:"year"`
	Month   time.Month `json:"month"`
	Label   string     `json:"label"`
	Days    []Day      `json:"days"`
	HasPrev bool       `json:"hasPrev"`
	HasNext bool       `json:"hasNext"`
}

// Calendar decides which dates can be booked: from today up to WindowMonths
// ahead, never in the past and never on a Sunday.
type Calendar struct {
	now func() time.Time
	loc *time.Location
}

// NewCalendar creates a calendar in loc (local time when nil).
func NewCalendar(now func() time.Time, loc *time.Location) *Calendar {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{now: now, loc: loc}
}

// Window returns the first and last bookable dates.
func (c *Calendar) Window() (time.Time, time.Time) {
	n := c.now().In(c.loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc)
	return today, today.AddDate(0, WindowMonths, 0)
}

// Selectable reports whether a date can be booked.
func (c *Calendar) Selectable(date time.Time) bool {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, c.loc)
	start, end := c.Window()
	if d.Before(start) || d.After(end) {
		return false
	}
	return d.Weekday() != time.Sunday
}

// SelectableDate parses a YYYY-MM-DD date and checks it.
func (c *Calendar) SelectableDate(date string) bool {
	d, err := time.ParseInLocation(bookingform.DateLayout, date, c.loc)
	if err != nil {
		return false
	}
	return c.Selectable(d)
}

// Month renders one month of the window. Navigation is limited to the months
// the window overlaps.
func (c *Calendar) Month(year int, month time.Month) (Month, error) {
	start, end := c.Window()
	first := time.Date(year, month, 1, 0, 0, 0, 0, c.loc)
	firstOfStart := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, c.loc)
	firstOfEnd := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, c.loc)
	if first.Before(firstOfStart) || first.After(firstOfEnd) {
		return Month{}, fmt.Errorf("%w: %d-%02d", ErrMonthOutOfRange, year, month)
	}

	out := Month{
		Year:    year,
		Month:   month,
		Label:   first.Format("January 2006"),
		HasPrev: first.After(firstOfStart),
		HasNext: first.Before(firstOfEnd),
	}
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		out.Days = append(out.Days, Day{
			Date:     d.Format(bookingform.DateLayout),
			Day:      d.Day(),
			Weekday:  d.Weekday().String(),
			Disabled: !c.Selectable(d),
		})
	}
	return out, nil
}

// Current renders the month containing today.
func (c *Calendar) Current() Month {
	start, _ := c.Window()
	m, _ := c.Month(start.Year(), start.Month())
	return m
}

package rows

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for logical dates, matching the date_id
// partition column used across all layers.
const DateLayout = "2006-01-02"

// LogicalDate identifies one day's partition of data. It is always a UTC
// calendar date; the time portion is midnight.
type LogicalDate struct {
	t time.Time
}

// ParseDate parses a YYYY-MM-DD string into a LogicalDate.
func ParseDate(s string) (LogicalDate, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return LogicalDate{}, fmt.Errorf("parse logical date %q: %w", s, err)
	}
	return LogicalDate{t: t.UTC()}, nil
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) LogicalDate {
	u := t.UTC()
	return LogicalDate{t: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// Today returns the current UTC date.
func Today() LogicalDate {
	return DateOf(time.Now())
}

// String returns the YYYY-MM-DD form.
func (d LogicalDate) String() string {
	return d.t.Format(DateLayout)
}

// Time returns midnight UTC of the date.
func (d LogicalDate) Time() time.Time {
	return d.t
}

// IsZero reports whether the date is unset.
func (d LogicalDate) IsZero() bool {
	return d.t.IsZero()
}

// Equal reports whether two logical dates identify the same day.
func (d LogicalDate) Equal(o LogicalDate) bool {
	return d.t.Equal(o.t)
}

// AddDays returns the date shifted by n days.
func (d LogicalDate) AddDays(n int) LogicalDate {
	return LogicalDate{t: d.t.AddDate(0, 0, n)}
}

package rows

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-08-29")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got := d.String(); got != "2026-08-29" {
		t.Errorf("String() = %q, want 2026-08-29", got)
	}
	if d.Time() != time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC) {
		t.Errorf("Time() = %v, want midnight UTC", d.Time())
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, s := range []string{"", "2026-13-01", "29-08-2026", "2026/08/29", "garbage"} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q) succeeded, want error", s)
		}
	}
}

func TestDateOfTruncates(t *testing.T) {
	ts := time.Date(2026, 8, 29, 23, 45, 12, 0, time.FixedZone("PST", -8*3600))
	d := DateOf(ts)
	// 23:45 PST is already the next day in UTC.
	if got := d.String(); got != "2026-08-30" {
		t.Errorf("DateOf = %q, want 2026-08-30", got)
	}
}

func TestAddDays(t *testing.T) {
	d, _ := ParseDate("2026-02-28")
	if got := d.AddDays(1).String(); got != "2026-03-01" {
		t.Errorf("AddDays(1) = %q, want 2026-03-01", got)
	}
	if got := d.AddDays(-1).String(); got != "2026-02-27" {
		t.Errorf("AddDays(-1) = %q, want 2026-02-27", got)
	}
	if !d.Equal(d.AddDays(0)) {
		t.Error("AddDays(0) should equal the original date")
	}
}

package editplan

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrBadCallDate reports a call date that is neither epoch seconds nor a
// parseable ISO-8601 timestamp. The input is malformed rather than transient,
// so the enclosing write fails without retrying.
var ErrBadCallDate = errors.New("unparseable call date")

// CalendarDay is a date key for matching a call against a document's dated
// headings. Hours and smaller units are discarded before comparison.
type CalendarDay struct {
	Year  int
	Month time.Month
	Day   int
}

func (d CalendarDay) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Accepted ISO-8601 shapes, tried in order. RFC 3339 covers both the literal
// Z suffix and explicit numeric offsets.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseCallDay normalizes a raw call date to a calendar day. An all-digit
// string is Unix epoch seconds read in the local time zone of the process;
// anything else is ISO-8601 read in its own UTC offset. The two conventions
// disagree when the process does not run in UTC; callers historically rely on
// the local reading for epoch inputs, so both are kept as is.
func ParseCallDay(raw string) (CalendarDay, error) {
	if raw == "" {
		return CalendarDay{}, fmt.Errorf("%w: empty string", ErrBadCallDate)
	}

	if allDigits(raw) {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return CalendarDay{}, fmt.Errorf("%w: %q: %v", ErrBadCallDate, raw, err)
		}
		return dayOf(time.Unix(secs, 0)), nil
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return dayOf(t), nil
		}
	}
	return CalendarDay{}, fmt.Errorf("%w: %q", ErrBadCallDate, raw)
}

func dayOf(t time.Time) CalendarDay {
	y, m, d := t.Date()
	return CalendarDay{Year: y, Month: m, Day: d}
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

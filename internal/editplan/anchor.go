package editplan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fenwick-labs/scrivener/internal/gdoc"
)

// ErrNoMeetingBlock reports that no dated meeting block for the call's day
// was found, or that the matching block has no Attendees line. The condition
// is recoverable: a human creates the block in the document, after which
// resolution reruns against a fresh read. It is never resumed mid-scan.
var ErrNoMeetingBlock = errors.New("no meeting block for call date")

type scanState int

const (
	seekingHeading scanState = iota
	seekingAttendees
)

const attendeesLabel = "attendees:"

// ResolveNotesAnchor scans blocks left to right for the insertion anchor of
// new call notes: the end index of the first paragraph containing an
// "Attendees:" run after the first HEADING_2 whose date chip matches day.
// Headings without a matching chip are scanned past, and the Attendees scan
// runs unbounded to the end of the document rather than stopping at the next
// heading.
func ResolveNotesAnchor(blocks []gdoc.StructuralElement, day CalendarDay) (int64, error) {
	state := seekingHeading

	for _, el := range blocks {
		if el.Paragraph == nil {
			continue
		}

		switch state {
		case seekingHeading:
			if el.Paragraph.Style.NamedStyleType != gdoc.StyleHeading2 {
				continue
			}
			if headingMatchesDay(el.Paragraph, day) {
				state = seekingAttendees
			}
		case seekingAttendees:
			if mentionsAttendees(el.Paragraph) {
				return el.EndIndex, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrNoMeetingBlock, day)
}

func headingMatchesDay(p *gdoc.Paragraph, day CalendarDay) bool {
	for _, el := range p.Elements {
		if el.DateElement == nil {
			continue
		}
		ts := el.DateElement.Properties.Timestamp
		if ts == "" {
			continue
		}
		chipDay, err := ParseCallDay(ts)
		if err != nil {
			continue
		}
		if chipDay == day {
			return true
		}
	}
	return false
}

func mentionsAttendees(p *gdoc.Paragraph) bool {
	for _, el := range p.Elements {
		if el.TextRun == nil {
			continue
		}
		if strings.Contains(strings.ToLower(el.TextRun.Content), attendeesLabel) {
			return true
		}
	}
	return false
}

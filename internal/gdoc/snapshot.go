package gdoc

import (
	"errors"
	"strings"
)

// SectionMarks delimit the standing account snapshot inside a document.
type SectionMarks struct {
	Start string
	End   string
}

// DefaultMarks are the sentinels the structuring prompt instructs the model
// to emit around the snapshot.
var DefaultMarks = SectionMarks{
	Start: "=== ACCOUNT SNAPSHOT ===",
	End:   "=== END SNAPSHOT ===",
}

// ErrTornSection reports a document carrying exactly one of the two snapshot
// sentinels. Editing around a half-delimited section would corrupt the
// document, so the write fails and the document is repaired by hand.
var ErrTornSection = errors.New("snapshot section is missing one of its sentinels")

// ExtractSection returns the snapshot section of flattened document text,
// from the start sentinel through the end sentinel inclusive, or "" when the
// section is not fully present.
func ExtractSection(text string, marks SectionMarks) string {
	start := strings.Index(text, marks.Start)
	if start < 0 {
		return ""
	}
	end := strings.Index(text, marks.End)
	if end < 0 {
		return ""
	}
	stop := end + len(marks.End)
	if stop <= start {
		return ""
	}
	return text[start:stop]
}

// Bounds are flattened-text offsets of the snapshot section. Start is the
// first byte of the start sentinel; End is one past the last byte of the end
// sentinel.
type Bounds struct {
	Start int
	End   int
}

// SectionBounds locates the snapshot section in flattened text. A nil result
// with a nil error means the section is absent (both sentinels missing). A
// document with only one sentinel fails with ErrTornSection.
func SectionBounds(text string, marks SectionMarks) (*Bounds, error) {
	start := strings.Index(text, marks.Start)
	end := strings.Index(text, marks.End)
	switch {
	case start < 0 && end < 0:
		return nil, nil
	case start < 0 || end < 0:
		return nil, ErrTornSection
	}
	return &Bounds{Start: start, End: end + len(marks.End)}, nil
}

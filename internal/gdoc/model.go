package gdoc

import (
	"encoding/json"
	"fmt"
)

// StyleHeading2 is the named paragraph style on dated meeting headings.
const StyleHeading2 = "HEADING_2"

// Document is the raw document shape returned by the docs API. It is decoded
// from the wire JSON rather than the generated client model because date
// smart chips only appear in the raw representation.
type Document struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	Body       Body   `json:"body"`
}

type Body struct {
	Content []StructuralElement `json:"content"`
}

// StructuralElement is one block of the document body. At most one of
// Paragraph or Table is set; section breaks and other block kinds leave both
// nil. Start and end indices share a single character index space covering
// the whole document, monotonically non-decreasing in document order.
type StructuralElement struct {
	StartIndex int64      `json:"startIndex"`
	EndIndex   int64      `json:"endIndex"`
	Paragraph  *Paragraph `json:"paragraph,omitempty"`
	Table      *Table     `json:"table,omitempty"`
}

type Paragraph struct {
	Style    ParagraphStyle     `json:"paragraphStyle"`
	Elements []ParagraphElement `json:"elements"`
}

type ParagraphStyle struct {
	NamedStyleType string `json:"namedStyleType"`
}

// ParagraphElement is one inline run of a paragraph. TextRun carries literal
// text; DateElement carries a date smart chip. Other chip kinds leave both
// nil and are ignored.
type ParagraphElement struct {
	StartIndex  int64        `json:"startIndex"`
	EndIndex    int64        `json:"endIndex"`
	TextRun     *TextRun     `json:"textRun,omitempty"`
	DateElement *DateElement `json:"dateElement,omitempty"`
}

type TextRun struct {
	Content string `json:"content"`
}

type DateElement struct {
	Properties DateElementProperties `json:"dateElementProperties"`
}

type DateElementProperties struct {
	Timestamp string `json:"timestamp"`
}

// Table content is opaque to this package. Tables are never scanned for
// headings and never spliced into.
type Table struct{}

// ParseDocument decodes a raw documents.get response body.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &doc, nil
}

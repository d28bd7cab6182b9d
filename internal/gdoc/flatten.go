package gdoc

import "strings"

// Flatten concatenates every text run of every paragraph in document order.
// Tables and non-text inline runs contribute nothing, so offsets into the
// returned string undercount document indices wherever such content precedes
// them. Offsets line up only for text that no table or chip precedes, which
// holds for the snapshot section at the top of the documents this system
// writes.
func Flatten(doc *Document) string {
	var sb strings.Builder
	for _, el := range doc.Body.Content {
		if el.Paragraph == nil {
			continue
		}
		for _, pe := range el.Paragraph.Elements {
			if pe.TextRun != nil {
				sb.WriteString(pe.TextRun.Content)
			}
		}
	}
	return sb.String()
}

package gdoc

import "testing"

const sampleDocJSON = `{
  "documentId": "doc-123",
  "title": "Acme Corp - Use Case Notes",
  "body": {
    "content": [
      {"endIndex": 1, "sectionBreak": {"sectionStyle": {}}},
      {
        "startIndex": 1, "endIndex": 50,
        "paragraph": {
          "paragraphStyle": {"namedStyleType": "NORMAL_TEXT"},
          "elements": [
            {"startIndex": 1, "endIndex": 50, "textRun": {"content": "=== ACCOUNT SNAPSHOT ===\nStage: Pilot\n", "textStyle": {}}}
          ]
        }
      },
      {
        "startIndex": 50, "endIndex": 53,
        "paragraph": {
          "paragraphStyle": {"namedStyleType": "HEADING_2"},
          "elements": [
            {"startIndex": 50, "endIndex": 51, "dateElement": {"dateElementProperties": {"timestamp": "2023-11-14T00:00:00Z", "dateFormat": "MONTH_DAY_YEAR"}}},
            {"startIndex": 51, "endIndex": 53, "textRun": {"content": " \n"}}
          ]
        }
      },
      {"startIndex": 53, "endIndex": 90, "table": {"rows": 2, "columns": 2}}
    ]
  }
}`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDocJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.DocumentID != "doc-123" {
		t.Errorf("DocumentID = %q, want doc-123", doc.DocumentID)
	}
	if doc.Title != "Acme Corp - Use Case Notes" {
		t.Errorf("Title = %q", doc.Title)
	}
	if len(doc.Body.Content) != 4 {
		t.Fatalf("expected 4 structural elements, got %d", len(doc.Body.Content))
	}

	// Section break: neither paragraph nor table.
	if doc.Body.Content[0].Paragraph != nil || doc.Body.Content[0].Table != nil {
		t.Error("section break should decode with nil Paragraph and Table")
	}

	para := doc.Body.Content[1].Paragraph
	if para == nil {
		t.Fatal("element 1 should be a paragraph")
	}
	if para.Style.NamedStyleType != "NORMAL_TEXT" {
		t.Errorf("style = %q, want NORMAL_TEXT", para.Style.NamedStyleType)
	}

	heading := doc.Body.Content[2].Paragraph
	if heading == nil {
		t.Fatal("element 2 should be a paragraph")
	}
	if heading.Style.NamedStyleType != StyleHeading2 {
		t.Errorf("style = %q, want %s", heading.Style.NamedStyleType, StyleHeading2)
	}
	if len(heading.Elements) != 2 {
		t.Fatalf("expected 2 inline elements in heading, got %d", len(heading.Elements))
	}
	chip := heading.Elements[0].DateElement
	if chip == nil {
		t.Fatal("first heading element should be a date chip")
	}
	if chip.Properties.Timestamp != "2023-11-14T00:00:00Z" {
		t.Errorf("chip timestamp = %q", chip.Properties.Timestamp)
	}

	if doc.Body.Content[3].Table == nil {
		t.Error("element 3 should be a table")
	}
	if doc.Body.Content[3].EndIndex != 90 {
		t.Errorf("table EndIndex = %d, want 90", doc.Body.Content[3].EndIndex)
	}
}

func TestParseDocument_Invalid(t *testing.T) {
	if _, err := ParseDocument([]byte("{not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

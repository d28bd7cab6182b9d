package google

import (
	"fmt"
	"strings"
)

// DocURL returns the canonical edit URL for a document ID.
func DocURL(docID string) string {
	return fmt.Sprintf("https://docs.google.com/document/d/%s/edit", docID)
}

// DocIDFromURL extracts the document ID from a Docs URL of the usual
// /document/d/<id>/edit shape.
func DocIDFromURL(url string) (string, error) {
	_, rest, ok := strings.Cut(url, "/d/")
	if !ok {
		return "", fmt.Errorf("no document id in url %q", url)
	}
	id, _, _ := strings.Cut(rest, "/")
	if id == "" {
		return "", fmt.Errorf("no document id in url %q", url)
	}
	return id, nil
}

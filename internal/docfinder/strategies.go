package docfinder

import (
	"context"
	"fmt"
	"strings"

	"github.com/fenwick-labs/scrivener/internal/gong"
	"github.com/fenwick-labs/scrivener/internal/google"
)

// driveSearcher is the slice of the Drive client the strategies need.
type driveSearcher interface {
	FindFolders(ctx context.Context, namePart string) ([]google.File, error)
	ListDocsInFolder(ctx context.Context, folderID string) ([]google.File, error)
	SearchDocsByText(ctx context.Context, phrase string) ([]google.File, error)
}

// Query carries the call facts the strategies search by.
type Query struct {
	CallID       string
	AccountName  string
	Participants []gong.Participant
}

// Candidate is a document a strategy proposes as the notes destination.
type Candidate struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Folder string `json:"folder,omitempty"`
}

// Strategy is one way of turning a query into candidate documents. A
// strategy that finds nothing returns an empty slice, and the finder moves
// on to the next one.
type Strategy interface {
	Name() string
	Candidates(ctx context.Context, q Query) ([]Candidate, error)
}

// folderNameStrategy matches account folders by name fragment and proposes
// the Google Docs inside them. prefixLen 0 searches the full account name;
// otherwise a lowercased prefix, which catches folders named with a
// different word split than the extracted account name.
type folderNameStrategy struct {
	drive     driveSearcher
	prefixLen int
}

func (s *folderNameStrategy) Name() string {
	if s.prefixLen == 0 {
		return "folder-name"
	}
	return fmt.Sprintf("folder-prefix-%d", s.prefixLen)
}

func (s *folderNameStrategy) Candidates(ctx context.Context, q Query) ([]Candidate, error) {
	pattern := q.AccountName
	if s.prefixLen > 0 {
		pattern = lowerPrefix(q.AccountName, s.prefixLen)
	}
	if pattern == "" {
		return nil, nil
	}

	folders, err := s.drive.FindFolders(ctx, pattern)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, folder := range folders {
		docs, err := s.drive.ListDocsInFolder(ctx, folder.ID)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			out = append(out, Candidate{ID: d.ID, Name: d.Name, Folder: folder.Name})
		}
	}
	return out, nil
}

// emailTextStrategy full-text searches for docs mentioning a customer
// participant's email address. The first participant with any hits wins.
type emailTextStrategy struct {
	drive      driveSearcher
	homeDomain string
}

func (s *emailTextStrategy) Name() string { return "email-fulltext" }

func (s *emailTextStrategy) Candidates(ctx context.Context, q Query) ([]Candidate, error) {
	for _, p := range customerParticipants(q.Participants, s.homeDomain) {
		docs, err := s.drive.SearchDocsByText(ctx, p.Email)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			continue
		}
		out := make([]Candidate, 0, len(docs))
		for _, d := range docs {
			out = append(out, Candidate{ID: d.ID, Name: d.Name})
		}
		return out, nil
	}
	return nil, nil
}

// customerParticipants filters out parties on the home domain, leaving the
// customer-side attendees.
func customerParticipants(parties []gong.Participant, homeDomain string) []gong.Participant {
	var out []gong.Participant
	for _, p := range parties {
		if p.Email == "" {
			continue
		}
		if homeDomain != "" && strings.HasSuffix(p.Email, "@"+homeDomain) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func lowerPrefix(s string, n int) string {
	lower := strings.ToLower(s)
	runes := []rune(lower)
	if len(runes) <= n {
		return lower
	}
	return string(runes[:n])
}

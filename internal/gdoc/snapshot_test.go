package gdoc

import (
	"errors"
	"testing"
)

func TestExtractSection(t *testing.T) {
	marks := DefaultMarks

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "present",
			text: "preamble\n=== ACCOUNT SNAPSHOT ===\nStage: Pilot\n=== END SNAPSHOT ===\nrest",
			want: "=== ACCOUNT SNAPSHOT ===\nStage: Pilot\n=== END SNAPSHOT ===",
		},
		{
			name: "at start of text",
			text: "=== ACCOUNT SNAPSHOT ===\n=== END SNAPSHOT ===",
			want: "=== ACCOUNT SNAPSHOT ===\n=== END SNAPSHOT ===",
		},
		{
			name: "absent",
			text: "meeting notes only",
			want: "",
		},
		{
			name: "start sentinel only",
			text: "=== ACCOUNT SNAPSHOT ===\nStage: Pilot\n",
			want: "",
		},
		{
			name: "end sentinel only",
			text: "Stage: Pilot\n=== END SNAPSHOT ===\n",
			want: "",
		},
		{
			name: "end before start",
			text: "=== END SNAPSHOT ===\n=== ACCOUNT SNAPSHOT ===\n",
			want: "",
		},
		{
			name: "empty text",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSection(tt.text, marks); got != tt.want {
				t.Errorf("ExtractSection = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSectionBounds_Present(t *testing.T) {
	text := "ab=== ACCOUNT SNAPSHOT ===xyz=== END SNAPSHOT ===tail"
	b, err := SectionBounds(text, DefaultMarks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b == nil {
		t.Fatal("expected bounds, got nil")
	}
	if b.Start != 2 {
		t.Errorf("Start = %d, want 2", b.Start)
	}
	wantEnd := len(text) - len("tail")
	if b.End != wantEnd {
		t.Errorf("End = %d, want %d", b.End, wantEnd)
	}
	if text[b.Start:b.End] != "=== ACCOUNT SNAPSHOT ===xyz=== END SNAPSHOT ===" {
		t.Errorf("bounds slice = %q", text[b.Start:b.End])
	}
}

func TestSectionBounds_Absent(t *testing.T) {
	b, err := SectionBounds("no sentinels here", DefaultMarks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != nil {
		t.Errorf("expected nil bounds, got %+v", b)
	}
}

func TestSectionBounds_Torn(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"start only", "=== ACCOUNT SNAPSHOT ===\ncontent"},
		{"end only", "content\n=== END SNAPSHOT ==="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SectionBounds(tt.text, DefaultMarks)
			if !errors.Is(err, ErrTornSection) {
				t.Errorf("expected ErrTornSection, got %v", err)
			}
		})
	}
}

func TestSectionBounds_FirstOccurrenceWins(t *testing.T) {
	text := "=== ACCOUNT SNAPSHOT ===a=== END SNAPSHOT ===b=== END SNAPSHOT ==="
	b, err := SectionBounds(text, DefaultMarks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantEnd := len("=== ACCOUNT SNAPSHOT ===a=== END SNAPSHOT ===")
	if b.End != wantEnd {
		t.Errorf("End = %d, want %d (first end sentinel)", b.End, wantEnd)
	}
}

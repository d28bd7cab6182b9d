package google

import "testing"

func TestDocURL(t *testing.T) {
	got := DocURL("abc123")
	want := "https://docs.google.com/document/d/abc123/edit"
	if got != want {
		t.Errorf("DocURL() = %q, want %q", got, want)
	}
}

func TestDocIDFromURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "canonical edit url",
			url:  "https://docs.google.com/document/d/abc123/edit",
			want: "abc123",
		},
		{
			name: "no trailing segment",
			url:  "https://docs.google.com/document/d/abc123",
			want: "abc123",
		},
		{
			name: "sharing suffix",
			url:  "https://docs.google.com/document/d/abc123/edit?usp=sharing",
			want: "abc123",
		},
		{
			name:    "not a docs url",
			url:     "https://example.com/whatever",
			wantErr: true,
		},
		{
			name:    "empty id",
			url:     "https://docs.google.com/document/d//edit",
			wantErr: true,
		},
		{
			name:    "empty string",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DocIDFromURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DocIDFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

package google

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func newDriveTestClient(t *testing.T, handler http.HandlerFunc) *DriveClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithoutAuthentication(),
		option.WithEndpoint(server.URL),
	)
	if err != nil {
		t.Fatalf("create drive service: %v", err)
	}
	return NewDriveClient(svc, discardLogger())
}

func TestFindFolders(t *testing.T) {
	var gotQuery url.Values
	c := newDriveTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"files": [{"id": "f1", "name": "Acme Corp"}, {"id": "f2", "name": "Acme Corp Archive"}]}`)
	})

	files, err := c.FindFolders(context.Background(), "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 folders, got %d", len(files))
	}
	if files[0].ID != "f1" || files[0].Name != "Acme Corp" {
		t.Errorf("unexpected first folder %+v", files[0])
	}

	wantQ := "name contains 'acme' and mimeType='application/vnd.google-apps.folder'"
	if got := gotQuery.Get("q"); got != wantQ {
		t.Errorf("query = %q, want %q", got, wantQ)
	}
	if gotQuery.Get("corpora") != "allDrives" {
		t.Errorf("corpora = %q, want allDrives", gotQuery.Get("corpora"))
	}
	if gotQuery.Get("supportsAllDrives") != "true" {
		t.Error("supportsAllDrives should be set")
	}
	if gotQuery.Get("includeItemsFromAllDrives") != "true" {
		t.Error("includeItemsFromAllDrives should be set")
	}
	if gotQuery.Get("fields") != "files(id, name)" {
		t.Errorf("fields = %q", gotQuery.Get("fields"))
	}
}

func TestListDocsInFolder(t *testing.T) {
	var gotQuery url.Values
	c := newDriveTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"files": [{"id": "d1", "name": "Acme Notes"}]}`)
	})

	files, err := c.ListDocsInFolder(context.Background(), "folder-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].ID != "d1" {
		t.Fatalf("unexpected files %+v", files)
	}

	wantQ := "'folder-1' in parents and mimeType='application/vnd.google-apps.document'"
	if got := gotQuery.Get("q"); got != wantQ {
		t.Errorf("query = %q, want %q", got, wantQ)
	}
	if gotQuery.Get("pageSize") != "10" {
		t.Errorf("pageSize = %q, want 10", gotQuery.Get("pageSize"))
	}
}

func TestSearchDocsByText_EscapesQuotes(t *testing.T) {
	var gotQuery url.Values
	c := newDriveTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"files": []}`)
	})

	if _, err := c.SearchDocsByText(context.Background(), "o'brien@acme.io"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantQ := `fullText contains 'o\'brien@acme.io' and mimeType='application/vnd.google-apps.document'`
	if got := gotQuery.Get("q"); got != wantQ {
		t.Errorf("query = %q, want %q", got, wantQ)
	}
}

func TestDriveSearch_APIError(t *testing.T) {
	c := newDriveTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error": {"code": 403, "message": "insufficient permissions"}}`)
	})

	_, err := c.FindFolders(context.Background(), "acme")
	if err == nil {
		t.Fatal("expected error")
	}
}

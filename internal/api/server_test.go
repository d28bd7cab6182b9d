package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fenwick-labs/scrivener/internal/google"
	"github.com/fenwick-labs/scrivener/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeRuns struct {
	byID   map[uuid.UUID]*store.Run
	byCall map[string][]*store.Run
	recent []*store.Run
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{
		byID:   make(map[uuid.UUID]*store.Run),
		byCall: make(map[string][]*store.Run),
	}
}

func (f *fakeRuns) add(run *store.Run) {
	f.byID[run.ID] = run
	f.byCall[run.CallID] = append(f.byCall[run.CallID], run)
	f.recent = append(f.recent, run)
}

func (f *fakeRuns) GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error) {
	if run, ok := f.byID[id]; ok {
		return run, nil
	}
	return nil, store.ErrRunNotFound
}

func (f *fakeRuns) ListRunsByCallID(ctx context.Context, callID string) ([]*store.Run, error) {
	return f.byCall[callID], nil
}

func (f *fakeRuns) ListRecentRuns(ctx context.Context, limit int) ([]*store.Run, error) {
	if limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

type fakeEngine struct {
	run     *store.Run
	created bool
	err     error

	executed chan uuid.UUID
	docURLs  chan string
	sections chan uuid.UUID
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		executed: make(chan uuid.UUID, 1),
		docURLs:  make(chan string, 1),
		sections: make(chan uuid.UUID, 1),
	}
}

func (f *fakeEngine) Trigger(ctx context.Context, callID string) (*store.Run, bool, error) {
	return f.run, f.created, f.err
}

func (f *fakeEngine) Execute(ctx context.Context, runID uuid.UUID) error {
	f.executed <- runID
	return nil
}

func (f *fakeEngine) SignalDocURL(ctx context.Context, runID uuid.UUID, docURL string) error {
	f.docURLs <- docURL
	return nil
}

func (f *fakeEngine) SignalSectionReady(ctx context.Context, runID uuid.UUID) error {
	f.sections <- runID
	return nil
}

const testToken = "test-token"

func newTestServer(runs *fakeRuns, engine *fakeEngine) *Server {
	return NewServer(8750, testToken, runs, engine, discardLogger())
}

func testRun(state store.State) *store.Run {
	return &store.Run{
		ID:        uuid.New(),
		CallID:    "8675309",
		State:     state,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func doRequest(srv *Server, method, path, body string, authed bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func waitFor[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for engine call")
		panic("unreachable")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(newFakeRuns(), newFakeEngine())

	w := doRequest(srv, "GET", "/health", "", false)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestGetRun(t *testing.T) {
	runs := newFakeRuns()
	run := testRun(store.StateStructuring)
	runs.add(run)
	srv := newTestServer(runs, newFakeEngine())

	w := doRequest(srv, "GET", "/api/v1/runs/"+run.ID.String(), "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body runResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.ID != run.ID.String() {
		t.Errorf("expected id %s, got %s", run.ID, body.ID)
	}
	if body.CallID != "8675309" {
		t.Errorf("expected call_id 8675309, got %q", body.CallID)
	}
	if body.State != string(store.StateStructuring) {
		t.Errorf("expected state structuring, got %q", body.State)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	srv := newTestServer(newFakeRuns(), newFakeEngine())

	w := doRequest(srv, "GET", "/api/v1/runs/"+uuid.NewString(), "", false)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetRun_InvalidID(t *testing.T) {
	srv := newTestServer(newFakeRuns(), newFakeEngine())

	w := doRequest(srv, "GET", "/api/v1/runs/not-a-uuid", "", false)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestListRuns_FiltersByCallID(t *testing.T) {
	runs := newFakeRuns()
	runs.add(testRun(store.StateCompleted))
	runs.add(testRun(store.StateFailed))
	other := testRun(store.StatePending)
	other.CallID = "another-call"
	runs.add(other)
	srv := newTestServer(runs, newFakeEngine())

	w := doRequest(srv, "GET", "/api/v1/runs?call_id=8675309", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Runs  []runResponse `json:"runs"`
		Count int           `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Count != 2 {
		t.Fatalf("expected 2 runs, got %d", body.Count)
	}
	for _, r := range body.Runs {
		if r.CallID != "8675309" {
			t.Errorf("unexpected call_id in filtered list: %q", r.CallID)
		}
	}
}

func TestListRuns_RejectsBadLimit(t *testing.T) {
	srv := newTestServer(newFakeRuns(), newFakeEngine())

	w := doRequest(srv, "GET", "/api/v1/runs?limit=zero", "", false)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCreateRun_StartsExecution(t *testing.T) {
	engine := newFakeEngine()
	engine.run = testRun(store.StatePending)
	engine.created = true
	srv := newTestServer(newFakeRuns(), engine)

	w := doRequest(srv, "POST", "/api/v1/runs", `{"call_id":"8675309"}`, true)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	got := waitFor(t, engine.executed)
	if got != engine.run.ID {
		t.Errorf("executed wrong run: %s", got)
	}
}

func TestCreateRun_JoinsExistingRun(t *testing.T) {
	engine := newFakeEngine()
	engine.run = testRun(store.StateStructuring)
	engine.created = false
	srv := newTestServer(newFakeRuns(), engine)

	w := doRequest(srv, "POST", "/api/v1/runs", `{"call_id":"8675309"}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	select {
	case <-engine.executed:
		t.Fatal("joined run should not start a second execution")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCreateRun_RequiresAuth(t *testing.T) {
	srv := newTestServer(newFakeRuns(), newFakeEngine())

	w := doRequest(srv, "POST", "/api/v1/runs", `{"call_id":"8675309"}`, false)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCreateRun_RequiresCallID(t *testing.T) {
	srv := newTestServer(newFakeRuns(), newFakeEngine())

	w := doRequest(srv, "POST", "/api/v1/runs", `{}`, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSignalDocURL(t *testing.T) {
	runs := newFakeRuns()
	run := testRun(store.StateWaitingDocURL)
	runs.add(run)
	engine := newFakeEngine()
	srv := newTestServer(runs, engine)

	body := `{"doc_url":"` + google.DocURL("doc123") + `"}`
	w := doRequest(srv, "POST", "/api/v1/runs/"+run.ID.String()+"/signals/doc-url", body, true)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	got := waitFor(t, engine.docURLs)
	if got != google.DocURL("doc123") {
		t.Errorf("engine got wrong doc url: %q", got)
	}
}

func TestSignalDocURL_RejectsBadURL(t *testing.T) {
	runs := newFakeRuns()
	run := testRun(store.StateWaitingDocURL)
	runs.add(run)
	srv := newTestServer(runs, newFakeEngine())

	w := doRequest(srv, "POST", "/api/v1/runs/"+run.ID.String()+"/signals/doc-url", `{"doc_url":"https://example.com/nope"}`, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSignalDocURL_WrongState(t *testing.T) {
	runs := newFakeRuns()
	run := testRun(store.StateStructuring)
	runs.add(run)
	srv := newTestServer(runs, newFakeEngine())

	body := `{"doc_url":"` + google.DocURL("doc123") + `"}`
	w := doRequest(srv, "POST", "/api/v1/runs/"+run.ID.String()+"/signals/doc-url", body, true)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestSignalSectionReady(t *testing.T) {
	runs := newFakeRuns()
	run := testRun(store.StateWaitingSection)
	runs.add(run)
	engine := newFakeEngine()
	srv := newTestServer(runs, engine)

	w := doRequest(srv, "POST", "/api/v1/runs/"+run.ID.String()+"/signals/section-ready", "", true)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	got := waitFor(t, engine.sections)
	if got != run.ID {
		t.Errorf("engine got wrong run: %s", got)
	}
}

func TestSignalSectionReady_WrongState(t *testing.T) {
	runs := newFakeRuns()
	run := testRun(store.StateWaitingDocURL)
	runs.add(run)
	srv := newTestServer(runs, newFakeEngine())

	w := doRequest(srv, "POST", "/api/v1/runs/"+run.ID.String()+"/signals/section-ready", "", true)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(newFakeRuns(), newFakeEngine())

	w := doRequest(srv, "GET", "/nonexistent", "", false)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

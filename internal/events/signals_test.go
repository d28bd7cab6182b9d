package events

import (
	"encoding/json"
	"testing"
)

func TestCallRecordedParsing(t *testing.T) {
	raw := `{"call_id": "8675309"}`

	var trigger CallRecorded
	if err := json.Unmarshal([]byte(raw), &trigger); err != nil {
		t.Fatalf("failed to parse CallRecorded: %v", err)
	}
	if trigger.CallID != "8675309" {
		t.Errorf("expected call_id '8675309', got '%s'", trigger.CallID)
	}
}

func TestDocURLSignalParsing(t *testing.T) {
	raw := `{
		"run_id": "3f1a2c9e-0000-4000-8000-000000000001",
		"doc_url": "https://docs.google.com/document/d/abc123/edit"
	}`

	var signal DocURLSignal
	if err := json.Unmarshal([]byte(raw), &signal); err != nil {
		t.Fatalf("failed to parse DocURLSignal: %v", err)
	}
	if signal.RunID != "3f1a2c9e-0000-4000-8000-000000000001" {
		t.Errorf("unexpected run_id '%s'", signal.RunID)
	}
	if signal.DocURL != "https://docs.google.com/document/d/abc123/edit" {
		t.Errorf("unexpected doc_url '%s'", signal.DocURL)
	}
}

func TestRunStatusOmitsEmptyReason(t *testing.T) {
	data, err := json.Marshal(RunStatus{
		RunID:  "run-1",
		CallID: "8675309",
		State:  "completed",
	})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if string(data) != `{"run_id":"run-1","call_id":"8675309","state":"completed"}` {
		t.Errorf("unexpected payload: %s", data)
	}
}

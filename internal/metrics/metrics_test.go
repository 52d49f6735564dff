package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestSummaryCountsRequests(t *testing.T) {
	m := New()
	m.ObserveRequest("list_users", "GET", 200, 0.01)
	m.ObserveRequest("list_users", "GET", 200, 0.02)
	m.ObserveRequest("get_project", "GET", 404, 0.01)
	m.ObserveRequest("create_task", "POST", 500, 0.2)
	m.IncRequestError("list_users", "timeout")
	m.IncRequestError("get_project", "timeout")
	m.IncRequestError("get_project", "breaker_open")

	s, err := m.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.API.TotalRequests != 4 {
		t.Errorf("TotalRequests = %v, want 4", s.API.TotalRequests)
	}
	if s.API.ErrorRate != 0.5 {
		t.Errorf("ErrorRate = %v, want 0.5", s.API.ErrorRate)
	}
	if s.API.P50Latency <= 0 || s.API.P99Latency < s.API.P50Latency {
		t.Errorf("unexpected latencies p50=%v p99=%v", s.API.P50Latency, s.API.P99Latency)
	}
	if s.Errors["timeout"] != 2 || s.Errors["breaker_open"] != 1 {
		t.Errorf("unexpected errors %v", s.Errors)
	}
}

func TestSummarySessionEvents(t *testing.T) {
	m := New()
	m.IncSessionEvent("start")
	m.IncSessionEvent("end")
	m.IncSessionEvent("end")
	m.IncSessionEvent("decode_failure")

	s, err := m.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if s.Session.Starts != 1 || s.Session.Ends != 2 || s.Session.DecodeFailures != 1 {
		t.Errorf("unexpected session info %+v", s.Session)
	}
}

func TestStoreCollector(t *testing.T) {
	m := New()
	m.RegisterStoreCollector(func() (int, int, int) { return 1, 0, 1 })

	s, err := m.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if s.Store.OpenConns != 1 || s.Store.Idle != 1 || s.Store.InUse != 0 {
		t.Errorf("unexpected store info %+v", s.Store)
	}
}

func TestEmptySummary(t *testing.T) {
	m := New()
	s, err := m.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if s.API.TotalRequests != 0 || s.API.ErrorRate != 0 || s.API.P95Latency != 0 {
		t.Errorf("expected zero summary, got %+v", s.API)
	}
}

func TestWriteJSON(t *testing.T) {
	m := New()
	m.ObserveRequest("login", "POST", 200, 0.05)

	var buf bytes.Buffer
	if err := m.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	api, ok := decoded["api"].(map[string]any)
	if !ok || api["totalRequests"] != float64(1) {
		t.Errorf("unexpected api section %v", decoded["api"])
	}
}

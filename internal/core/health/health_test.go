package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubReporter struct {
	ready bool
	parts []int32
}

func (s stubReporter) Readiness() (bool, []int32) { return s.ready, s.parts }

func TestLiveness(t *testing.T) {
	rr := httptest.NewRecorder()
	Liveness()(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Fatalf("body=%q", rr.Body.String())
	}
}

func TestReadiness_Ready(t *testing.T) {
	rr := httptest.NewRecorder()
	Readiness(stubReporter{ready: true, parts: []int32{0, 2}})(rr,
		httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	var out struct {
		Status     string  `json:"status"`
		Partitions []int32 `json:"partitions"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "ready" || len(out.Partitions) != 2 {
		t.Fatalf("resp=%+v", out)
	}
}

func TestReadiness_NotReady(t *testing.T) {
	rr := httptest.NewRecorder()
	Readiness(stubReporter{})(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rr.Code)
	}
}

func TestAlwaysReady(t *testing.T) {
	ready, parts := AlwaysReady{}.Readiness()
	if !ready || parts != nil {
		t.Fatalf("AlwaysReady=%v,%v", ready, parts)
	}
}

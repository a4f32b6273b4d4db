package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogging_AssignsRequestID(t *testing.T) {
	h := Logging(authTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/map-insights", nil))

	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("generated request id not echoed to the client")
	}
}

func TestLogging_KeepsIncomingRequestID(t *testing.T) {
	h := Logging(authTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/map-insights", nil)
	r.Header.Set("X-Request-ID", "upstream-id")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)

	// an upstream-supplied id is reused, not replaced
	if got := rr.Header().Get("X-Request-ID"); got != "" {
		t.Fatalf("response overrode incoming request id with %q", got)
	}
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	var reached bool
	h := CORS()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		reached = true
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/map-insights", nil))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d want 204", rr.Code)
	}
	if reached {
		t.Fatal("preflight must not reach the handler")
	}
	if rr.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("preflight missing allow-methods header")
	}
}

func TestCORS_PassesRequestsThrough(t *testing.T) {
	h := CORS()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/map-insights", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("allow-origin header missing on plain request")
	}
}

func TestRecover_ConvertsPanicTo500(t *testing.T) {
	h := Recover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/map-insights", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", rr.Code)
	}
}

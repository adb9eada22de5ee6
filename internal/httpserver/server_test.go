package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthAndNotFound(t *testing.T) {
	s := newTestServer(t)

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("health: got %d", rr.Code)
	}

	rr = doReq(t, s, http.MethodGet, "/nope", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown route: got %d, want 404", rr.Code)
	}
	var res struct {
		Error string `json:"error"`
	}
	decode(t, rr, &res)
	if res.Error != "not_found" {
		t.Fatalf("404 envelope: %s", rr.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/posts", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight: got %d, want 204", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("preflight missing CORS headers")
	}
}

func TestIPLimiter(t *testing.T) {
	l := newIPLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.allow("10.0.0.1") {
			t.Fatalf("request %d denied within burst", i)
		}
	}
	if l.allow("10.0.0.1") {
		t.Fatalf("burst-exceeding request allowed")
	}
	// Other addresses have their own bucket.
	if !l.allow("10.0.0.2") {
		t.Fatalf("fresh address denied")
	}
}

package targetsrv

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	srv := New(cfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode, body
}

func TestHealthzAndOK(t *testing.T) {
	ts := newTestServer(t, Config{})

	status, body := getJSON(t, ts.URL+"/healthz")
	if status != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz: %d %v", status, body)
	}

	status, body = getJSON(t, ts.URL+"/ok")
	if status != http.StatusOK || body["success"] != true {
		t.Errorf("ok: %d %v", status, body)
	}
}

func TestSlowEndpointDelays(t *testing.T) {
	ts := newTestServer(t, Config{SlowDelay: 50 * time.Millisecond})

	start := time.Now()
	status, body := getJSON(t, ts.URL+"/slow")
	elapsed := time.Since(start)

	if status != http.StatusOK || body["success"] != true {
		t.Errorf("slow: %d %v", status, body)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("responded in %v, before the configured delay", elapsed)
	}
}

func TestFlakyEndpointFailureRate(t *testing.T) {
	ts := newTestServer(t, Config{FlakyFailureRate: 0.5, Seed: 42})

	failures := 0
	for i := 0; i < 100; i++ {
		status, _ := getJSON(t, ts.URL+"/flaky")
		switch status {
		case http.StatusOK:
		case http.StatusInternalServerError:
			failures++
		default:
			t.Fatalf("unexpected status %d", status)
		}
	}
	if failures < 30 || failures > 70 {
		t.Errorf("failure count %d far from configured 50%% rate", failures)
	}
}

func TestFlakyEndpointZeroRateNeverFails(t *testing.T) {
	ts := newTestServer(t, Config{FlakyFailureRate: 0})
	for i := 0; i < 20; i++ {
		if status, _ := getJSON(t, ts.URL+"/flaky"); status != http.StatusOK {
			t.Fatalf("request %d failed with rate 0", i)
		}
	}
}

func TestEchoRoundTrip(t *testing.T) {
	ts := newTestServer(t, Config{})

	payload := map[string]any{"id": float64(7), "name": "probe"}
	raw, _ := json.Marshal(payload)
	resp, err := http.Post(ts.URL+"/echo", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Success bool           `json:"success"`
		Echo    map[string]any `json:"echo"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Echo["id"] != float64(7) || body.Echo["name"] != "probe" {
		t.Errorf("echo mangled: %+v", body)
	}
}

func TestEchoRejectsInvalidJSON(t *testing.T) {
	ts := newTestServer(t, Config{})
	resp, err := http.Post(ts.URL+"/echo", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

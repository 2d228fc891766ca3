package httpbench

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"
)

type fakeDoer struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	respond  func(req *http.Request) (*http.Response, error)
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()
	return f.respond(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func textResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestExecuteStatusSuccessWithoutClassifier(t *testing.T) {
	tests := []struct {
		status int
		wantOK bool
	}{
		{200, true},
		{204, true},
		{299, true},
		{300, false},
		{404, false},
		{500, false},
	}
	for _, tt := range tests {
		doer := &fakeDoer{respond: func(*http.Request) (*http.Response, error) {
			return textResponse(tt.status, "x"), nil
		}}
		exec := &Executor{Client: doer, Timeout: time.Second}
		out := exec.Execute(context.Background(), Target{Name: "t", URL: "http://x/", Method: "GET"}, 0)
		if out.OK != tt.wantOK {
			t.Errorf("status %d: ok=%v, want %v", tt.status, out.OK, tt.wantOK)
		}
		if out.Duration < 0 {
			t.Errorf("status %d: negative duration", tt.status)
		}
	}
}

func TestExecuteNetworkFailureIsRecordedNotThrown(t *testing.T) {
	doer := &fakeDoer{respond: func(*http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("connection refused")
	}}
	exec := &Executor{Client: doer, Timeout: time.Second}
	out := exec.Execute(context.Background(), Target{URL: "http://down/"}, 0)
	if out.OK {
		t.Error("network failure should not be ok")
	}
}

func TestExecuteSetsJSONContentTypeForBody(t *testing.T) {
	doer := &fakeDoer{respond: func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{}`), nil
	}}
	exec := &Executor{Client: doer, Timeout: time.Second}
	target := Target{URL: "http://x/", Method: "POST", Body: StaticBody{Value: map[string]int{"n": 1}}}
	exec.Execute(context.Background(), target, 0)
	req := doer.requests[0]
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}
	if doer.bodies[0] != `{"n":1}` {
		t.Errorf("body: got %q", doer.bodies[0])
	}
}

func TestExecuteKeepsCallerContentType(t *testing.T) {
	doer := &fakeDoer{respond: func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{}`), nil
	}}
	exec := &Executor{Client: doer, Timeout: time.Second}
	target := Target{
		URL:     "http://x/",
		Method:  "POST",
		Headers: map[string]string{"content-type": "application/vnd.custom+json"},
		Body:    StaticBody{Value: 1},
	}
	exec.Execute(context.Background(), target, 0)
	if ct := doer.requests[0].Header.Get("Content-Type"); ct != "application/vnd.custom+json" {
		t.Errorf("caller content type overwritten: got %q", ct)
	}
}

func TestExecuteBodyFactoryReceivesRequestIndex(t *testing.T) {
	doer := &fakeDoer{respond: func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{}`), nil
	}}
	exec := &Executor{Client: doer, Timeout: time.Second}
	target := Target{
		URL:    "http://x/",
		Method: "POST",
		Body:   FactoryBody(func(i int) any { return map[string]int{"seq": i} }),
	}
	exec.Execute(context.Background(), target, 7)
	if doer.bodies[0] != `{"seq":7}` {
		t.Errorf("factory body: got %q", doer.bodies[0])
	}
}

func TestExecuteClassifierDecidesSuccess(t *testing.T) {
	doer := &fakeDoer{respond: func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"status":"degraded"}`), nil
	}}
	classifier := func(status int, body any) bool {
		m, ok := body.(map[string]any)
		return ok && m["status"] == "ok"
	}
	exec := &Executor{Client: doer, Timeout: time.Second, Classifier: classifier}
	out := exec.Execute(context.Background(), Target{URL: "http://x/"}, 0)
	if out.OK {
		t.Error("classifier rejected the body but outcome is ok")
	}
}

func TestExecuteClassifierGetsNilBodyForNonJSON(t *testing.T) {
	doer := &fakeDoer{respond: func(*http.Request) (*http.Response, error) {
		return textResponse(200, `{"status":"ok"}`), nil
	}}
	var gotBody any = "sentinel"
	exec := &Executor{Client: doer, Timeout: time.Second, Classifier: func(status int, body any) bool {
		gotBody = body
		return true
	}}
	exec.Execute(context.Background(), Target{URL: "http://x/"}, 0)
	if gotBody != nil {
		t.Errorf("non-JSON body should classify as nil, got %v", gotBody)
	}
}

func TestExecuteClassifierPanicIsFailure(t *testing.T) {
	doer := &fakeDoer{respond: func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{}`), nil
	}}
	exec := &Executor{Client: doer, Timeout: time.Second, Classifier: func(int, any) bool {
		panic("classifier bug")
	}}
	out := exec.Execute(context.Background(), Target{URL: "http://x/"}, 0)
	if out.OK {
		t.Error("panicking classifier must yield a failed outcome")
	}
}

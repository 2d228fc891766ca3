package httpbench

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// Doer issues one HTTP request. *http.Client satisfies it; tests inject a
// deterministic implementation.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SuccessClassifier decides whether a response counts as successful beyond
// the raw status code. body is the decoded JSON response body, or nil when
// the response content type is not JSON.
type SuccessClassifier func(status int, body any) bool

// Outcome is the result of a single request, consumed immediately by the
// dispatcher.
type Outcome struct {
	OK       bool
	Duration time.Duration
}

// Executor issues one request per call with a bounded timeout. It never
// returns an error: network failures, timeouts and classifier panics all
// become failed outcomes absorbed into the statistics.
type Executor struct {
	Client     Doer
	Timeout    time.Duration
	Classifier SuccessClassifier
}

// Execute runs one request for the given zero-based request index. The
// index feeds the target's body factory when one is configured.
func (e *Executor) Execute(ctx context.Context, target Target, requestIndex int) Outcome {
	timeout := e.Timeout
	if timeout < time.Millisecond {
		timeout = time.Millisecond
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	var bodyReader io.Reader
	hasBody := false
	if target.Body != nil {
		payload := target.Body.payload(requestIndex)
		raw, err := json.Marshal(payload)
		if err != nil {
			return Outcome{OK: false, Duration: time.Since(start)}
		}
		bodyReader = bytes.NewReader(raw)
		hasBody = true
	}

	method := target.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(reqCtx, method, target.URL, bodyReader)
	if err != nil {
		return Outcome{OK: false, Duration: time.Since(start)}
	}
	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}
	if hasBody && !hasContentType(target.Headers) {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return Outcome{OK: false, Duration: time.Since(start)}
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if e.Classifier == nil {
		ok := resp.StatusCode >= 200 && resp.StatusCode < 300
		return Outcome{OK: ok, Duration: time.Since(start)}
	}

	var decoded any
	if isJSONContentType(resp.Header.Get("Content-Type")) {
		raw, readErr := io.ReadAll(resp.Body)
		if readErr == nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, &decoded); err != nil {
				decoded = nil
			}
		}
	}
	ok := classify(e.Classifier, resp.StatusCode, decoded)
	return Outcome{OK: ok, Duration: time.Since(start)}
}

// classify treats a panicking classifier as a failed outcome rather than
// letting it propagate into the worker pool.
func classify(fn SuccessClassifier, status int, body any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return fn(status, body)
}

func hasContentType(headers map[string]string) bool {
	for k := range headers {
		if strings.EqualFold(k, "Content-Type") {
			return true
		}
	}
	return false
}

func isJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "application/json") || strings.Contains(ct, "+json")
}

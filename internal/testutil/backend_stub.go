package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/config"
)

// StubCall records one request received by the backend stub.
type StubCall struct {
	Method        string
	Path          string
	Body          []byte
	Authorization string
}

type stubResponse struct {
	status  int
	payload interface{}
}

// BackendStub is an httptest-based fake of the backend API. Routes are
// registered per method+path and respond with JSON; unknown routes return
// a 404 failure envelope. Every received request is recorded for
// assertions.
type BackendStub struct {
	Server *httptest.Server

	mu        sync.Mutex
	responses map[string]stubResponse
	calls     []StubCall
}

// NewBackendStub starts the stub server and registers its shutdown with
// the test's cleanup.
func NewBackendStub(t *testing.T) *BackendStub {
	t.Helper()

	stub := &BackendStub{
		responses: make(map[string]stubResponse),
	}
	stub.Server = httptest.NewServer(http.HandlerFunc(stub.handle))
	t.Cleanup(stub.Server.Close)
	return stub
}

func (b *BackendStub) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.calls = append(b.calls, StubCall{
		Method:        r.Method,
		Path:          r.URL.Path,
		Body:          body,
		Authorization: r.Header.Get("Authorization"),
	})
	resp, ok := b.responses[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "Endpoint not found",
		})
		return
	}

	w.WriteHeader(resp.status)
	json.NewEncoder(w).Encode(resp.payload)
}

// On registers a raw JSON payload for a method and path.
func (b *BackendStub) On(method, path string, status int, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses[method+" "+path] = stubResponse{status: status, payload: payload}
}

// OnSuccess registers a 200 success envelope carrying data.
func (b *BackendStub) OnSuccess(method, path string, data interface{}) {
	b.On(method, path, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// OnFailure registers a failure envelope with the given status and message.
func (b *BackendStub) OnFailure(method, path string, status int, message string) {
	b.On(method, path, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// Calls returns a snapshot of every request received so far.
func (b *BackendStub) Calls() []StubCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]StubCall, len(b.calls))
	copy(out, b.calls)
	return out
}

// LastCall returns the most recent request matching method and path.
func (b *BackendStub) LastCall(method, path string) (StubCall, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.calls) - 1; i >= 0; i-- {
		if b.calls[i].Method == method && b.calls[i].Path == path {
			return b.calls[i], true
		}
	}
	return StubCall{}, false
}

// CallCount returns how many requests matched method and path.
func (b *BackendStub) CallCount(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// ClientConfig returns a backend config pointing at the stub.
func (b *BackendStub) ClientConfig() *config.BackendConfig {
	return &config.BackendConfig{
		BaseURL: b.Server.URL,
		Timeout: 5 * time.Second,
	}
}

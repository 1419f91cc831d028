// Copyright 2024-2026 Aiku AI

package simplepad

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// apiCall records one request hitting the fake backend.
type apiCall struct {
	Path  string
	Token string
	Body  string
}

// fakePad is a test helper wrapping an httptest.Server that simulates the
// SimplePad HTTP API. It records calls and serves canned envelope responses.
type fakePad struct {
	Server *httptest.Server

	mu    sync.Mutex
	calls []apiCall

	// Responses maps URI path to the data payload returned inside a
	// successful envelope.
	Responses map[string]any
	// FailWith maps URI path to a non-zero envelope code and message.
	FailWith map[string]BaseResponse
}

func newFakePad() *fakePad {
	f := &fakePad{
		Responses: make(map[string]any),
		FailWith:  make(map[string]BaseResponse),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handler))
	return f
}

func (f *fakePad) Close() {
	f.Server.Close()
}

func (f *fakePad) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, apiCall{
		Path:  r.URL.Path,
		Token: r.URL.Query().Get("token"),
		Body:  string(body),
	})
	f.mu.Unlock()

	if resp, ok := f.FailWith[r.URL.Path]; ok {
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	envelope := BaseResponse{Code: 200, Msg: "success"}
	if data, ok := f.Responses[r.URL.Path]; ok {
		encoded, _ := json.Marshal(data)
		envelope.Data = encoded
	}
	_ = json.NewEncoder(w).Encode(envelope)
}

func (f *fakePad) Calls() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]apiCall, len(f.calls))
	copy(cp, f.calls)
	return cp
}

func (f *fakePad) CalledPath(path string) bool {
	for _, c := range f.Calls() {
		if strings.Contains(c.Path, path) {
			return true
		}
	}
	return false
}

// LastBody returns the body of the most recent call to path, or "".
func (f *fakePad) LastBody(path string) string {
	calls := f.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if strings.Contains(calls[i].Path, path) {
			return calls[i].Body
		}
	}
	return ""
}

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, "test-token", zerolog.Nop())
}

// Copyright 2024-2026 Aiku AI

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aiku/simplepad-adapter/pkg/simplepad"
)

// fakeBackend simulates the SimplePad HTTP API. Responses can be swapped
// while the adapter is running, which login flow tests rely on.
type fakeBackend struct {
	Server *httptest.Server

	mu        sync.Mutex
	calls     []string
	responses map[string]any
	failWith  map[string]simplepad.BaseResponse
}

func newFakeBackend() *fakeBackend {
	f := &fakeBackend{
		responses: make(map[string]any),
		failWith:  make(map[string]simplepad.BaseResponse),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handler))
	return f
}

func (f *fakeBackend) Close() {
	f.Server.Close()
}

func (f *fakeBackend) handler(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, r.URL.Path)
	fail, failing := f.failWith[r.URL.Path]
	data, hasData := f.responses[r.URL.Path]
	f.mu.Unlock()

	if failing {
		_ = json.NewEncoder(w).Encode(fail)
		return
	}
	envelope := simplepad.BaseResponse{Code: 200, Msg: "success"}
	if hasData {
		encoded, _ := json.Marshal(data)
		envelope.Data = encoded
	}
	_ = json.NewEncoder(w).Encode(envelope)
}

func (f *fakeBackend) setResponse(path string, data any) {
	f.mu.Lock()
	f.responses[path] = data
	f.mu.Unlock()
}

func (f *fakeBackend) setFailure(path string, resp simplepad.BaseResponse) {
	f.mu.Lock()
	f.failWith[path] = resp
	f.mu.Unlock()
}

func (f *fakeBackend) clearFailure(path string) {
	f.mu.Lock()
	delete(f.failWith, path)
	f.mu.Unlock()
}

func (f *fakeBackend) calledPath(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.Contains(c, path) {
			return true
		}
	}
	return false
}

// fakeSocket is an in-memory wsConn. Tests push frames into it and inspect
// what the adapter wrote.
type fakeSocket struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes []string
}

var errSocketClosed = errors.New("fake socket closed")

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		frames: make(chan []byte, 32),
		closed: make(chan struct{}),
	}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	select {
	case data := <-s.frames:
		return websocket.TextMessage, data, nil
	case <-s.closed:
		return 0, nil, errSocketClosed
	}
}

func (s *fakeSocket) WriteMessage(_ int, data []byte) error {
	select {
	case <-s.closed:
		return errSocketClosed
	default:
	}
	s.mu.Lock()
	s.writes = append(s.writes, string(data))
	s.mu.Unlock()
	return nil
}

func (s *fakeSocket) Close() error {
	s.once.Do(func() {
		close(s.closed)
	})
	return nil
}

func (s *fakeSocket) pushText(text string) {
	s.frames <- []byte(text)
}

func (s *fakeSocket) pushReport(data any) {
	encoded, _ := json.Marshal(data)
	envelope, _ := json.Marshal(simplepad.PushEnvelope{Type: 1, Data: encoded})
	s.frames <- envelope
}

func (s *fakeSocket) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

// waitWrites blocks until the socket has seen at least n writes.
func (s *fakeSocket) waitWrites(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.writeCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("socket received %d writes, want at least %d", s.writeCount(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

// fakeDialer hands out fakeSockets and counts dials.
type fakeDialer struct {
	mu    sync.Mutex
	socks []*fakeSocket
}

func (d *fakeDialer) dial(string) (wsConn, error) {
	s := newFakeSocket()
	d.mu.Lock()
	d.socks = append(d.socks, s)
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.socks)
}

// socket blocks until the n-th (1-based) connection exists and returns it.
func (d *fakeDialer) socket(t *testing.T, n int) *fakeSocket {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		d.mu.Lock()
		if len(d.socks) >= n {
			s := d.socks[n-1]
			d.mu.Unlock()
			return s
		}
		d.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("connection %d was never dialed", n)
		}
		time.Sleep(time.Millisecond)
	}
}

type testEnv struct {
	t       *testing.T
	backend *fakeBackend
	dialer  *fakeDialer
	sink    *ChannelSink
	adapter *Adapter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend := newFakeBackend()
	t.Cleanup(backend.Close)

	backend.setResponse("/api/v1/profile/getProfile", simplepad.User{
		UserName: "wxid_self",
		NickName: "Self",
	})
	backend.setResponse("/api/v1/contact/initContact", simplepad.InitContactResponse{})

	// Set explicitly instead of going through PostProcess, which reads
	// SIMPLEPAD_* environment variables that other tests mutate.
	// MaxMissedHeartbeats zero disables the force-close here.
	cfg := &Config{
		Endpoint:          backend.Server.URL,
		Token:             "test-token",
		DataDir:           t.TempDir(),
		HeartbeatInterval: 30 * time.Millisecond,
		ReconnectDelay:    10 * time.Millisecond,
		ScanPollInterval:  10 * time.Millisecond,
		EventBuffer:       64,
	}

	sink := NewChannelSink(64, zerolog.Nop())
	a := New(cfg, sink, zerolog.Nop())
	dialer := &fakeDialer{}
	a.dialWS = dialer.dial

	return &testEnv{
		t:       t,
		backend: backend,
		dialer:  dialer,
		sink:    sink,
		adapter: a,
	}
}

// start runs the full login and sync flow and waits for the push channel.
func (e *testEnv) start() {
	e.t.Helper()
	if err := e.adapter.Start(context.Background()); err != nil {
		e.t.Fatalf("start: %v", err)
	}
	e.t.Cleanup(e.adapter.Stop)
	select {
	case <-e.adapter.Ready():
	case <-time.After(5 * time.Second):
		e.t.Fatal("push channel never became ready")
	}
}

// waitEvent drains the sink until an event of type T arrives.
func waitEvent[T Event](t *testing.T, sink *ChannelSink) T {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case evt := <-sink.Events():
			if typed, ok := evt.(T); ok {
				return typed
			}
		case <-deadline:
			var zero T
			t.Fatalf("no %T event arrived", zero)
			return zero
		}
	}
}

// expectNoEvent asserts that the sink stays quiet for the given window.
func expectNoEvent(t *testing.T, sink *ChannelSink, window time.Duration) {
	t.Helper()
	select {
	case evt := <-sink.Events():
		t.Fatalf("unexpected %s event: %#v", evt.EventType(), evt)
	case <-time.After(window):
	}
}

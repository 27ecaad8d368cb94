// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/zalun/karaoke-engine/internal/playback"
	"github.com/zalun/karaoke-engine/internal/services"
)

// MockResolver is a test double for [services.Resolver]. URLs maps media ids
// to stream URLs; unknown ids get a synthetic URL. Errs wins over URLs.
type MockResolver struct {
	mu    sync.Mutex
	calls []string

	URLs map[string]string
	Errs map[string]error
}

func (m *MockResolver) Resolve(_ context.Context, mediaID string) (*services.ResolvedStream, error) {
	m.mu.Lock()
	m.calls = append(m.calls, mediaID)
	url, ok := m.URLs[mediaID]
	err := m.Errs[mediaID]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		url = "https://cdn.example.com/stream/" + mediaID
	}
	return &services.ResolvedStream{URL: url, ExpiresIn: 21600}, nil
}

// Calls returns a snapshot of the resolved media ids, in call order.
func (m *MockResolver) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockBackend is a test double for [playback.MediaBackend]. It records every
// call and lets tests feed telemetry through Emit.
type MockBackend struct {
	mu      sync.Mutex
	loads   []playback.Source
	plays   int
	pauses  int
	seeks   []float64
	unloads int

	LoadErr error

	events chan playback.BackendEvent
}

func NewMockBackend() *MockBackend {
	return &MockBackend{events: make(chan playback.BackendEvent, 16)}
}

func (b *MockBackend) Load(_ context.Context, src playback.Source) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.LoadErr != nil {
		return b.LoadErr
	}
	b.loads = append(b.loads, src)
	return nil
}

func (b *MockBackend) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plays++
	return nil
}

func (b *MockBackend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pauses++
	return nil
}

func (b *MockBackend) SeekTo(seconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seeks = append(b.seeks, seconds)
	return nil
}

func (b *MockBackend) SetVolume(float64) error { return nil }

func (b *MockBackend) SetMuted(bool) error { return nil }

func (b *MockBackend) Unload() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unloads++
	return nil
}

func (b *MockBackend) Events() <-chan playback.BackendEvent { return b.events }

// Emit feeds one telemetry event to whoever consumes Events.
func (b *MockBackend) Emit(ev playback.BackendEvent) { b.events <- ev }

// Loads returns a snapshot of the sources loaded so far.
func (b *MockBackend) Loads() []playback.Source {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]playback.Source(nil), b.loads...)
}

// Plays returns the number of play calls.
func (b *MockBackend) Plays() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.plays
}

// Unloads returns the number of unload calls.
func (b *MockBackend) Unloads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unloads
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

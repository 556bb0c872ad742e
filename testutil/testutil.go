// Package testutil provides fakes of lumin's remote collaborators for tests.
package testutil

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Recorded is a request seen by a fake server.
type Recorded struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Backend is a scripted fake of the backend and the webhook. Routes are
// "METHOD /path" where a path segment of "*" matches anything.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	order    []string
	requests []Recorded
}

// NewBackend starts a fake server that is closed when the test ends.
// Unrouted requests answer 404 with a failure envelope.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{routes: make(map[string]http.HandlerFunc)}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(strings.NewReader(string(body)))

	b.mu.Lock()
	b.requests = append(b.requests, Recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	var handler http.HandlerFunc
	for _, route := range b.order {
		if matchRoute(route, r.Method, r.URL.Path) {
			handler = b.routes[route]
			break
		}
	}
	b.mu.Unlock()

	if handler == nil {
		WriteJSON(w, http.StatusNotFound, Failure("not found"))
		return
	}
	handler(w, r)
}

// Handle registers or replaces the handler of a route.
func (b *Backend) Handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + path
	if _, exists := b.routes[key]; !exists {
		b.order = append(b.order, key)
	}
	b.routes[key] = h
}

// Respond answers a route with a fixed status and JSON body.
func (b *Backend) Respond(method, path string, status int, body interface{}) {
	b.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, body)
	})
}

// OK answers a route with a success envelope around data.
func (b *Backend) OK(method, path string, data interface{}) {
	b.Respond(method, path, http.StatusOK, Success(data))
}

// Requests returns every request received so far.
func (b *Backend) Requests() []Recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Recorded, len(b.requests))
	copy(out, b.requests)
	return out
}

// Count returns how many requests matched the route.
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if matchRoute(method+" "+path, r.Method, r.Path) {
			n++
		}
	}
	return n
}

// WaitFor polls until at least n requests matched the route.
func (b *Backend) WaitFor(t *testing.T, method, path string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return b.Count(method, path) >= n
	}, 5*time.Second, 5*time.Millisecond, "waiting for %d x %s %s", n, method, path)
}

func matchRoute(route, method, path string) bool {
	parts := strings.SplitN(route, " ", 2)
	if len(parts) != 2 || parts[0] != method {
		return false
	}
	want := strings.Split(strings.Trim(parts[1], "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != "*" && want[i] != got[i] {
			return false
		}
	}
	return true
}

// Success builds a success envelope.
func Success(data interface{}) map[string]interface{} {
	return map[string]interface{}{"success": true, "data": data}
}

// Failure builds a failure envelope.
func Failure(msg string) map[string]interface{} {
	return map[string]interface{}{"success": false, "error": msg}
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ClosedURL returns an http URL on which nothing is listening, so every
// request to it is refused.
func ClosedURL(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "http://" + addr
}

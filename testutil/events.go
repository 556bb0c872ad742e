package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// Message is the JSON frame exchanged on the event channel.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp"`
}

// EventServer is a fake real-time event channel.
type EventServer struct {
	*httptest.Server

	upgrader websocket.Upgrader
	mu       sync.Mutex
	conns    []*websocket.Conn
	accepted int
	received []Message
	reject   bool
}

// NewEventServer starts a websocket server that is closed when the test ends.
func NewEventServer(t *testing.T) *EventServer {
	t.Helper()

	s := &EventServer{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(func() {
		s.DropAll()
		s.Close()
	})
	return s
}

func (s *EventServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reject := s.reject
	s.mu.Unlock()
	if reject {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.accepted++
	s.mu.Unlock()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		s.mu.Lock()
		s.received = append(s.received, msg)
		s.mu.Unlock()
	}
}

// URL returns the ws:// address of the server.
func (s *EventServer) URL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// Send pushes an event to every connected client.
func (s *EventServer) Send(t *testing.T, eventType string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.WriteJSON(Message{Type: eventType, Payload: data, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)})
	}
}

// DropAll closes every connection without a close handshake.
func (s *EventServer) DropAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}

// Reject makes subsequent connection attempts fail.
func (s *EventServer) Reject(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = reject
}

// Accepted returns how many connections were upgraded.
func (s *EventServer) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Connected returns the number of open connections.
func (s *EventServer) Connected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Received returns the messages clients sent.
func (s *EventServer) Received() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.received))
	copy(out, s.received)
	return out
}

// Package events is the client side of the real-time event channel. The
// channel is optional: every caller must keep working when it is down.
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event names pushed by the backend.
const (
	EventAnalysisProgress = "analysis:progress"
	EventAnalysisFeedback = "analysis:feedback"
	EventCoachingMetrics  = "coaching:metrics"
	EventPosterProgress   = "poster:progress"
)

// Defaults for reconnection.
const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 2 * time.Second
)

// Message is one JSON text frame on the channel.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp"`
}

// Handler receives the payload of an event.
type Handler func(payload json.RawMessage)

// Options configures a Channel.
type Options struct {
	URL                  string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	Dialer               *websocket.Dialer
	Header               http.Header
	Logger               *logrus.Entry
}

type subscription struct {
	id uint64
	fn Handler
}

// Channel maintains a websocket connection and dispatches events to
// handlers. Delivery is at-least-once; duplicates are not filtered.
type Channel struct {
	url         string
	maxAttempts int
	delay       time.Duration
	dialer      *websocket.Dialer
	header      http.Header
	logger      *logrus.Entry
	clientID    string

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string][]subscription
	nextID   uint64
	cancel   context.CancelFunc
	done     chan struct{}

	writeMu sync.Mutex
}

// New creates a disconnected Channel.
func New(opts Options) *Channel {
	if opts.MaxReconnectAttempts < 0 {
		opts.MaxReconnectAttempts = 0
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	header := opts.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	clientID := uuid.NewString()
	header.Set("X-Client-ID", clientID)

	return &Channel{
		url:         opts.URL,
		maxAttempts: opts.MaxReconnectAttempts,
		delay:       opts.ReconnectDelay,
		dialer:      opts.Dialer,
		header:      header,
		logger:      opts.Logger,
		clientID:    clientID,
		handlers:    make(map[string][]subscription),
	}
}

// ClientID identifies this client to the server.
func (c *Channel) ClientID() string { return c.clientID }

// Connect starts the connection loop in the background. It returns
// immediately; a second call while the loop runs is a no-op.
func (c *Channel) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		select {
		case <-c.done:
		default:
			c.logger.Debug("Event channel already running")
			return
		}
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(loopCtx, c.done)
}

// Disconnect stops the loop and closes the connection. No reconnect follows.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the connection loop has exited, either because of
// Disconnect, context cancellation, or exhausted reconnect attempts.
func (c *Channel) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Connected reports whether a connection is currently open.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// On registers a handler for an event. The returned func removes it.
func (c *Channel) On(event string, h Handler) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.handlers[event] = append(c.handlers[event], subscription{id: id, fn: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			subs := c.handlers[event]
			for i, s := range subs {
				if s.id == id {
					c.handlers[event] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
			if len(c.handlers[event]) == 0 {
				delete(c.handlers, event)
			}
		})
	}
}

// Off removes every handler of an event.
func (c *Channel) Off(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, event)
}

// Emit sends an event to the server. When no connection is open the event
// is dropped.
func (c *Channel) Emit(event string, payload interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		c.logger.WithField("event", event).Debug("Event channel not connected, dropping event")
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := Message{Type: event, Payload: data, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (c *Channel) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	retries := 0
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
		if err == nil {
			retries = 0
			c.setConn(conn)
			c.logger.WithField("url", c.url).Info("Event channel connected")

			// Closing the connection is the only way to unblock a pending read.
			stop := make(chan struct{})
			go func() {
				select {
				case <-ctx.Done():
					_ = conn.Close()
				case <-stop:
				}
			}()
			c.readLoop(conn)
			close(stop)
			c.setConn(nil)
			_ = conn.Close()
			if ctx.Err() != nil {
				return
			}
			c.logger.Info("Event channel disconnected")
		} else {
			if ctx.Err() != nil {
				return
			}
			c.logger.WithError(err).Debug("Event channel connection failed")
		}

		if retries >= c.maxAttempts {
			c.logger.WithField("attempts", retries).Warn("Event channel connection failed after max attempts")
			return
		}
		retries++

		timer := time.NewTimer(c.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *Channel) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.WithError(err).Debug("Skipping malformed event")
			continue
		}
		c.dispatch(msg)
	}
}

// dispatch runs handlers on the reader goroutine in registration order.
func (c *Channel) dispatch(msg Message) {
	c.mu.Lock()
	subs := append([]subscription(nil), c.handlers[msg.Type]...)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(msg.Payload)
	}
}

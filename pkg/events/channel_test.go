package events

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/grovetools/lumin/logging"
	"github.com/grovetools/lumin/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChannel(url string, attempts int, delay time.Duration) *Channel {
	return New(Options{
		URL:                  url,
		MaxReconnectAttempts: attempts,
		ReconnectDelay:       delay,
		Logger:               logging.NewTestLogger(io.Discard),
	})
}

func TestDispatchInArrivalOrder(t *testing.T) {
	srv := testutil.NewEventServer(t)
	ch := newChannel(srv.URL(), 5, 10*time.Millisecond)
	defer ch.Disconnect()

	got := make(chan float64, 10)
	ch.On(EventAnalysisProgress, func(p json.RawMessage) {
		var body struct {
			Progress float64 `json:"progress"`
		}
		_ = json.Unmarshal(p, &body)
		got <- body.Progress
	})

	ch.Connect(context.Background())
	require.Eventually(t, ch.Connected, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return srv.Connected() == 1 }, 2*time.Second, 5*time.Millisecond)

	for _, p := range []float64{10, 20, 30} {
		srv.Send(t, EventAnalysisProgress, map[string]interface{}{"sessionId": "s", "progress": p})
	}
	for _, want := range []float64{10, 20, 30} {
		select {
		case p := <-got:
			assert.Equal(t, want, p)
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	srv := testutil.NewEventServer(t)
	ch := newChannel(srv.URL(), 5, 10*time.Millisecond)
	defer ch.Disconnect()

	first := make(chan struct{}, 10)
	second := make(chan struct{}, 10)
	unsubscribe := ch.On(EventAnalysisFeedback, func(json.RawMessage) { first <- struct{}{} })
	ch.On(EventAnalysisFeedback, func(json.RawMessage) { second <- struct{}{} })

	ch.Connect(context.Background())
	require.Eventually(t, func() bool { return srv.Connected() == 1 }, 2*time.Second, 5*time.Millisecond)

	unsubscribe()
	unsubscribe()
	srv.Send(t, EventAnalysisFeedback, map[string]string{"agentType": "plot"})

	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("remaining handler not called")
	}
	assert.Len(t, first, 0)

	ch.Off(EventAnalysisFeedback)
	srv.Send(t, EventAnalysisFeedback, map[string]string{"agentType": "plot"})
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, second, 0)
}

func TestReconnectAfterDrop(t *testing.T) {
	srv := testutil.NewEventServer(t)
	ch := newChannel(srv.URL(), 5, 10*time.Millisecond)
	defer ch.Disconnect()

	ch.Connect(context.Background())
	require.Eventually(t, func() bool { return srv.Accepted() == 1 }, 2*time.Second, 5*time.Millisecond)

	srv.DropAll()
	require.Eventually(t, func() bool { return srv.Accepted() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, ch.Connected, 2*time.Second, 5*time.Millisecond)
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	ch := newChannel("ws"+testutil.ClosedURL(t)[len("http"):], 2, 5*time.Millisecond)

	ch.Connect(context.Background())
	done := make(chan struct{})
	go func() {
		ch.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("channel kept retrying past the attempt limit")
	}
	assert.False(t, ch.Connected())
}

func TestIntentionalDisconnectDoesNotReconnect(t *testing.T) {
	srv := testutil.NewEventServer(t)
	ch := newChannel(srv.URL(), 5, 10*time.Millisecond)

	ch.Connect(context.Background())
	require.Eventually(t, func() bool { return srv.Accepted() == 1 }, 2*time.Second, 5*time.Millisecond)

	ch.Disconnect()
	assert.False(t, ch.Connected())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, srv.Accepted())
}

func TestEmit(t *testing.T) {
	srv := testutil.NewEventServer(t)
	ch := newChannel(srv.URL(), 5, 10*time.Millisecond)
	defer ch.Disconnect()

	// Not connected yet: dropped without error.
	require.NoError(t, ch.Emit("coaching:join", map[string]string{"sessionId": "s"}))

	ch.Connect(context.Background())
	require.Eventually(t, ch.Connected, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, ch.Emit("coaching:join", map[string]string{"sessionId": "s"}))

	require.Eventually(t, func() bool { return len(srv.Received()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "coaching:join", srv.Received()[0].Type)
}

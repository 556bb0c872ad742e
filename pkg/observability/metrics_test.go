package observability

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/pkg/resilience"
	"github.com/grovetools/lumin/pkg/transport"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("submit_frame", transport.OutcomeNetworkUnavailable, 10*time.Millisecond)
	m.ObserveRequest("submit_frame", transport.OutcomeNetworkUnavailable, 20*time.Millisecond)
	m.ObserveRequest("submit_frame", transport.OutcomeSuccess, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("submit_frame", transport.OutcomeNetworkUnavailable.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("submit_frame", transport.OutcomeSuccess.String())))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
}

func TestModeAndFrames(t *testing.T) {
	m := New()
	m.ModeTransition(models.ModuleCoaching, resilience.Live, resilience.Demo)
	m.FrameCaptured()
	m.FrameCaptured()
	m.FrameSkipped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.modeTransitions.WithLabelValues("coaching", "demo")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesCaptured))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesSkipped))
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.FrameCaptured()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.framesCaptured))
}

func TestHandler(t *testing.T) {
	m := New()
	m.FrameCaptured()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lumin_frames_captured_total 1")
}

func TestServerLifecycle(t *testing.T) {
	m := New()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := NewServer(ln.Addr().String(), m, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, string(body), "lumin_frames_skipped_total")

	cancel()
	assert.NoError(t, <-done)
}

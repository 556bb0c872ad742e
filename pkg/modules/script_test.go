package modules

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/pkg/events"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/pkg/resilience"
	"github.com/grovetools/lumin/pkg/simulator"
	"github.com/grovetools/lumin/pkg/store"
	"github.com/grovetools/lumin/pkg/transport"
	"github.com/grovetools/lumin/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notices struct {
	mu   sync.Mutex
	msgs []models.Module
}

func (n *notices) notify(m models.Module, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, m)
}

func (n *notices) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

type modeRecorder struct {
	mu          sync.Mutex
	transitions []string
}

func (r *modeRecorder) ModeTransition(m models.Module, from, to resilience.Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, m.String()+":"+to.String())
}

func (r *modeRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.transitions...)
}

func gatewayFor(url string) *transport.Gateway {
	return transport.New(transport.Options{BackendURL: url, WebhookURL: url, Timeout: 2 * time.Second})
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestScriptRejectsUnsupportedFiles(t *testing.T) {
	backend := testutil.NewBackend(t)
	st := store.New()
	c := NewScript(ScriptOptions{Gateway: gatewayFor(backend.URL), Store: st.Script})

	for _, name := range []string{"", "notes.docx", "script", "draft.txt.bak"} {
		_, err := c.Submit(context.Background(), name, strings.NewReader("x"))
		require.Error(t, err, name)
		assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err), name)
	}
	assert.Empty(t, backend.Requests())

	for _, name := range []string{"draft.txt", "Draft.PDF", "dir/scene.fountain"} {
		assert.NoError(t, c.ValidateFilename(name), name)
	}
}

func TestScriptUploadFailureRunsDemo(t *testing.T) {
	st := store.New()
	n := &notices{}
	rec := &modeRecorder{}
	c := NewScript(ScriptOptions{
		Gateway:          gatewayFor(testutil.ClosedURL(t)),
		Store:            st.Script,
		Simulator:        simulator.New(1),
		FeedbackInterval: 10 * time.Millisecond,
		Hooks:            Hooks{Notify: n.notify, Recorder: rec},
	})

	sess, err := c.Submit(context.Background(), "draft.txt", strings.NewReader("INT. HOUSE - DAY"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusAnalyzing, sess.Status)
	assert.True(t, strings.HasPrefix(sess.ID, "demo-"))
	assert.Equal(t, "draft.txt", sess.Filename)
	assert.Equal(t, resilience.Demo, c.Mode())
	assert.Equal(t, 1, n.count())
	assert.Equal(t, []string{"script:demo"}, rec.all())

	final, err := c.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, sess.ID, final.ID)
	assert.Equal(t, models.StatusCompleted, final.Status)
	assert.Equal(t, 100.0, final.Progress)
	require.Len(t, final.Agents, 4)
	for i, want := range models.AgentTypes() {
		assert.Equal(t, want, final.Agents[i].AgentType)
	}
	assert.Len(t, st.Script.History(), 1)
}

func TestScriptProgressIsMonotonic(t *testing.T) {
	st := store.New()
	updates := st.Subscribe()
	defer st.Unsubscribe(updates)

	c := NewScript(ScriptOptions{
		Gateway:          gatewayFor(testutil.ClosedURL(t)),
		Store:            st.Script,
		FeedbackInterval: time.Millisecond,
	})
	_, err := c.Submit(context.Background(), "draft.txt", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = c.Wait(waitCtx(t))
	require.NoError(t, err)

	last := 0.0
	for {
		select {
		case u := <-updates:
			if u.Module != models.ModuleScript || u.Type == store.UpdateUpload || u.SessionID == "" {
				continue
			}
			snap := u.Payload.(models.ScriptAnalysis)
			assert.GreaterOrEqual(t, snap.Progress, last)
			last = snap.Progress
		default:
			assert.Equal(t, 100.0, last)
			return
		}
	}
}

func TestScriptUploadProgress(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Handle(http.MethodPost, "/script/upload", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(80 * time.Millisecond)
		testutil.WriteJSON(w, http.StatusOK, testutil.Success(map[string]string{"sessionId": "sess-1"}))
	})
	backend.OK(http.MethodPost, "/analyze-script", map[string]string{})

	st := store.New()
	updates := st.Subscribe()
	defer st.Unsubscribe(updates)

	c := NewScript(ScriptOptions{
		Gateway:    gatewayFor(backend.URL),
		Store:      st.Script,
		UploadTick: 5 * time.Millisecond,
		DemoGrace:  time.Hour,
	})
	defer c.Cancel()

	sess, err := c.Submit(context.Background(), "draft.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)

	var seen []float64
	for len(updates) > 0 {
		u := <-updates
		if u.Type == store.UpdateUpload {
			seen = append(seen, u.Payload.(float64))
		}
	}
	require.NotEmpty(t, seen)
	for i, p := range seen {
		assert.LessOrEqual(t, p, 90.0)
		if i > 0 {
			assert.GreaterOrEqual(t, p, seen[i-1])
		}
	}
	p, uploading := st.Script.UploadProgress()
	assert.False(t, uploading)
	assert.Equal(t, 100.0, p)
}

func TestScriptLiveResultsFromEvents(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.OK(http.MethodPost, "/script/upload", map[string]string{"sessionId": "sess-1"})
	backend.OK(http.MethodPost, "/analyze-script", map[string]string{})

	srv := testutil.NewEventServer(t)
	ch := events.New(events.Options{URL: srv.URL(), ReconnectDelay: 10 * time.Millisecond})
	ch.Connect(context.Background())
	defer ch.Disconnect()
	require.Eventually(t, ch.Connected, 2*time.Second, 5*time.Millisecond)

	st := store.New()
	c := NewScript(ScriptOptions{
		Gateway:   gatewayFor(backend.URL),
		Events:    ch,
		Store:     st.Script,
		DemoGrace: 5 * time.Second,
	})
	defer c.Cancel()

	sess, err := c.Submit(context.Background(), "draft.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)
	assert.Equal(t, resilience.Live, c.Mode())

	// Events of another session are ignored.
	srv.Send(t, events.EventAnalysisFeedback, map[string]interface{}{"sessionId": "other", "agentType": "plot", "score": 10})
	srv.Send(t, events.EventAnalysisFeedback, map[string]interface{}{"sessionId": "sess-1", "agentType": "dialogue", "score": 81, "feedback": "ok"})
	srv.Send(t, events.EventAnalysisProgress, map[string]interface{}{"sessionId": "sess-1", "progress": 40})
	srv.Send(t, events.EventAnalysisProgress, map[string]interface{}{"sessionId": "sess-1", "progress": 100})

	final, err := c.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, final.Status)
	require.Len(t, final.Agents, 1)
	assert.Equal(t, models.AgentDialogue, final.Agents[0].AgentType)
	assert.Equal(t, 81.0, final.Agents[0].Score)
	assert.Equal(t, resilience.Live, c.Mode())
}

func TestScriptSilentBackendFallsBackAfterGrace(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.OK(http.MethodPost, "/script/upload", map[string]string{"sessionId": "sess-1"})
	backend.OK(http.MethodPost, "/analyze-script", map[string]string{})

	st := store.New()
	c := NewScript(ScriptOptions{
		Gateway:          gatewayFor(backend.URL),
		Store:            st.Script,
		DemoGrace:        20 * time.Millisecond,
		FeedbackInterval: time.Millisecond,
	})

	sess, err := c.Submit(context.Background(), "draft.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)

	final, err := c.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "sess-1", final.ID)
	assert.Len(t, final.Agents, 4)
	assert.Equal(t, resilience.Demo, c.Mode())
}

func TestScriptWebhookFailureRunsDemo(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.OK(http.MethodPost, "/script/upload", map[string]string{"sessionId": "sess-1"})
	backend.Respond(http.MethodPost, "/analyze-script", http.StatusBadGateway, testutil.Failure("workflow down"))

	st := store.New()
	c := NewScript(ScriptOptions{Gateway: gatewayFor(backend.URL), Store: st.Script, FeedbackInterval: time.Millisecond})

	sess, err := c.Submit(context.Background(), "draft.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, models.IsDemoID(sess.ID))
	final, err := c.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Len(t, final.Agents, 4)
}

func TestScriptRemoteErrorNotCountedIsReported(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Respond(http.MethodPost, "/script/upload", http.StatusUnprocessableEntity, testutil.Failure("unsupported encoding"))

	st := store.New()
	c := NewScript(ScriptOptions{Gateway: gatewayFor(backend.URL), Store: st.Script, Count: resilience.CountNetworkOnly})

	sess, err := c.Submit(context.Background(), "draft.txt", strings.NewReader("x"))
	require.Error(t, err)
	assert.True(t, errors.IsRemote(err))
	assert.Equal(t, models.StatusError, sess.Status)
	assert.Contains(t, sess.Error, "unsupported encoding")
	assert.Equal(t, resilience.Live, c.Mode())
}

func TestScriptCancelStopsEmission(t *testing.T) {
	st := store.New()
	c := NewScript(ScriptOptions{
		Gateway:          gatewayFor(testutil.ClosedURL(t)),
		Store:            st.Script,
		FeedbackInterval: time.Hour,
	})

	_, err := c.Submit(context.Background(), "draft.txt", strings.NewReader("x"))
	require.NoError(t, err)
	c.Cancel()

	cur, _ := st.Script.Current()
	n := len(cur.Agents)
	assert.LessOrEqual(t, n, 1)
	time.Sleep(30 * time.Millisecond)
	cur, _ = st.Script.Current()
	assert.Len(t, cur.Agents, n)
	assert.Equal(t, models.StatusAnalyzing, cur.Status)
}

func TestScriptResubmitReplacesSession(t *testing.T) {
	st := store.New()
	c := NewScript(ScriptOptions{
		Gateway:          gatewayFor(testutil.ClosedURL(t)),
		Store:            st.Script,
		FeedbackInterval: 20 * time.Millisecond,
	})

	first, err := c.Submit(context.Background(), "one.txt", strings.NewReader("x"))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := c.Submit(context.Background(), "two.txt", strings.NewReader("x"))
	require.NoError(t, err)

	final, err := c.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, second.ID, final.ID)
	assert.Equal(t, "two.txt", final.Filename)
	assert.Len(t, final.Agents, 4)
	for _, h := range st.Script.History() {
		assert.NotEqual(t, first.ID, h.ID)
	}
}

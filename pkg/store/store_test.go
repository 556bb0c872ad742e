package store

import (
	"math"
	"testing"

	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptProgressMonotonicAndClipped(t *testing.T) {
	s := New()
	s.Script.Create("draft.txt", "demo-1")

	tests := []struct {
		in       float64
		accepted bool
		want     float64
	}{
		{25, true, 25},
		{10, false, 25},
		{-5, false, 25},
		{150, true, 100},
		{math.NaN(), false, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.accepted, s.Script.UpdateProgress("demo-1", tt.in), "progress %v", tt.in)
		cur, _ := s.Script.Current()
		assert.Equal(t, tt.want, cur.Progress)
	}
}

func TestScriptNoSessionIsNoop(t *testing.T) {
	s := New()
	assert.False(t, s.Script.UpdateProgress("x", 10))
	assert.False(t, s.Script.AppendFeedback("x", models.AgentFeedback{}))
	_, ok := s.Script.Current()
	assert.False(t, ok)
}

func TestScriptStaleSessionWritesIgnored(t *testing.T) {
	s := New()
	s.Script.Create("a.txt", "old")
	s.Script.Create("b.txt", "new")

	assert.False(t, s.Script.AppendFeedback("old", models.AgentFeedback{AgentType: models.AgentPlot}))
	assert.False(t, s.Script.UpdateProgress("old", 50))

	cur, _ := s.Script.Current()
	assert.Equal(t, "new", cur.ID)
	assert.Empty(t, cur.Agents)
	assert.Equal(t, float64(0), cur.Progress)
}

func TestScriptCompleteForces100AndRecordsHistory(t *testing.T) {
	s := New()
	s.Script.Create("draft.txt", "sess-1")
	s.Script.UpdateProgress("sess-1", 75)
	require.True(t, s.Script.Complete("sess-1"))

	cur, _ := s.Script.Current()
	assert.Equal(t, models.StatusCompleted, cur.Status)
	assert.Equal(t, float64(100), cur.Progress)
	assert.Len(t, s.Script.History(), 1)

	// Completed sessions no longer accept writes.
	assert.False(t, s.Script.AppendFeedback("sess-1", models.AgentFeedback{}))
	assert.False(t, s.Script.Complete("sess-1"))
}

func TestScriptErrorIsTerminal(t *testing.T) {
	s := New()
	s.Script.Create("draft.txt", "sess-1")
	require.True(t, s.Script.Fail("sess-1", "boom"))

	assert.False(t, s.Script.UpdateProgress("sess-1", 90))
	assert.False(t, s.Script.Complete("sess-1"))
	cur, _ := s.Script.Current()
	assert.Equal(t, models.StatusError, cur.Status)
	assert.Equal(t, "boom", cur.Error)
}

func TestScriptUploadProgress(t *testing.T) {
	s := New()
	s.Script.BeginUpload("draft.txt")
	assert.True(t, s.Script.SetUploadProgress(30))
	assert.False(t, s.Script.SetUploadProgress(20))
	p, uploading := s.Script.UploadProgress()
	assert.True(t, uploading)
	assert.Equal(t, float64(30), p)

	s.Script.Create("draft.txt", "sess-1")
	p, uploading = s.Script.UploadProgress()
	assert.False(t, uploading)
	assert.Equal(t, float64(100), p)
}

func TestCreateResetsPriorSession(t *testing.T) {
	s := New()
	s.Script.Create("a.txt", "one")
	s.Script.UpdateProgress("one", 80)
	s.Script.AppendFeedback("one", models.AgentFeedback{AgentType: models.AgentPlot})

	snap := s.Script.Create("b.txt", "two")
	assert.Equal(t, float64(0), snap.Progress)
	assert.Empty(t, snap.Agents)
	assert.Equal(t, models.StatusAnalyzing, snap.Status)
}

func TestSubscribersSeeMutationOrder(t *testing.T) {
	s := New()
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	s.Script.Create("draft.txt", "sess-1")
	s.Script.UpdateProgress("sess-1", 25)
	s.Script.AppendFeedback("sess-1", models.AgentFeedback{AgentType: models.AgentDialogue})
	s.Script.Complete("sess-1")

	var types []UpdateType
	for i := 0; i < 4; i++ {
		u := <-ch
		assert.Equal(t, models.ModuleScript, u.Module)
		types = append(types, u.Type)
	}
	assert.Equal(t, []UpdateType{UpdateCreated, UpdateProgress, UpdateResult, UpdateCompleted}, types)
}

func TestFullSubscriberCountsDroppedUpdates(t *testing.T) {
	s := New()
	slow := s.Subscribe()
	defer s.Unsubscribe(slow)

	s.Coaching.Create("Hello", "demo-1")
	for i := 0; i < SubscriberBuffer+4; i++ {
		s.Coaching.RecordFrame("demo-1")
	}

	assert.Len(t, slow, SubscriberBuffer)
	assert.Equal(t, uint64(5), s.Dropped())

	// A subscriber that keeps up still sees everything after the drops.
	fast := s.Subscribe()
	defer s.Unsubscribe(fast)
	s.Coaching.Complete("demo-1")
	u := <-fast
	assert.Equal(t, UpdateCompleted, u.Type)
	assert.Equal(t, uint64(6), s.Dropped())
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	s := New()
	ch := s.Subscribe()
	s.Unsubscribe(ch)
	assert.NotPanics(t, func() { s.Unsubscribe(ch) })
}

func TestCoachingLifecycle(t *testing.T) {
	s := New()
	s.Coaching.Create("Hello", "demo-1")

	m := models.CoachingMetrics{FacialSymmetry: 80}
	assert.True(t, s.Coaching.UpdateMetrics("demo-1", m))
	assert.True(t, s.Coaching.RecordFrame("demo-1"))
	assert.True(t, s.Coaching.Pause("demo-1"))
	assert.False(t, s.Coaching.Pause("demo-1"))
	assert.True(t, s.Coaching.Resume("demo-1"))
	assert.True(t, s.Coaching.Complete("demo-1"))

	// A tick scheduled before stop must not change anything.
	before, _ := s.Coaching.Current()
	assert.False(t, s.Coaching.UpdateMetrics("demo-1", models.CoachingMetrics{FacialSymmetry: 10}))
	assert.False(t, s.Coaching.UpdateLandmarks("demo-1", []models.FacialLandmark{{Label: "point_0"}}))
	assert.False(t, s.Coaching.RecordFrame("demo-1"))
	after, _ := s.Coaching.Current()
	assert.Equal(t, before, after)
	assert.Equal(t, float64(100), after.Progress)
	assert.Equal(t, 1, after.Frames)
}

func TestPosterResultPrependsHistory(t *testing.T) {
	s := New()
	req := models.PosterRequest{Title: "One"}

	s.Poster.Create(req, "p1")
	s.Poster.UpdateProgress("p1", 60)
	assert.False(t, s.Poster.UpdateProgress("p1", 20))
	require.True(t, s.Poster.SetResult("p1", models.GeneratedPoster{ID: "poster-1"}))

	s.Poster.Create(req, "p2")
	require.True(t, s.Poster.SetResult("p2", models.GeneratedPoster{ID: "poster-2"}))

	posters := s.Poster.Posters()
	require.Len(t, posters, 2)
	assert.Equal(t, "poster-2", posters[0].ID)

	job, _ := s.Poster.Current()
	assert.Equal(t, float64(100), job.Progress)
	assert.Equal(t, models.StatusCompleted, job.Status)
}

func TestOverlayOpacity(t *testing.T) {
	s := New()
	assert.Equal(t, DefaultOpacity, s.Overlay.State().Opacity)

	for _, v := range []float64{0, 0.25, 1} {
		assert.NoError(t, s.Overlay.SetOpacity(v))
		assert.Equal(t, v, s.Overlay.State().Opacity)
	}

	for _, v := range []float64{-0.1, 1.01, math.NaN(), math.Inf(1)} {
		err := s.Overlay.SetOpacity(v)
		assert.True(t, errors.Is(err, errors.ErrCodeValidation), "value %v", v)
		assert.Equal(t, float64(1), s.Overlay.State().Opacity)
	}
}

func TestOverlayToggleKeepsImage(t *testing.T) {
	s := New()
	presets := PresetReferences()
	require.Len(t, presets, 6)

	s.Overlay.SetImage(&presets[0])
	st := s.Overlay.State()
	assert.True(t, st.Visible)

	assert.False(t, s.Overlay.Toggle())
	st = s.Overlay.State()
	require.NotNil(t, st.Image)
	assert.Equal(t, "Happy", st.Image.Name)

	assert.True(t, s.Overlay.Toggle())
	s.Overlay.ClearImage()
	st = s.Overlay.State()
	assert.Nil(t, st.Image)
	assert.False(t, st.Visible)
}

func TestOverlaySurvivesSessionLifecycle(t *testing.T) {
	s := New()
	img := models.ReferenceImage{Name: "Sad", URL: "/sad-facial-expression.jpg"}
	s.Overlay.SetImage(&img)
	s.Coaching.Create("scene", "a")
	s.Coaching.Complete("a")
	s.Coaching.Clear()
	s.Coaching.Create("scene", "b")

	st := s.Overlay.State()
	require.NotNil(t, st.Image)
	assert.Equal(t, "Sad", st.Image.Name)
}

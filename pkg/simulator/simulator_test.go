package simulator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/grovetools/lumin/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptFeedbackIsCanned(t *testing.T) {
	s := New(1)
	fb := s.ScriptFeedback()
	require.Len(t, fb, 4)

	wantTypes := models.AgentTypes()
	wantScores := []float64{85, 78, 92, 95}
	for i, entry := range fb {
		assert.Equal(t, wantTypes[i], entry.AgentType)
		assert.Equal(t, wantScores[i], entry.Score)
		assert.NotEmpty(t, entry.Feedback)
		assert.NotEmpty(t, entry.Suggestions)
	}
	assert.Len(t, fb[3].Suggestions, 1)

	// Canned content does not depend on the seed.
	other := New(99).ScriptFeedback()
	assert.Equal(t, fb[2].Feedback, other[2].Feedback)
}

func TestRunScriptAnalysisProgress(t *testing.T) {
	s := New(1)
	var progress []float64
	var indexes []int
	start := time.Now()
	err := s.RunScriptAnalysis(context.Background(), 5*time.Millisecond, func(i int, fb models.AgentFeedback, p float64) {
		indexes = append(indexes, i)
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, indexes)
	assert.Equal(t, []float64{25, 50, 75, 100}, progress)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestRunScriptAnalysisCancel(t *testing.T) {
	s := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	var emitted int
	err := s.RunScriptAnalysis(ctx, time.Hour, func(i int, fb models.AgentFeedback, p float64) {
		emitted++
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, emitted)
}

func TestCoachingMetricsWithinBands(t *testing.T) {
	s := New(42)
	for i := 0; i < 1000; i++ {
		m := s.CoachingMetrics()
		assert.True(t, MetricBands.EmotionalIntensity.Contains(m.EmotionalIntensity))
		assert.True(t, MetricBands.FacialSymmetry.Contains(m.FacialSymmetry))
		assert.True(t, MetricBands.EyeContact.Contains(m.EyeContact))
		assert.True(t, MetricBands.MicroExpressions.Contains(m.MicroExpressions))
		assert.True(t, MetricBands.OverallScore.Contains(m.OverallScore))
	}
}

func TestLandmarks(t *testing.T) {
	s := New(7)
	first := s.Landmarks()
	require.Len(t, first, LandmarkCount)
	for i, l := range first {
		assert.Equal(t, fmt.Sprintf("point_%d", i), l.Label)
		assert.True(t, l.X >= 0.3 && l.X <= 0.7)
		assert.True(t, l.Y >= 0.2 && l.Y <= 0.8)
		require.NotNil(t, l.Z)
		assert.True(t, *l.Z >= 0 && *l.Z <= 0.1)
	}
	assert.NotEqual(t, first[0].X, s.Landmarks()[0].X)
}

func TestSameSeedSameData(t *testing.T) {
	assert.Equal(t, New(5).CoachingMetrics(), New(5).CoachingMetrics())
}

func TestSceneFrame(t *testing.T) {
	a := SceneFrame(64, 48, 1)
	b := SceneFrame(64, 48, 2)
	assert.Equal(t, 64, a.Bounds().Dx())
	assert.Equal(t, 48, a.Bounds().Dy())
	assert.NotEqual(t, a.At(0, 0), b.At(0, 0))
	assert.Equal(t, 0, SceneFrame(0, 0, 1).Bounds().Dx())
}

package models

import (
	"strings"
	"testing"
	"time"

	"github.com/grovetools/lumin/errors"
	"github.com/stretchr/testify/assert"
)

func TestModuleString(t *testing.T) {
	assert.Equal(t, "script", ModuleScript.String())
	assert.Equal(t, "coaching", ModuleCoaching.String())
	assert.Equal(t, "poster", ModulePoster.String())
	assert.Len(t, Modules(), 3)
}

func TestDemoID(t *testing.T) {
	id := NewDemoID(time.UnixMilli(1700000000123))
	assert.Equal(t, "demo-1700000000123", id)
	assert.True(t, IsDemoID(id))
	assert.False(t, IsDemoID("sess-42"))
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusError.Terminal())
	assert.False(t, StatusAnalyzing.Terminal())
	assert.False(t, StatusPaused.Terminal())
}

func TestPosterRequestValidate(t *testing.T) {
	valid := PosterRequest{
		Title:    "Night Shift",
		Director: "A. Director",
		Genre:    []string{"Drama"},
		Theme:    ThemeDark,
		Layout:   LayoutModern,
	}

	tests := []struct {
		name   string
		mutate func(r *PosterRequest)
		field  string
	}{
		{"valid", func(r *PosterRequest) {}, ""},
		{"missing title", func(r *PosterRequest) { r.Title = "  " }, "title"},
		{"missing director", func(r *PosterRequest) { r.Director = "" }, "director"},
		{"no genre", func(r *PosterRequest) { r.Genre = nil }, "genre"},
		{"too many genres", func(r *PosterRequest) { r.Genre = []string{"a", "b", "c", "d"} }, "genre"},
		{"too many cast", func(r *PosterRequest) { r.Cast = []string{"1", "2", "3", "4", "5", "6"} }, "cast"},
		{"unknown theme", func(r *PosterRequest) { r.Theme = "neon" }, "theme"},
		{"unknown layout", func(r *PosterRequest) { r.Layout = "" }, "layout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			req.Genre = append([]string(nil), valid.Genre...)
			tt.mutate(&req)
			err := req.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.True(t, errors.Is(err, errors.ErrCodeValidation))
				lerr, _ := errors.As(err)
				assert.Equal(t, tt.field, lerr.Details["field"])
			}
		})
	}
}

func TestScriptAnalysisCloneIsDeep(t *testing.T) {
	orig := ScriptAnalysis{Agents: []AgentFeedback{{AgentType: AgentPlot, Suggestions: []string{"a"}}}}
	cp := orig.Clone()
	cp.Agents[0].Suggestions[0] = "b"
	cp.Agents[0].Score = 10
	assert.Equal(t, "a", orig.Agents[0].Suggestions[0])
	assert.Equal(t, float64(0), orig.Agents[0].Score)
}

func TestFrameDataURL(t *testing.T) {
	f := &Frame{Data: []byte{0xff, 0xd8}}
	assert.True(t, strings.HasPrefix(f.DataURL(), "data:image/jpeg;base64,"))
	assert.Equal(t, "data:image/jpeg;base64,/9g=", f.DataURL())
}

func TestEnvelopeReason(t *testing.T) {
	assert.Equal(t, "boom", Envelope[string]{Error: "boom", Message: "m"}.Reason())
	assert.Equal(t, "m", Envelope[string]{Message: "m"}.Reason())
}

func TestPresetScenes(t *testing.T) {
	scenes := PresetScenes()
	assert.Len(t, scenes, 3)
	assert.Equal(t, "Dramatic Confrontation", scenes[0].Title)
}

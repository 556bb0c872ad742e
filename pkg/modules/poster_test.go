package modules

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/pkg/poster"
	"github.com/grovetools/lumin/pkg/store"
	"github.com/grovetools/lumin/pkg/transport"
	"github.com/grovetools/lumin/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func posterRequest() models.PosterRequest {
	return models.PosterRequest{
		Title:       "Night Shift",
		Genre:       []string{"Thriller"},
		Cast:        []string{"Ana Ruiz"},
		Director:    "Mia Chen",
		ReleaseYear: "2026",
		Theme:       models.ThemeDark,
		Layout:      models.LayoutModern,
	}
}

func newPoster(gw PosterGateway, st *store.Store) *Poster {
	return NewPoster(PosterOptions{
		Gateway:      gw,
		Renderer:     &poster.Renderer{Width: 400, Height: 1600},
		Store:        st.Poster,
		PollInterval: 2 * time.Millisecond,
		PollAttempts: 5,
	})
}

func TestPosterLocalFallback(t *testing.T) {
	st := store.New()
	updates := st.Subscribe()
	defer st.Unsubscribe(updates)
	p := newPoster(gatewayFor(testutil.ClosedURL(t)), st)

	out, err := p.Generate(context.Background(), posterRequest())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.ID, "poster-"))
	assert.True(t, strings.HasPrefix(out.ImageURL, "data:image/png;base64,"))
	assert.Equal(t, out.ImageURL, out.ThumbnailURL)
	assert.NotEmpty(t, out.Image)

	require.Len(t, out.Variations, 3)
	want := []struct {
		theme  models.Theme
		layout models.Layout
	}{
		{models.ThemeLight, models.LayoutClassic},
		{models.ThemeVibrant, models.LayoutModern},
		{models.ThemeMinimal, models.LayoutArtistic},
	}
	for i, v := range out.Variations {
		assert.Equal(t, want[i].theme, v.Theme)
		assert.Equal(t, want[i].layout, v.Layout)
		assert.NotEmpty(t, v.Image)
	}

	var stages []float64
	for len(updates) > 0 {
		u := <-updates
		if u.Type == store.UpdateProgress || u.Type == store.UpdateCompleted {
			stages = append(stages, u.Payload.(models.PosterJob).Progress)
		}
	}
	assert.Equal(t, []float64{20, 60, 90, 100}, stages)

	job, _ := st.Poster.Current()
	assert.Equal(t, models.StatusCompleted, job.Status)
}

func TestPosterValidation(t *testing.T) {
	backend := testutil.NewBackend(t)
	st := store.New()
	p := newPoster(gatewayFor(backend.URL), st)

	req := posterRequest()
	req.Genre = []string{"a", "b", "c", "d"}
	_, err := p.Generate(context.Background(), req)
	assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
	assert.Empty(t, backend.Requests())
	_, ok := st.Poster.Current()
	assert.False(t, ok)
}

func TestPosterRemoteResult(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.OK(http.MethodPost, "/generate-poster", map[string]string{"posterId": "p1"})
	var polls atomic.Int64
	backend.Handle(http.MethodGet, "/poster/p1/status", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			testutil.WriteJSON(w, http.StatusOK, testutil.Success(transport.PosterStatus{Status: "active", Progress: 50}))
			return
		}
		testutil.WriteJSON(w, http.StatusOK, testutil.Success(transport.PosterStatus{
			Status:   "completed",
			Progress: 100,
			ImageURL: "https://cdn.example.com/p1.png",
		}))
	})

	st := store.New()
	p := newPoster(gatewayFor(backend.URL), st)
	out, err := p.Generate(context.Background(), posterRequest())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/p1.png", out.ImageURL)
	assert.Equal(t, out.ImageURL, out.ThumbnailURL)
	assert.Empty(t, out.Image)
	assert.Equal(t, []models.GeneratedPoster{out}, st.Poster.Posters())
}

func TestPosterRemoteFailureRendersLocally(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.OK(http.MethodPost, "/generate-poster", map[string]string{"posterId": "p1"})
	backend.OK(http.MethodGet, "/poster/p1/status", transport.PosterStatus{Status: "error", Error: "gpu busy"})

	st := store.New()
	p := newPoster(gatewayFor(backend.URL), st)
	out, err := p.Generate(context.Background(), posterRequest())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.ImageURL, "data:image/png"))
	assert.Len(t, out.Variations, 3)
}

func TestPosterPollingGivesUp(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.OK(http.MethodPost, "/generate-poster", map[string]string{"posterId": "p1"})
	backend.OK(http.MethodGet, "/poster/p1/status", transport.PosterStatus{Status: "active", Progress: 10})

	st := store.New()
	p := newPoster(gatewayFor(backend.URL), st)
	out, err := p.Generate(context.Background(), posterRequest())
	require.NoError(t, err)
	assert.Equal(t, 5, backend.Count(http.MethodGet, "/poster/p1/status"))
	assert.True(t, strings.HasPrefix(out.ImageURL, "data:image/png"))
}

func TestPosterHistoryNewestFirst(t *testing.T) {
	st := store.New()
	p := NewPoster(PosterOptions{Renderer: &poster.Renderer{Width: 400, Height: 1600}, Store: st.Poster})

	first, err := p.Generate(context.Background(), posterRequest())
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	req := posterRequest()
	req.Title = "Day Shift"
	second, err := p.Generate(context.Background(), req)
	require.NoError(t, err)

	posters := st.Poster.Posters()
	require.Len(t, posters, 2)
	assert.Equal(t, second.ID, posters[0].ID)
	assert.Equal(t, first.ID, posters[1].ID)
}

package modules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/pkg/poster"
	"github.com/grovetools/lumin/pkg/resilience"
	"github.com/grovetools/lumin/pkg/simulator"
	"github.com/grovetools/lumin/pkg/store"
	"github.com/grovetools/lumin/pkg/transport"
	"github.com/sirupsen/logrus"
)

// Poster polling defaults.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollAttempts = 15
)

// PosterGateway is the part of the gateway the poster controller calls.
type PosterGateway interface {
	GeneratePoster(ctx context.Context, req models.PosterRequest) (string, error)
	PosterStatus(ctx context.Context, posterID string) (transport.PosterStatus, error)
}

// PosterOptions configures a Poster controller.
type PosterOptions struct {
	Gateway      PosterGateway // optional; nil renders locally only
	Renderer     *poster.Renderer
	Store        *store.PosterStore
	Count        resilience.CountPolicy
	PollInterval time.Duration
	PollAttempts int
	Hooks        Hooks
}

// Poster generates posters.
type Poster struct {
	opts PosterOptions
	now  func() time.Time
}

// NewPoster creates a Poster controller.
func NewPoster(opts PosterOptions) *Poster {
	if opts.Renderer == nil {
		opts.Renderer = poster.NewRenderer()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = DefaultPollAttempts
	}
	return &Poster{opts: opts, now: time.Now}
}

// Generate produces a poster for req. The webhook is asked first; when it
// cannot deliver, the poster is rendered locally.
func (p *Poster) Generate(ctx context.Context, req models.PosterRequest) (models.GeneratedPoster, error) {
	if err := req.Validate(); err != nil {
		return models.GeneratedPoster{}, err
	}

	id := fmt.Sprintf("poster-%d", p.now().UnixMilli())
	p.opts.Store.Create(req, id)
	logger := p.opts.Hooks.logger().WithField("poster", id)
	p.opts.Store.UpdateProgress(id, simulator.PosterStages[0])

	if p.opts.Gateway != nil {
		machine := resilience.NewOneShot(p.opts.Count)
		p.opts.Hooks.watch(machine, models.ModulePoster, id, &sync.Once{})

		result, err := p.remote(ctx, id, req, logger)
		if canceled(ctx, err) {
			p.opts.Store.Fail(id, "generation cancelled")
			return models.GeneratedPoster{}, err
		}
		if err == nil && result != nil {
			machine.Record(nil)
			p.opts.Store.SetResult(id, *result)
			logger.Info("Poster generated remotely")
			return *result, nil
		}
		// Whatever the cause, the poster is still rendered locally.
		if err != nil && machine.Counts(err) {
			machine.Record(err)
			logger = logger.WithError(err)
		} else {
			machine.ForceDemo()
		}
		logger.Info("Remote generation unavailable, rendering locally")
	}

	result, err := p.render(id, req)
	if err != nil {
		p.opts.Store.Fail(id, err.Error())
		return models.GeneratedPoster{}, err
	}
	p.opts.Store.SetResult(id, result)
	logger.Info("Poster rendered")
	return result, nil
}

// remote asks the webhook for a poster and polls the backend for it. A nil
// result without error means the backend gave nothing usable.
func (p *Poster) remote(ctx context.Context, id string, req models.PosterRequest, logger *logrus.Entry) (*models.GeneratedPoster, error) {
	remoteID, err := p.opts.Gateway.GeneratePoster(ctx, req)
	if err != nil || remoteID == "" {
		return nil, err
	}
	logger = logger.WithField("remote_id", remoteID)

	for attempt := 0; attempt < p.opts.PollAttempts; attempt++ {
		timer := time.NewTimer(p.opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		st, err := p.opts.Gateway.PosterStatus(ctx, remoteID)
		if err != nil {
			return nil, err
		}
		if st.Progress > 0 && st.Progress < 100 {
			p.opts.Store.UpdateProgress(id, st.Progress)
		}
		if !st.Done() {
			continue
		}
		if st.Status != string(models.StatusCompleted) || st.ImageURL == "" {
			logger.WithField("error", st.Error).Debug("Remote generation failed")
			return nil, nil
		}
		thumb := st.ThumbnailURL
		if thumb == "" {
			thumb = st.ImageURL
		}
		return &models.GeneratedPoster{
			ID:           id,
			ImageURL:     st.ImageURL,
			ThumbnailURL: thumb,
			CreatedAt:    p.now(),
			Request:      req,
			Variations:   st.Variations,
		}, nil
	}
	logger.Debug("Remote generation did not finish in time")
	return nil, nil
}

// render draws the poster and its variations locally, emitting staged
// progress.
func (p *Poster) render(id string, req models.PosterRequest) (models.GeneratedPoster, error) {
	main, err := p.opts.Renderer.Render(req)
	if err != nil {
		return models.GeneratedPoster{}, err
	}
	p.opts.Store.UpdateProgress(id, simulator.PosterStages[1])

	vars, err := p.opts.Renderer.RenderVariations(req)
	if err != nil {
		return models.GeneratedPoster{}, err
	}
	p.opts.Store.UpdateProgress(id, simulator.PosterStages[2])

	url := main.DataURL()
	out := models.GeneratedPoster{
		ID:           id,
		ImageURL:     url,
		ThumbnailURL: url,
		CreatedAt:    p.now(),
		Request:      req,
		Image:        main.Data,
		Variations:   make([]models.PosterVariation, 0, len(vars)),
	}
	for _, v := range vars {
		out.Variations = append(out.Variations, models.PosterVariation{
			ID:       v.ID,
			ImageURL: v.Image.DataURL(),
			Theme:    v.Theme,
			Layout:   v.Layout,
			Image:    v.Image.Data,
		})
	}
	return out, nil
}

// Package app wires the client together. Everything that used to be a
// process-wide singleton (gateway, event channel, stores, camera) is owned by
// an App and passed down explicitly.
package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/grovetools/lumin/config"
	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/logging"
	"github.com/grovetools/lumin/pkg/auth"
	"github.com/grovetools/lumin/pkg/capture"
	"github.com/grovetools/lumin/pkg/events"
	"github.com/grovetools/lumin/pkg/modules"
	"github.com/grovetools/lumin/pkg/observability"
	"github.com/grovetools/lumin/pkg/poster"
	"github.com/grovetools/lumin/pkg/resilience"
	"github.com/grovetools/lumin/pkg/simulator"
	"github.com/grovetools/lumin/pkg/store"
	"github.com/grovetools/lumin/pkg/transport"
	"github.com/grovetools/lumin/version"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the remote stop call made by Close.
const shutdownTimeout = 5 * time.Second

// Option customizes an App.
type Option func(*settings)

type settings struct {
	logger     *logrus.Entry
	source     capture.Source
	surface    capture.Surface
	httpClient *http.Client
	notify     modules.Notifier
	onTick     func(modules.TickResult)
	authDelay  time.Duration
	uploadTick time.Duration
	pollEvery  time.Duration
}

// WithLogger replaces the "app" component logger.
func WithLogger(l *logrus.Entry) Option {
	return func(s *settings) { s.logger = l }
}

// WithCameraSource replaces the built-in synthetic cameras.
func WithCameraSource(src capture.Source) Option {
	return func(s *settings) { s.source = src }
}

// WithSurface attaches camera previews to surface.
func WithSurface(surface capture.Surface) Option {
	return func(s *settings) { s.surface = surface }
}

// WithHTTPClient sets the client used for backend and webhook calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithNotifier receives the informational notices of every controller.
func WithNotifier(n modules.Notifier) Option {
	return func(s *settings) { s.notify = n }
}

// WithTickHandler observes every processed coaching frame.
func WithTickHandler(fn func(modules.TickResult)) Option {
	return func(s *settings) { s.onTick = fn }
}

// WithAuthDelay sets the simulated latency of login and signup. Zero
// disables it.
func WithAuthDelay(d time.Duration) Option {
	return func(s *settings) { s.authDelay = d }
}

// WithUploadTick sets the cadence of simulated upload progress.
func WithUploadTick(d time.Duration) Option {
	return func(s *settings) { s.uploadTick = d }
}

// WithPollInterval sets how often a remote poster job is polled.
func WithPollInterval(d time.Duration) Option {
	return func(s *settings) { s.pollEvery = d }
}

// App is the application context.
type App struct {
	Config    *config.Config
	Logger    *logrus.Entry
	Metrics   *observability.Metrics
	Auth      *auth.Store
	Accounts  *auth.Service
	Gateway   *transport.Gateway
	Events    *events.Channel // nil when the event channel is disabled
	Store     *store.Store
	Simulator *simulator.Simulator
	Camera    *capture.Manager
	Renderer  *poster.Renderer

	Script   *modules.Script
	Coaching *modules.Coaching
	Poster   *modules.Poster

	closeOnce sync.Once
}

// New builds an App from cfg. cfg must already carry its defaults.
func New(cfg *config.Config, opts ...Option) *App {
	s := settings{authDelay: auth.DefaultDelay}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger("app")
	}
	if s.source == nil {
		s.source = capture.NewSyntheticSource(cfg.Capture.Devices, cfg.Capture.Width, cfg.Capture.Height)
	}

	a := &App{
		Config:    cfg,
		Logger:    s.logger,
		Metrics:   observability.New(),
		Store:     store.New(),
		Simulator: simulator.New(cfg.Simulator.Seed),
		Renderer:  poster.NewRenderer(),
	}

	a.Store.SetLogger(s.logger.WithField("component", "store"))
	a.Auth = auth.NewStore(cfg.Auth.StateFile, s.logger.WithField("component", "auth"))
	a.Accounts = auth.NewService(a.Auth, s.authDelay)

	a.Gateway = transport.New(transport.Options{
		BackendURL:  cfg.BackendURL,
		WebhookURL:  cfg.WebhookURL,
		Timeout:     cfg.Transport.Timeout.Std(),
		Credentials: a.Auth,
		HTTPClient:  s.httpClient,
		UserAgent:   version.UserAgent(),
		Logger:      s.logger.WithField("component", "transport"),
		Recorder:    a.Metrics,
	})

	if cfg.EventsEnabled() {
		a.Events = events.New(events.Options{
			URL:                  cfg.EventsURL,
			MaxReconnectAttempts: cfg.Events.MaxReconnectAttempts,
			ReconnectDelay:       cfg.Events.ReconnectDelay.Std(),
			Logger:               s.logger.WithField("component", "events"),
		})
	}

	a.Camera = capture.NewManager(capture.Options{
		Source: s.source,
		Defaults: capture.Constraints{
			DeviceID:   cfg.Capture.DeviceID,
			FacingMode: cfg.Capture.FacingMode,
			Width:      cfg.Capture.Width,
			Height:     cfg.Capture.Height,
		},
		Quality:  cfg.Capture.JPEGQuality,
		Logger:   s.logger.WithField("component", "capture"),
		Recorder: a.Metrics,
	})

	count := resilience.CountAll
	if cfg.Resilience.CountRemoteErrors != nil && !*cfg.Resilience.CountRemoteErrors {
		count = resilience.CountNetworkOnly
	}
	hooks := modules.Hooks{
		Logger:   s.logger.WithField("component", "modules"),
		Recorder: a.Metrics,
		Notify:   s.notify,
	}

	scriptOpts := modules.ScriptOptions{
		Gateway:          a.Gateway,
		Store:            a.Store.Script,
		Simulator:        a.Simulator,
		Count:            count,
		FeedbackInterval: cfg.Simulator.FeedbackInterval.Std(),
		DemoGrace:        cfg.Simulator.DemoGrace.Std(),
		UploadTick:       s.uploadTick,
		Hooks:            hooks,
	}
	if a.Events != nil {
		scriptOpts.Events = a.Events
	}
	a.Script = modules.NewScript(scriptOpts)

	a.Coaching = modules.NewCoaching(modules.CoachingOptions{
		Gateway:   a.Gateway,
		Camera:    a.Camera,
		Surface:   s.surface,
		DeviceID:  cfg.Capture.DeviceID,
		Store:     a.Store.Coaching,
		Overlay:   a.Store.Overlay,
		Simulator: a.Simulator,
		Threshold: cfg.Resilience.FailureThreshold,
		Count:     count,
		Interval:  cfg.Capture.Interval.Std(),
		OnTick:    s.onTick,
		Hooks:     hooks,
	})

	a.Poster = modules.NewPoster(modules.PosterOptions{
		Gateway:      a.Gateway,
		Renderer:     a.Renderer,
		Store:        a.Store.Poster,
		Count:        count,
		PollInterval: s.pollEvery,
		Hooks:        hooks,
	})

	return a
}

// Run keeps the background services alive until ctx is done: the event
// channel, the credential watcher and, when enabled, the metrics endpoint.
// A service that gives up on its own (the event channel after its last
// reconnect attempt) does not stop the others.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.Events != nil {
		a.Events.Connect(gctx)
		g.Go(func() error {
			a.Events.Wait()
			return nil
		})
	}

	g.Go(func() error {
		err := a.Auth.Watch(gctx, func() {
			a.Logger.WithField("path", a.Auth.Path()).Debug("Credentials changed on disk")
		})
		if err != nil {
			a.Logger.WithError(err).Warn("Credential watcher unavailable")
		}
		return nil
	})

	if a.Config.Metrics.Enabled && a.Config.Metrics.Addr != "" {
		srv := observability.NewServer(a.Config.Metrics.Addr, a.Metrics, a.Logger.WithField("component", "metrics"))
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	return g.Wait()
}

// Close stops every running session and releases the camera. It is safe to
// call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.Script.Cancel()
		if err := a.Coaching.Stop(ctx); err != nil && !errors.Is(err, errors.ErrCodeNoSession) {
			a.Logger.WithError(err).Warn("Failed to stop coaching on close")
		}
		a.Camera.Stop()
		if a.Events != nil {
			a.Events.Disconnect()
		}
	})
}

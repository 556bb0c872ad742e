package modules

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/pkg/capture"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/pkg/resilience"
	"github.com/grovetools/lumin/pkg/simulator"
	"github.com/grovetools/lumin/pkg/store"
	"github.com/grovetools/lumin/pkg/transport"
	"github.com/sirupsen/logrus"
)

// CoachingGateway is the part of the gateway the coaching controller calls.
type CoachingGateway interface {
	StartCoaching(ctx context.Context, sceneText string) (string, error)
	SubmitFrame(ctx context.Context, sessionID string, frame *models.Frame) (transport.FrameAnalysis, error)
	StopCoaching(ctx context.Context, sessionID string) error
}

// Camera is the capture device. *capture.Manager satisfies it.
type Camera interface {
	Start(ctx context.Context, surface capture.Surface, deviceID string) error
	Stop()
	CaptureFrame() *models.Frame
}

// TickResult describes one processed frame.
type TickResult struct {
	SessionID string
	Frame     *models.Frame
	Mode      resilience.Mode
	Simulated bool
	Err       error
}

// CoachingOptions configures a Coaching controller.
type CoachingOptions struct {
	Gateway   CoachingGateway
	Camera    Camera
	Surface   capture.Surface // optional preview
	DeviceID  string
	Store     *store.CoachingStore
	Overlay   *store.Overlay
	Simulator *simulator.Simulator
	Threshold int
	Count     resilience.CountPolicy
	Interval  time.Duration
	// OnTick, if set, is called after every processed frame on the loop
	// goroutine.
	OnTick func(TickResult)
	Hooks  Hooks
}

// Coaching runs expression coaching sessions.
type Coaching struct {
	opts CoachingOptions

	mu       sync.Mutex
	starting bool
	id       string
	machine *resilience.Machine
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewCoaching creates a Coaching controller.
func NewCoaching(opts CoachingOptions) *Coaching {
	if opts.Threshold < 1 {
		opts.Threshold = resilience.DefaultThreshold
	}
	if opts.Interval <= 0 {
		opts.Interval = capture.DefaultInterval
	}
	if opts.Simulator == nil {
		opts.Simulator = simulator.New(0)
	}
	return &Coaching{opts: opts}
}

// ErrStartInProgress is returned by Start while another Start is still
// acquiring the backend session or the camera.
var ErrStartInProgress = errors.New(errors.ErrCodeDeviceInUse, "coaching start already in progress")

// Start opens a session for scene, acquires the camera and starts the frame
// loop. A backend that cannot be reached yields a demo session; frame
// submission is still attempted until the failure threshold is reached.
// A Start issued while another is in flight is rejected without touching
// the store.
func (c *Coaching) Start(ctx context.Context, scene string) (models.CoachingSession, error) {
	scene = strings.TrimSpace(scene)
	if scene == "" {
		return models.CoachingSession{}, errors.Validation("scene", "scene text is required")
	}

	c.mu.Lock()
	if c.starting {
		c.mu.Unlock()
		return models.CoachingSession{}, ErrStartInProgress
	}
	c.starting = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	if err := c.Stop(ctx); err != nil && !errors.Is(err, errors.ErrCodeNoSession) {
		return models.CoachingSession{}, err
	}

	logger := c.opts.Hooks.logger()
	notice := &sync.Once{}
	oneShot := resilience.NewOneShot(c.opts.Count)
	c.opts.Hooks.watch(oneShot, models.ModuleCoaching, "start", notice)

	id, err := c.opts.Gateway.StartCoaching(ctx, scene)
	if canceled(ctx, err) {
		return models.CoachingSession{}, err
	}
	oneShot.Record(err)
	switch {
	case err == nil:
	case oneShot.Mode() == resilience.Demo:
		id = models.NewDemoID(time.Now())
		logger.WithError(err).Info("Backend unavailable, coaching in demo mode")
	default:
		return c.failSession(scene, models.NewDemoID(time.Now()), err)
	}
	logger = logger.WithField("session", id)

	if err := c.opts.Camera.Start(ctx, c.opts.Surface, c.opts.DeviceID); err != nil {
		logger.WithError(err).Warn("Camera unavailable")
		c.stopRemote(ctx, id)
		return c.failSession(scene, id, err)
	}
	sess := c.opts.Store.Create(scene, id)

	// Every session starts Live, even one with a demo id.
	machine := resilience.NewMultiStrike(c.opts.Threshold, c.opts.Count)
	c.opts.Hooks.watch(machine, models.ModuleCoaching, id, notice)

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.mu.Lock()
	c.id = id
	c.machine = machine
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	loop := capture.Loop{Interval: c.opts.Interval, Capture: c.opts.Camera.CaptureFrame}
	go func() {
		defer close(done)
		_ = loop.Run(loopCtx, func(ctx context.Context, frame *models.Frame) {
			c.tick(ctx, id, machine, frame)
		})
	}()

	logger.WithField("scene", scene).Info("Coaching session started")
	return sess, nil
}

// failSession records a session that never became active.
func (c *Coaching) failSession(scene, id string, cause error) (models.CoachingSession, error) {
	c.opts.Store.Create(scene, id)
	c.opts.Store.Fail(id, cause.Error())
	sess, _ := c.opts.Store.Current()
	return sess, cause
}

// tick processes one frame. Writes are guarded by the session id so a late
// tick cannot touch a newer session.
func (c *Coaching) tick(ctx context.Context, id string, machine *resilience.Machine, frame *models.Frame) {
	cur, ok := c.opts.Store.Current()
	if !ok || cur.ID != id || cur.Status != models.StatusActive {
		return
	}
	c.opts.Store.RecordFrame(id)

	res := TickResult{SessionID: id, Frame: frame, Mode: machine.Mode()}
	if machine.ShouldAttempt() {
		analysis, err := c.opts.Gateway.SubmitFrame(ctx, id, frame)
		if ctx.Err() != nil {
			return
		}
		t := machine.Record(err)
		res.Mode = t.To
		res.Err = err
		if err == nil {
			if analysis.Metrics != nil {
				c.opts.Store.UpdateMetrics(id, *analysis.Metrics)
			}
			if len(analysis.Landmarks) > 0 {
				c.opts.Store.UpdateLandmarks(id, analysis.Landmarks)
			}
		} else {
			c.opts.Hooks.logger().WithError(err).WithFields(logrus.Fields{
				"session":  id,
				"failures": t.Failures,
			}).Debug("Frame submission failed")
		}
	} else {
		c.opts.Store.UpdateMetrics(id, c.opts.Simulator.CoachingMetrics())
		c.opts.Store.UpdateLandmarks(id, c.opts.Simulator.Landmarks())
		res.Simulated = true
	}

	if c.opts.OnTick != nil {
		c.opts.OnTick(res)
	}
}

// Stop ends the current session: the loop is halted before Stop returns, the
// camera is released and the backend is told on a best-effort basis.
func (c *Coaching) Stop(ctx context.Context) error {
	c.mu.Lock()
	id, cancel, done := c.id, c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return errors.NoSession(models.ModuleCoaching.String())
	}
	cancel()
	<-done
	c.opts.Camera.Stop()
	c.stopRemote(ctx, id)
	c.opts.Store.Complete(id)
	c.opts.Hooks.logger().WithField("session", id).Info("Coaching session stopped")
	return nil
}

func (c *Coaching) stopRemote(ctx context.Context, id string) {
	if models.IsDemoID(id) {
		return
	}
	if err := c.opts.Gateway.StopCoaching(ctx, id); err != nil {
		c.opts.Hooks.logger().WithError(err).WithField("session", id).Warn("Failed to stop remote session")
	}
}

// Pause stops frame processing while keeping the camera.
func (c *Coaching) Pause() bool {
	return c.opts.Store.Pause(c.SessionID())
}

// Resume restarts frame processing after Pause.
func (c *Coaching) Resume() bool {
	return c.opts.Store.Resume(c.SessionID())
}

// SessionID returns the id of the running session, or "".
func (c *Coaching) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return ""
	}
	return c.id
}

// Mode returns the frame submission mode of the current session.
func (c *Coaching) Mode() resilience.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.machine == nil {
		return resilience.Live
	}
	return c.machine.Mode()
}

// Overlay returns the reference overlay shown over the preview.
func (c *Coaching) Overlay() *store.Overlay {
	return c.opts.Overlay
}

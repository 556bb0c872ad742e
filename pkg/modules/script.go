package modules

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/pkg/events"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/pkg/resilience"
	"github.com/grovetools/lumin/pkg/simulator"
	"github.com/grovetools/lumin/pkg/store"
	"github.com/grovetools/lumin/pkg/transport"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
)

// ScriptPatterns are the accepted script file names.
var ScriptPatterns = []string{"*.pdf", "*.txt", "*.fountain"}

// Script controller defaults.
const (
	DefaultDemoGrace  = 2 * time.Second
	DefaultUploadTick = 200 * time.Millisecond
	uploadStep        = 10
	uploadCeiling     = 90
)

// ScriptGateway is the part of the gateway the script controller calls.
type ScriptGateway interface {
	UploadScript(ctx context.Context, filename string, r io.Reader) (transport.UploadResult, error)
	AnalyzeScript(ctx context.Context, sessionID string) error
}

// EventSource delivers pushed events. *events.Channel satisfies it.
type EventSource interface {
	On(event string, h events.Handler) (unsubscribe func())
}

// ScriptOptions configures a Script controller.
type ScriptOptions struct {
	Gateway          ScriptGateway
	Events           EventSource // optional
	Store            *store.ScriptStore
	Simulator        *simulator.Simulator
	Count            resilience.CountPolicy
	FeedbackInterval time.Duration
	DemoGrace        time.Duration
	UploadTick       time.Duration
	Hooks            Hooks
}

// Script runs script analyses.
type Script struct {
	gw       ScriptGateway
	events   EventSource
	store    *store.ScriptStore
	sim      *simulator.Simulator
	count    resilience.CountPolicy
	interval time.Duration
	grace    time.Duration
	tick     time.Duration
	hooks    Hooks
	matcher  *patternmatcher.PatternMatcher

	mu      sync.Mutex
	machine *resilience.Machine
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScript creates a Script controller.
func NewScript(opts ScriptOptions) *Script {
	if opts.FeedbackInterval <= 0 {
		opts.FeedbackInterval = simulator.DefaultFeedbackInterval
	}
	if opts.DemoGrace <= 0 {
		opts.DemoGrace = DefaultDemoGrace
	}
	if opts.UploadTick <= 0 {
		opts.UploadTick = DefaultUploadTick
	}
	if opts.Simulator == nil {
		opts.Simulator = simulator.New(0)
	}
	pm, err := patternmatcher.New(ScriptPatterns)
	if err != nil {
		panic(err)
	}
	return &Script{
		gw:       opts.Gateway,
		events:   opts.Events,
		store:    opts.Store,
		sim:      opts.Simulator,
		count:    opts.Count,
		interval: opts.FeedbackInterval,
		grace:    opts.DemoGrace,
		tick:     opts.UploadTick,
		hooks:    opts.Hooks,
		matcher:  pm,
	}
}

// ValidateFilename checks that name is an accepted script file.
func (s *Script) ValidateFilename(name string) error {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return errors.Validation("file", "a script file is required")
	}
	ok, err := s.matcher.MatchesOrParentMatches(strings.ToLower(base))
	if err != nil || !ok {
		return errors.Validation("file", "please upload a PDF, TXT, or Fountain file")
	}
	return nil
}

// Submit uploads a script and starts its analysis. If the backend cannot be
// reached the session continues in demo mode; the returned session is the
// one just created either way. Analysis results keep arriving after Submit
// returns; use Wait to block until the session ends.
func (s *Script) Submit(ctx context.Context, filename string, r io.Reader) (models.ScriptAnalysis, error) {
	if err := s.ValidateFilename(filename); err != nil {
		return models.ScriptAnalysis{}, err
	}
	filename = filepath.Base(strings.TrimSpace(filename))
	s.Cancel()

	logger := s.hooks.logger().WithField("file", filename)
	machine := resilience.NewOneShot(s.count)
	s.hooks.watch(machine, models.ModuleScript, filename, &sync.Once{})

	s.store.BeginUpload(filename)
	stopTicker := s.simulateUploadProgress()
	res, err := s.gw.UploadScript(ctx, filename, r)
	stopTicker()

	id := ""
	if err == nil {
		id = res.SessionID
		s.store.Create(filename, id)
		err = s.gw.AnalyzeScript(ctx, id)
	}
	if canceled(ctx, err) {
		s.store.Clear()
		return models.ScriptAnalysis{}, err
	}

	// Upload and analysis trigger form the one initial call of the session.
	machine.Record(err)
	switch {
	case err == nil:
	case machine.Mode() == resilience.Demo:
		id = models.NewDemoID(time.Now())
		s.store.Create(filename, id)
		logger.WithError(err).Info("Backend unavailable, analysing in demo mode")
	default:
		// A failure outside the counting policy is reported, not masked.
		if id == "" {
			id = models.NewDemoID(time.Now())
			s.store.Create(filename, id)
		}
		s.store.Fail(id, err.Error())
		sess, _ := s.store.Current()
		return sess, err
	}

	sess, _ := s.store.Current()
	s.start(id, machine)
	logger.WithFields(logrus.Fields{"session": id, "mode": machine.Mode().String()}).Info("Script analysis started")
	return sess, nil
}

// simulateUploadProgress advances upload progress until the returned
// function is called.
func (s *Script) simulateUploadProgress() (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()
		p := 0.0
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if p >= uploadCeiling {
					continue
				}
				p += uploadStep
				if p > uploadCeiling {
					p = uploadCeiling
				}
				s.store.SetUploadProgress(p)
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

// start launches result collection for the session. Event handlers are in
// place before it returns.
func (s *Script) start(id string, machine *resilience.Machine) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	var live *liveResults
	if machine.Mode() == resilience.Live {
		live = s.subscribe(id)
	}

	s.mu.Lock()
	s.machine = machine
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.run(ctx, id, machine, live)
	}()
}

type progressEvent struct {
	SessionID string  `json:"sessionId"`
	Progress  float64 `json:"progress"`
}

type feedbackEvent struct {
	SessionID string `json:"sessionId"`
	models.AgentFeedback
}

// liveResults collects pushed results of one session.
type liveResults struct {
	gotFeedback  chan struct{}
	finished     chan struct{}
	feedbackOnce sync.Once
	finishOnce   sync.Once
	unsubs       []func()
}

func (l *liveResults) unsubscribe() {
	for _, u := range l.unsubs {
		u()
	}
}

func (s *Script) subscribe(id string) *liveResults {
	l := &liveResults{gotFeedback: make(chan struct{}), finished: make(chan struct{})}
	if s.events == nil {
		return l
	}
	logger := s.hooks.logger().WithField("session", id)

	l.unsubs = append(l.unsubs,
		s.events.On(events.EventAnalysisProgress, func(raw json.RawMessage) {
			var ev progressEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				logger.WithError(err).Debug("Ignoring malformed progress event")
				return
			}
			if ev.SessionID != "" && ev.SessionID != id {
				return
			}
			s.store.UpdateProgress(id, ev.Progress)
			if ev.Progress >= 100 && s.store.Complete(id) {
				l.finishOnce.Do(func() { close(l.finished) })
			}
		}),
		s.events.On(events.EventAnalysisFeedback, func(raw json.RawMessage) {
			var ev feedbackEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				logger.WithError(err).Debug("Ignoring malformed feedback event")
				return
			}
			if ev.SessionID != "" && ev.SessionID != id {
				return
			}
			if s.store.AppendFeedback(id, ev.AgentFeedback) {
				l.feedbackOnce.Do(func() { close(l.gotFeedback) })
			}
		}),
	)
	return l
}

func (s *Script) run(ctx context.Context, id string, machine *resilience.Machine, live *liveResults) {
	logger := s.hooks.logger().WithField("session", id)

	if live != nil {
		grace := time.NewTimer(s.grace)
		select {
		case <-ctx.Done():
			grace.Stop()
			live.unsubscribe()
			return
		case <-live.finished:
			grace.Stop()
			live.unsubscribe()
			return
		case <-live.gotFeedback:
			// The backend is delivering; it owns the session from here.
			grace.Stop()
			select {
			case <-ctx.Done():
			case <-live.finished:
			}
			live.unsubscribe()
			return
		case <-grace.C:
		}
		live.unsubscribe()
		logger.Info("No analysis results from backend, simulating")
		machine.ForceDemo()
	}

	last := len(s.sim.ScriptFeedback()) - 1
	err := s.sim.RunScriptAnalysis(ctx, s.interval, func(i int, fb models.AgentFeedback, progress float64) {
		s.store.AppendFeedback(id, fb)
		s.store.UpdateProgress(id, progress)
		if i == last {
			s.store.Complete(id)
		}
	})
	if err != nil {
		logger.Debug("Simulated analysis cancelled")
	}
}

// Mode returns the mode of the current session, Live when there is none.
func (s *Script) Mode() resilience.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.machine == nil {
		return resilience.Live
	}
	return s.machine.Mode()
}

// Cancel stops pending result collection. No store write happens after it
// returns.
func (s *Script) Cancel() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Wait blocks until the current session is completed or failed, or ctx is
// done, and returns the latest snapshot.
func (s *Script) Wait(ctx context.Context) (models.ScriptAnalysis, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			cur, _ := s.store.Current()
			return cur, ctx.Err()
		}
	}
	cur, ok := s.store.Current()
	if !ok {
		return cur, errors.NoSession(models.ModuleScript.String())
	}
	return cur, nil
}

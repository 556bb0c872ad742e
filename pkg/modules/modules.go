// Package modules holds the per-module controllers. A controller turns a
// user action into store mutations, deciding per call whether results come
// from the backend or from the simulator.
package modules

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/pkg/resilience"
	"github.com/sirupsen/logrus"
)

// ModeRecorder observes mode changes of every controller.
type ModeRecorder interface {
	ModeTransition(module models.Module, from, to resilience.Mode)
}

// Notifier receives informational messages meant for the user, such as the
// switch to demo mode. It is never used for errors.
type Notifier func(module models.Module, message string)

// demoNotice is shown once per session when results become simulated.
const demoNotice = "Backend unavailable, using demo mode"

// Hooks are the observers shared by all controllers.
type Hooks struct {
	Logger   *logrus.Entry
	Recorder ModeRecorder
	Notify   Notifier
}

func (h Hooks) logger() *logrus.Entry {
	if h.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return h.Logger
}

// watch wires a machine to the hooks. Machines sharing notice surface at
// most one demo notice between them.
func (h Hooks) watch(m *resilience.Machine, module models.Module, sessionID string, notice *sync.Once) {
	m.OnTransition(func(t resilience.Transition) {
		entry := h.logger().WithFields(logrus.Fields{
			"module":   module.String(),
			"session":  sessionID,
			"from":     t.From.String(),
			"to":       t.To.String(),
			"failures": t.Failures,
		})
		if t.Cause != nil {
			entry = entry.WithError(t.Cause)
		}
		entry.Info("Mode changed")
		if h.Recorder != nil {
			h.Recorder.ModeTransition(module, t.From, t.To)
		}
		if t.To == resilience.Demo && h.Notify != nil {
			notice.Do(func() { h.Notify(module, demoNotice) })
		}
	})
}

// canceled reports whether err stems from the caller giving up.
func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded))
}

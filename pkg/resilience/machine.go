// Package resilience decides when a module stops calling the backend and
// switches to locally simulated results.
package resilience

import (
	"fmt"
	"sync"

	"github.com/grovetools/lumin/errors"
)

// Mode is the operating mode of a module.
type Mode int

const (
	// Live attempts remote calls.
	Live Mode = iota
	// Demo skips remote calls and simulates results.
	Demo
)

func (m Mode) String() string {
	switch m {
	case Live:
		return "live"
	case Demo:
		return "demo"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// CountPolicy selects which failures count toward the threshold.
type CountPolicy int

const (
	// CountAll counts unreachable backends and backends answering with an error.
	CountAll CountPolicy = iota
	// CountNetworkOnly counts only unreachable backends.
	CountNetworkOnly
)

// DefaultThreshold is the number of consecutive failures tolerated by the
// frame submission loop.
const DefaultThreshold = 3

// Policy configures a Machine.
type Policy struct {
	Threshold int
	Count     CountPolicy
}

// Transition is the effect of one recorded outcome.
type Transition struct {
	From     Mode
	To       Mode
	Failures int
	Changed  bool
	Cause    error
}

// Machine tracks consecutive failures. Live becomes Demo once the counter
// reaches the threshold; Demo is final for the lifetime of the Machine, so a
// new session needs a new Machine.
type Machine struct {
	mu           sync.Mutex
	policy       Policy
	mode         Mode
	failures     int
	onTransition []func(Transition)
}

// New creates a Live machine.
func New(policy Policy) *Machine {
	if policy.Threshold < 1 {
		policy.Threshold = 1
	}
	return &Machine{policy: policy}
}

// NewMultiStrike creates a machine for continuous calls that tolerates
// threshold-1 consecutive failures.
func NewMultiStrike(threshold int, count CountPolicy) *Machine {
	return New(Policy{Threshold: threshold, Count: count})
}

// NewOneShot creates a machine that falls back on the first failure. It is
// used for the initial call of a session.
func NewOneShot(count CountPolicy) *Machine {
	return New(Policy{Threshold: 1, Count: count})
}

// OnTransition registers a hook called after every mode change. Hooks run
// synchronously, outside the machine's lock.
func (m *Machine) OnTransition(fn func(Transition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTransition = append(m.onTransition, fn)
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Failures returns the consecutive failure count.
func (m *Machine) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

// ShouldAttempt reports whether a remote call should be made.
func (m *Machine) ShouldAttempt() bool {
	return m.Mode() == Live
}

// Counts reports whether err counts as a failure under the machine's policy.
// Errors outside the transport taxonomy, such as cancellation, never count.
func (m *Machine) Counts(err error) bool {
	if err == nil {
		return false
	}
	if errors.IsNetworkUnavailable(err) {
		return true
	}
	return m.policy.Count == CountAll && errors.IsRemote(err)
}

// Record applies the outcome of one remote attempt. A nil error resets the
// counter; a counted failure increments it. Demo ignores everything.
func (m *Machine) Record(err error) Transition {
	m.mu.Lock()
	t := Transition{From: m.mode, To: m.mode, Cause: err}
	if m.mode == Demo {
		t.Failures = m.failures
		m.mu.Unlock()
		return t
	}

	switch {
	case err == nil:
		m.failures = 0
	case m.Counts(err):
		m.failures++
		if m.failures >= m.policy.Threshold {
			m.mode = Demo
		}
	}
	t.To = m.mode
	t.Failures = m.failures
	t.Changed = t.From != t.To
	hooks := make([]func(Transition), len(m.onTransition))
	copy(hooks, m.onTransition)
	m.mu.Unlock()

	if t.Changed {
		for _, fn := range hooks {
			fn(t)
		}
	}
	return t
}

// ForceDemo switches to Demo without a failure, e.g. when the caller knows
// the backend is unusable.
func (m *Machine) ForceDemo() Transition {
	m.mu.Lock()
	t := Transition{From: m.mode, To: Demo, Failures: m.failures}
	t.Changed = m.mode != Demo
	m.mode = Demo
	hooks := make([]func(Transition), len(m.onTransition))
	copy(hooks, m.onTransition)
	m.mu.Unlock()

	if t.Changed {
		for _, fn := range hooks {
			fn(t)
		}
	}
	return t
}

package resilience

import (
	"context"
	"sync"
	"testing"

	"github.com/grovetools/lumin/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errOffline = errors.NetworkUnavailable("submit_frame", nil)
	errRemote  = errors.RemoteError("submit_frame", 500, "boom")
)

func TestThreeConsecutiveFailuresSwitchToDemo(t *testing.T) {
	m := NewMultiStrike(DefaultThreshold, CountAll)

	tr := m.Record(errOffline)
	assert.False(t, tr.Changed)
	assert.Equal(t, 1, tr.Failures)
	m.Record(errOffline)
	assert.Equal(t, Live, m.Mode())

	tr = m.Record(errOffline)
	assert.True(t, tr.Changed)
	assert.Equal(t, Live, tr.From)
	assert.Equal(t, Demo, tr.To)
	assert.False(t, m.ShouldAttempt())
}

func TestSuccessResetsCounter(t *testing.T) {
	m := NewMultiStrike(3, CountAll)
	m.Record(errOffline)
	m.Record(errOffline)
	m.Record(nil)
	assert.Equal(t, 0, m.Failures())

	m.Record(errOffline)
	m.Record(errOffline)
	assert.Equal(t, Live, m.Mode())
}

func TestDemoIsFinal(t *testing.T) {
	m := NewMultiStrike(3, CountAll)
	for i := 0; i < 3; i++ {
		m.Record(errOffline)
	}
	require.Equal(t, Demo, m.Mode())

	for i := 0; i < 10; i++ {
		tr := m.Record(nil)
		assert.False(t, tr.Changed)
		assert.Equal(t, Demo, m.Mode())
	}
}

func TestOneShot(t *testing.T) {
	m := NewOneShot(CountAll)
	tr := m.Record(errRemote)
	assert.True(t, tr.Changed)
	assert.Equal(t, Demo, m.Mode())
}

func TestCountPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy CountPolicy
		err    error
		counts bool
	}{
		{"network counts under all", CountAll, errOffline, true},
		{"remote counts under all", CountAll, errRemote, true},
		{"network counts under network-only", CountNetworkOnly, errOffline, true},
		{"remote ignored under network-only", CountNetworkOnly, errRemote, false},
		{"cancellation never counts", CountAll, context.Canceled, false},
		{"nil never counts", CountAll, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMultiStrike(3, tt.policy)
			assert.Equal(t, tt.counts, m.Counts(tt.err))
		})
	}
}

func TestUncountedFailureKeepsCounter(t *testing.T) {
	m := NewMultiStrike(3, CountNetworkOnly)
	m.Record(errOffline)
	m.Record(errRemote)
	assert.Equal(t, 1, m.Failures())
	m.Record(context.Canceled)
	assert.Equal(t, 1, m.Failures())
}

func TestOnTransitionCalledOnce(t *testing.T) {
	m := NewMultiStrike(2, CountAll)
	var calls []Transition
	m.OnTransition(func(tr Transition) { calls = append(calls, tr) })

	m.Record(errOffline)
	m.Record(errOffline)
	m.Record(errOffline)
	m.ForceDemo()

	require.Len(t, calls, 1)
	assert.Equal(t, Demo, calls[0].To)
	assert.Equal(t, 2, calls[0].Failures)
}

func TestForceDemo(t *testing.T) {
	m := NewMultiStrike(3, CountAll)
	tr := m.ForceDemo()
	assert.True(t, tr.Changed)
	assert.Equal(t, Demo, m.Mode())
}

func TestConcurrentRecord(t *testing.T) {
	m := NewMultiStrike(50, CountAll)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(errOffline)
		}()
	}
	wg.Wait()
	assert.Equal(t, Demo, m.Mode())
	assert.Equal(t, 50, m.Failures())
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "live", Live.String())
	assert.Equal(t, "demo", Demo.String())
}

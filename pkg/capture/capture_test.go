package capture

import (
	"bytes"
	"context"
	stderrors "errors"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	mu       sync.Mutex
	attached Stream
	attaches int
	detaches int
}

func (s *fakeSurface) Attach(st Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = st
	s.attaches++
}

func (s *fakeSurface) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = nil
	s.detaches++
}

func (s *fakeSurface) current() Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

type countingRecorder struct {
	captured atomic.Int64
	skipped  atomic.Int64
}

func (r *countingRecorder) FrameCaptured() { r.captured.Add(1) }
func (r *countingRecorder) FrameSkipped()  { r.skipped.Add(1) }

func newManager(src Source) *Manager {
	return NewManager(Options{Source: src})
}

func TestStartAttachesAndEnumerates(t *testing.T) {
	src := NewSyntheticSource(2, 64, 48)
	m := newManager(src)
	surface := &fakeSurface{}

	require.NoError(t, m.Start(context.Background(), surface, ""))

	assert.True(t, m.Active())
	assert.Equal(t, "synthetic-0", m.CurrentDevice())
	assert.Len(t, m.Devices(), 2)
	require.NotNil(t, surface.current())
	assert.Equal(t, "synthetic-0", surface.current().ID())
}

func TestStartReleasesPreviousStream(t *testing.T) {
	src := NewSyntheticSource(2, 64, 48)
	m := newManager(src)

	require.NoError(t, m.Start(context.Background(), nil, "synthetic-0"))
	require.NoError(t, m.Start(context.Background(), nil, "synthetic-1"))

	assert.Equal(t, 0, src.OpenCount("synthetic-0"))
	assert.Equal(t, 1, src.OpenCount("synthetic-1"))
	assert.Equal(t, 1, src.TotalOpen())
}

func TestStopIsIdempotent(t *testing.T) {
	src := NewSyntheticSource(1, 64, 48)
	m := newManager(src)
	surface := &fakeSurface{}

	m.Stop()
	require.NoError(t, m.Start(context.Background(), surface, ""))
	m.Stop()
	m.Stop()

	assert.False(t, m.Active())
	assert.Equal(t, "", m.CurrentDevice())
	assert.Equal(t, 0, src.TotalOpen())
	assert.Equal(t, 1, surface.detaches)
	assert.Nil(t, m.CaptureFrame())
}

func TestStartErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{"permission", ErrPermissionDenied, errors.ErrCodeDevicePermissionDenied},
		{"not found", ErrNoDevice, errors.ErrCodeDeviceNotFound},
		{"busy", ErrDeviceBusy, errors.ErrCodeDeviceInUse},
		{"other", stderrors.New("driver crashed"), errors.ErrCodeDeviceFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(FailingSource{Err: tt.err})
			err := m.Start(context.Background(), nil, "")
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
			assert.True(t, errors.IsDevice(err))
			assert.False(t, m.Active())
		})
	}
}

func TestStartUnknownDevice(t *testing.T) {
	m := newManager(NewSyntheticSource(1, 64, 48))
	err := m.Start(context.Background(), nil, "usb-9")
	assert.Equal(t, errors.ErrCodeDeviceNotFound, errors.GetCode(err))
}

type blockingSource struct {
	*SyntheticSource
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.SyntheticSource.Open(ctx, c)
}

func TestStartReentrancyGuard(t *testing.T) {
	src := &blockingSource{
		SyntheticSource: NewSyntheticSource(1, 64, 48),
		entered:         make(chan struct{}, 1),
		release:         make(chan struct{}),
	}
	m := newManager(src)

	done := make(chan error, 1)
	go func() { done <- m.Start(context.Background(), nil, "") }()
	<-src.entered

	err := m.Start(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrStartInFlight)

	close(src.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, src.TotalOpen())
}

func TestStopDuringStartReleasesLateStream(t *testing.T) {
	src := &blockingSource{
		SyntheticSource: NewSyntheticSource(1, 64, 48),
		entered:         make(chan struct{}, 1),
		release:         make(chan struct{}),
	}
	m := newManager(src)

	done := make(chan error, 1)
	go func() { done <- m.Start(context.Background(), nil, "") }()
	<-src.entered
	m.Stop()
	close(src.release)

	require.NoError(t, <-done)
	assert.False(t, m.Active())
	assert.Equal(t, 0, src.TotalOpen())
}

func TestSwitchMovesToNextDevice(t *testing.T) {
	src := NewSyntheticSource(3, 64, 48)
	m := newManager(src)
	surface := &fakeSurface{}
	require.NoError(t, m.Start(context.Background(), surface, ""))

	for _, want := range []string{"synthetic-1", "synthetic-2", "synthetic-0"} {
		switched, err := m.Switch(context.Background())
		require.NoError(t, err)
		assert.True(t, switched)
		assert.Equal(t, want, m.CurrentDevice())
		assert.Equal(t, want, surface.current().ID())
		// The old stream is released, only the new one is held.
		assert.Equal(t, 1, src.TotalOpen())
		assert.Equal(t, 1, src.OpenCount(want))
	}
}

func TestSwitchFailureKeepsOldStream(t *testing.T) {
	src := NewSyntheticSource(2, 64, 48)
	m := newManager(src)
	require.NoError(t, m.Start(context.Background(), nil, ""))
	src.FailOpen("synthetic-1", ErrDeviceBusy)

	switched, err := m.Switch(context.Background())
	assert.False(t, switched)
	assert.Equal(t, errors.ErrCodeDeviceInUse, errors.GetCode(err))
	assert.Equal(t, "synthetic-0", m.CurrentDevice())
	assert.Equal(t, 1, src.OpenCount("synthetic-0"))
	assert.NotNil(t, m.CaptureFrame())
}

func TestSwitchSingleDevice(t *testing.T) {
	src := NewSyntheticSource(1, 64, 48)
	m := newManager(src)
	require.NoError(t, m.Start(context.Background(), nil, ""))

	switched, err := m.Switch(context.Background())
	require.NoError(t, err)
	assert.False(t, switched)
	assert.Equal(t, "synthetic-0", m.CurrentDevice())
}

func TestSwitchWithoutStream(t *testing.T) {
	m := newManager(NewSyntheticSource(2, 64, 48))
	switched, err := m.Switch(context.Background())
	assert.False(t, switched)
	assert.Equal(t, errors.ErrCodeDeviceNotReady, errors.GetCode(err))
}

func TestCaptureFrame(t *testing.T) {
	rec := &countingRecorder{}
	src := NewSyntheticSource(1, 64, 48)
	m := NewManager(Options{Source: src, Quality: 70, Recorder: rec})
	require.NoError(t, m.Start(context.Background(), nil, ""))

	f1 := m.CaptureFrame()
	f2 := m.CaptureFrame()
	require.NotNil(t, f1)
	require.NotNil(t, f2)

	assert.Equal(t, 64, f1.Width)
	assert.Equal(t, 48, f1.Height)
	assert.Less(t, f1.Seq, f2.Seq)
	assert.NotEqual(t, f1.TraceID, f2.TraceID)
	assert.Contains(t, f1.DataURL(), "data:image/jpeg;base64,")

	img, err := jpeg.Decode(bytes.NewReader(f1.Data))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, int64(2), rec.captured.Load())
}

func TestCaptureFrameRequestedSize(t *testing.T) {
	src := NewSyntheticSource(1, 64, 48)
	m := NewManager(Options{Source: src, Defaults: Constraints{Width: 32, Height: 24}})
	require.NoError(t, m.Start(context.Background(), nil, ""))

	f := m.CaptureFrame()
	require.NotNil(t, f)
	assert.Equal(t, 32, f.Width)
	assert.Equal(t, 24, f.Height)
}

func TestCaptureFrameNotReady(t *testing.T) {
	rec := &countingRecorder{}
	src := NewSyntheticSource(1, 64, 48)
	m := NewManager(Options{Source: src, Recorder: rec})

	assert.Nil(t, m.CaptureFrame(), "no stream")

	require.NoError(t, m.Start(context.Background(), nil, ""))
	src.SetNotReady(true)
	assert.Nil(t, m.CaptureFrame(), "zero dimensions")

	src.SetNotReady(false)
	assert.NotNil(t, m.CaptureFrame())
	assert.Equal(t, int64(2), rec.skipped.Load())
}

func TestLoopSkipsEmptyFrames(t *testing.T) {
	var n atomic.Int64
	loop := Loop{
		Interval: 5 * time.Millisecond,
		Capture: func() *models.Frame {
			if n.Add(1)%2 == 0 {
				return nil
			}
			return &models.Frame{Seq: n.Load()}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan *models.Frame, 100)
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx, func(ctx context.Context, f *models.Frame) { ticks <- f })
	}()

	for i := 0; i < 3; i++ {
		select {
		case f := <-ticks:
			assert.NotNil(t, f)
			assert.Equal(t, int64(1), f.Seq%2)
		case <-time.After(2 * time.Second):
			t.Fatal("loop did not tick")
		}
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLoopStopsPromptly(t *testing.T) {
	loop := Loop{Interval: time.Hour, Capture: func() *models.Frame { return &models.Frame{} }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := loop.Run(ctx, func(context.Context, *models.Frame) { called = true })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

package capture

import (
	"bytes"
	"context"
	"image/jpeg"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/sirupsen/logrus"
)

// DefaultQuality is the JPEG quality of captured frames.
const DefaultQuality = 80

// FrameRecorder observes frame extraction.
type FrameRecorder interface {
	FrameCaptured()
	FrameSkipped()
}

// Options configures a Manager.
type Options struct {
	Source   Source
	// Defaults apply when no device id is requested. A zero size keeps the
	// source's native resolution.
	Defaults Constraints
	Quality  int
	Logger   *logrus.Entry
	Recorder FrameRecorder
}

// Manager holds at most one open stream.
type Manager struct {
	source   Source
	defaults Constraints
	quality  int
	logger   *logrus.Entry
	recorder FrameRecorder
	now      func() time.Time

	mu       sync.Mutex
	stream   Stream
	surface  Surface
	devices  []DeviceInfo
	starting bool
	gen      uint64
	seq      int64
}

// NewManager creates a Manager with no open stream.
func NewManager(opts Options) *Manager {
	if opts.Quality < 1 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	if opts.Defaults.DeviceID == "" && opts.Defaults.FacingMode == "" {
		opts.Defaults.FacingMode = "user"
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		source:   opts.Source,
		defaults: opts.Defaults,
		quality:  opts.Quality,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		now:      time.Now,
	}
}

// Start acquires a device, releasing any stream held before, and attaches it
// to surface. An empty deviceID selects the default constraints.
func (m *Manager) Start(ctx context.Context, surface Surface, deviceID string) error {
	m.mu.Lock()
	if m.starting {
		m.mu.Unlock()
		return ErrStartInFlight
	}
	m.starting = true
	old, oldSurface := m.stream, m.surface
	m.stream, m.surface = nil, nil
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	if oldSurface != nil {
		oldSurface.Detach()
	}
	if old != nil {
		_ = old.Close()
	}

	c := m.defaults
	if deviceID != "" {
		c = Constraints{DeviceID: deviceID}
	}
	st, err := m.source.Open(ctx, c)
	if err != nil {
		m.mu.Lock()
		m.starting = false
		m.mu.Unlock()
		m.logger.WithError(err).WithField("device", deviceID).Warn("Failed to start camera")
		return deviceError(err, deviceID)
	}

	devices, derr := m.source.Devices(ctx)
	if derr != nil {
		m.logger.WithError(derr).Debug("Failed to enumerate devices")
	}

	m.mu.Lock()
	m.starting = false
	if m.gen != gen {
		// Stopped while acquiring.
		m.mu.Unlock()
		_ = st.Close()
		return nil
	}
	m.stream = st
	m.surface = surface
	if derr == nil {
		m.devices = devices
	}
	m.mu.Unlock()

	if surface != nil {
		surface.Attach(st)
	}
	m.logger.WithField("device", st.ID()).Info("Camera started")
	return nil
}

// Stop releases the stream and detaches the surface. It is safe to call at
// any time and more than once.
func (m *Manager) Stop() {
	m.mu.Lock()
	st, sf := m.stream, m.surface
	m.stream, m.surface = nil, nil
	m.gen++
	m.mu.Unlock()

	if sf != nil {
		sf.Detach()
	}
	if st != nil {
		_ = st.Close()
		m.logger.WithField("device", st.ID()).Info("Camera stopped")
	}
}

// Switch moves to the next enumerated device. The new device is opened
// before the old one is released, so a failure leaves the old stream
// active. With one device or fewer it reports false and does nothing.
func (m *Manager) Switch(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.starting {
		m.mu.Unlock()
		return false, ErrStartInFlight
	}
	if m.stream == nil {
		m.mu.Unlock()
		return false, errors.DeviceError(errors.ErrCodeDeviceNotReady, "", nil)
	}
	if len(m.devices) <= 1 {
		m.mu.Unlock()
		return false, nil
	}
	idx := 0
	for i, d := range m.devices {
		if d.ID == m.stream.ID() {
			idx = i
			break
		}
	}
	next := m.devices[(idx+1)%len(m.devices)]
	m.starting = true
	gen := m.gen
	m.mu.Unlock()

	st, err := m.source.Open(ctx, Constraints{DeviceID: next.ID})

	m.mu.Lock()
	m.starting = false
	if err != nil {
		m.mu.Unlock()
		return false, deviceError(err, next.ID)
	}
	if m.gen != gen || m.stream == nil {
		m.mu.Unlock()
		_ = st.Close()
		return false, nil
	}
	old, sf := m.stream, m.surface
	m.stream = st
	m.mu.Unlock()

	if sf != nil {
		sf.Attach(st)
	}
	_ = old.Close()
	m.logger.WithFields(logrus.Fields{"from": old.ID(), "to": st.ID()}).Info("Camera switched")
	return true, nil
}

// CaptureFrame encodes the current picture as JPEG. It returns nil when no
// stream is open or the stream has no picture yet.
func (m *Manager) CaptureFrame() *models.Frame {
	m.mu.Lock()
	st := m.stream
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	frame := m.capture(st, seq)
	if m.recorder != nil {
		if frame == nil {
			m.recorder.FrameSkipped()
		} else {
			m.recorder.FrameCaptured()
		}
	}
	return frame
}

func (m *Manager) capture(st Stream, seq int64) *models.Frame {
	if st == nil {
		return nil
	}
	img, err := st.Snapshot()
	if err != nil || img == nil {
		return nil
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: m.quality}); err != nil {
		m.logger.WithError(err).Debug("Failed to encode frame")
		return nil
	}
	return &models.Frame{
		Seq:       seq,
		TraceID:   uuid.NewString(),
		Timestamp: m.now(),
		Width:     b.Dx(),
		Height:    b.Dy(),
		Data:      buf.Bytes(),
	}
}

// Active reports whether a stream is open.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream != nil
}

// CurrentDevice returns the id of the open stream, or "".
func (m *Manager) CurrentDevice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return ""
	}
	return m.stream.ID()
}

// Devices returns the devices enumerated at the last start.
func (m *Manager) Devices() []DeviceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeviceInfo(nil), m.devices...)
}

package capture

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/grovetools/lumin/pkg/simulator"
)

// SyntheticSource is a software camera producing a moving test picture. It
// stands in for real hardware in the CLI and in tests.
type SyntheticSource struct {
	mu       sync.Mutex
	devices  []DeviceInfo
	width    int
	height   int
	open     map[string]int
	failOpen map[string]error
	notReady bool
}

// NewSyntheticSource creates n devices producing width x height pictures.
// The first device is the user-facing one.
func NewSyntheticSource(n, width, height int) *SyntheticSource {
	if n < 1 {
		n = 1
	}
	devices := make([]DeviceInfo, n)
	for i := range devices {
		devices[i] = DeviceInfo{ID: fmt.Sprintf("synthetic-%d", i), Label: fmt.Sprintf("Synthetic Camera %d", i)}
	}
	return &SyntheticSource{
		devices:  devices,
		width:    width,
		height:   height,
		open:     make(map[string]int),
		failOpen: make(map[string]error),
	}
}

// Devices lists the synthetic devices.
func (s *SyntheticSource) Devices(ctx context.Context) ([]DeviceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DeviceInfo(nil), s.devices...), nil
}

// Open acquires a device.
func (s *SyntheticSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := c.DeviceID
	if id == "" {
		id = s.devices[0].ID
	}
	if err, ok := s.failOpen[id]; ok {
		return nil, err
	}
	found := false
	for _, d := range s.devices {
		if d.ID == id {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrNoDevice
	}

	w, h := s.width, s.height
	if c.DeviceID == "" && c.Width > 0 && c.Height > 0 {
		w, h = c.Width, c.Height
	}
	s.open[id]++
	return &syntheticStream{src: s, id: id, width: w, height: h}, nil
}

// FailOpen makes opening id fail with err. A nil err clears the failure.
func (s *SyntheticSource) FailOpen(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOpen, id)
		return
	}
	s.failOpen[id] = err
}

// SetNotReady makes every stream return an empty picture.
func (s *SyntheticSource) SetNotReady(notReady bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notReady = notReady
}

// OpenCount returns how many streams of device id are open.
func (s *SyntheticSource) OpenCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open[id]
}

// TotalOpen returns how many streams are open across all devices.
func (s *SyntheticSource) TotalOpen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.open {
		n += c
	}
	return n
}

type syntheticStream struct {
	src    *SyntheticSource
	id     string
	width  int
	height int

	mu     sync.Mutex
	seq    int64
	closed bool
}

func (st *syntheticStream) ID() string { return st.id }

func (st *syntheticStream) Snapshot() (image.Image, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return nil, fmt.Errorf("stream %s is closed", st.id)
	}
	st.src.mu.Lock()
	notReady := st.src.notReady
	st.src.mu.Unlock()
	if notReady {
		return image.NewRGBA(image.Rectangle{}), nil
	}
	st.seq++
	return simulator.SceneFrame(st.width, st.height, st.seq), nil
}

func (st *syntheticStream) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return nil
	}
	st.closed = true
	st.src.mu.Lock()
	st.src.open[st.id]--
	st.src.mu.Unlock()
	return nil
}

// FailingSource refuses every acquisition with Err.
type FailingSource struct {
	Err error
}

// Devices returns no devices.
func (f FailingSource) Devices(ctx context.Context) ([]DeviceInfo, error) {
	return nil, nil
}

// Open always fails.
func (f FailingSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	return nil, f.Err
}

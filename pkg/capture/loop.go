package capture

import (
	"context"
	"time"

	"github.com/grovetools/lumin/pkg/models"
)

// DefaultInterval is the frame sampling cadence.
const DefaultInterval = time.Second

// Loop samples frames at a fixed cadence. Ticks never overlap: a slow tick
// delays the next one instead of running beside it.
type Loop struct {
	Interval time.Duration
	Capture  func() *models.Frame
}

// Run calls tick with each captured frame until ctx is cancelled. Ticks
// without a frame are skipped. The first sample is taken one interval after
// Run starts.
func (l Loop) Run(ctx context.Context, tick func(context.Context, *models.Frame)) error {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// A tick may race with cancellation; cancellation wins.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			frame := l.Capture()
			if frame == nil {
				continue
			}
			tick(ctx, frame)
		}
	}
}

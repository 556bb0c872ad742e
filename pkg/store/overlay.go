package store

import (
	"math"
	"sync"

	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/pkg/models"
)

// DefaultOpacity is the reference overlay opacity before any change.
const DefaultOpacity = 0.5

// OverlayState is the reference image shown over the coaching view.
type OverlayState struct {
	Image   *models.ReferenceImage
	Visible bool
	Opacity float64
}

// Overlay holds the reference overlay. It is not tied to a coaching session
// and survives session stop and start.
type Overlay struct {
	mu    sync.RWMutex
	bus   *Bus
	state OverlayState
}

func newOverlay(bus *Bus) *Overlay {
	return &Overlay{bus: bus, state: OverlayState{Opacity: DefaultOpacity}}
}

func (o *Overlay) publishLocked() {
	o.bus.publish(Update{Module: models.ModuleCoaching, Type: UpdateOverlay, Payload: o.copyLocked()})
}

func (o *Overlay) copyLocked() OverlayState {
	out := o.state
	if o.state.Image != nil {
		img := *o.state.Image
		out.Image = &img
	}
	return out
}

// SetImage selects a reference image and shows it. A nil image hides the overlay.
func (o *Overlay) SetImage(img *models.ReferenceImage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if img != nil {
		cp := *img
		img = &cp
	}
	o.state.Image = img
	o.state.Visible = img != nil
	o.publishLocked()
}

// ClearImage removes the reference image.
func (o *Overlay) ClearImage() {
	o.SetImage(nil)
}

// Toggle flips visibility without touching the stored image.
func (o *Overlay) Toggle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Visible = !o.state.Visible
	o.publishLocked()
	return o.state.Visible
}

// SetOpacity sets the overlay opacity. Values outside [0,1] are rejected and
// leave the current opacity unchanged.
func (o *Overlay) SetOpacity(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return errors.Validation("opacity", "opacity must be between 0 and 1")
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Opacity = v
	o.publishLocked()
	return nil
}

// State returns a copy of the overlay state.
func (o *Overlay) State() OverlayState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.copyLocked()
}

// PresetReferences returns the built-in reference expressions.
func PresetReferences() []models.ReferenceImage {
	return []models.ReferenceImage{
		{Name: "Happy", URL: "/happy-facial-expression.jpg"},
		{Name: "Sad", URL: "/sad-facial-expression.jpg"},
		{Name: "Angry", URL: "/angry-facial-expression.jpg"},
		{Name: "Surprised", URL: "/surprised-facial-expression.jpg"},
		{Name: "Fearful", URL: "/fearful-facial-expression.jpg"},
		{Name: "Neutral", URL: "/neutral-facial-expression.jpg"},
	}
}

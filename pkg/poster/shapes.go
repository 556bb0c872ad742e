package poster

import (
	"image"
	"image/color"
	"math"
)

// Masks for draw.DrawMask. Each reports a constant alpha inside its shape
// and transparent outside.

type circleMask struct {
	cx, cy, r float64
	alpha     uint8
}

func (c circleMask) ColorModel() color.Model { return color.AlphaModel }

func (c circleMask) Bounds() image.Rectangle {
	return image.Rect(int(c.cx-c.r), int(c.cy-c.r), int(math.Ceil(c.cx+c.r)), int(math.Ceil(c.cy+c.r)))
}

func (c circleMask) At(x, y int) color.Color {
	dx, dy := float64(x)+0.5-c.cx, float64(y)+0.5-c.cy
	if dx*dx+dy*dy <= c.r*c.r {
		return color.Alpha{A: c.alpha}
	}
	return color.Alpha{}
}

// curveMask is a horizontal quadratic curve from (0,y0) over a control
// point at (w/2,y1) to (w,y2), stroked with the given width.
type curveMask struct {
	w          float64
	y0, y1, y2 float64
	stroke     float64
	alpha      uint8
}

func (c curveMask) ColorModel() color.Model { return color.AlphaModel }

func (c curveMask) Bounds() image.Rectangle {
	lo := math.Min(c.y0, math.Min(c.y1, c.y2)) - c.stroke
	hi := math.Max(c.y0, math.Max(c.y1, c.y2)) + c.stroke
	return image.Rect(0, int(lo), int(c.w), int(math.Ceil(hi)))
}

func (c curveMask) At(x, y int) color.Color {
	// The control point sits at mid-width, so x is linear in t.
	t := (float64(x) + 0.5) / c.w
	u := 1 - t
	cy := u*u*c.y0 + 2*u*t*c.y1 + t*t*c.y2
	if math.Abs(float64(y)+0.5-cy) <= c.stroke/2 {
		return color.Alpha{A: c.alpha}
	}
	return color.Alpha{}
}

// roundRectMask is a rectangle with rounded corners.
type roundRectMask struct {
	r      image.Rectangle
	radius int
}

func (m roundRectMask) ColorModel() color.Model { return color.AlphaModel }

func (m roundRectMask) Bounds() image.Rectangle { return m.r }

func (m roundRectMask) At(x, y int) color.Color {
	p := image.Pt(x, y)
	if !p.In(m.r) {
		return color.Alpha{}
	}
	rad := m.radius
	if h := m.r.Dy() / 2; rad > h {
		rad = h
	}
	cx := clampInt(x, m.r.Min.X+rad, m.r.Max.X-rad-1)
	cy := clampInt(y, m.r.Min.Y+rad, m.r.Max.Y-rad-1)
	dx, dy := x-cx, y-cy
	if dx*dx+dy*dy > rad*rad {
		return color.Alpha{}
	}
	return color.Alpha{A: 0xff}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package poster renders movie posters locally. Rendering is a pure function
// of the request: the same request always produces the same bytes.
package poster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/grovetools/lumin/pkg/models"
)

// Poster canvas size.
const (
	DefaultWidth  = 1200
	DefaultHeight = 1600
)

// Image is an encoded poster.
type Image struct {
	Data   []byte
	Width  int
	Height int
}

// DataURL returns the image as a data URL.
func (i Image) DataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Variation is one of the alternative renderings.
type Variation struct {
	ID     string
	Theme  models.Theme
	Layout models.Layout
	Image  Image
}

// variationStyles are fixed regardless of the requested theme and layout.
var variationStyles = [3]struct {
	theme  models.Theme
	layout models.Layout
}{
	{models.ThemeLight, models.LayoutClassic},
	{models.ThemeVibrant, models.LayoutModern},
	{models.ThemeMinimal, models.LayoutArtistic},
}

// Renderer draws posters.
type Renderer struct {
	Width  int
	Height int
}

// NewRenderer returns a renderer for the default canvas.
func NewRenderer() *Renderer {
	return &Renderer{Width: DefaultWidth, Height: DefaultHeight}
}

// Render draws req and encodes it as PNG.
func (r *Renderer) Render(req models.PosterRequest) (Image, error) {
	img := r.draw(req)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Image{}, fmt.Errorf("encode poster: %w", err)
	}
	b := img.Bounds()
	return Image{Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// RenderVariations draws req in the three fixed alternative styles.
func (r *Renderer) RenderVariations(req models.PosterRequest) ([3]Variation, error) {
	var out [3]Variation
	for i, style := range variationStyles {
		v := req
		v.Theme = style.theme
		v.Layout = style.layout
		img, err := r.Render(v)
		if err != nil {
			return out, err
		}
		out[i] = Variation{
			ID:     fmt.Sprintf("var-%d", i+1),
			Theme:  style.theme,
			Layout: style.layout,
			Image:  img,
		}
	}
	return out, nil
}

func (r *Renderer) size() (int, int) {
	w, h := r.Width, r.Height
	if w <= 0 || h <= 0 {
		return DefaultWidth, DefaultHeight
	}
	return w, h
}

func (r *Renderer) draw(req models.PosterRequest) *image.RGBA {
	w, h := r.size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	p := PaletteFor(req.Theme)

	if p.GradientEnd != nil {
		// 135 degree gradient from the top-left corner.
		steps := make([]color.Color, w+h-1)
		for i := range steps {
			steps[i] = gradientAt(p.Background, p.GradientEnd, float64(i)/float64(len(steps)-1))
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.Set(x, y, steps[x+y])
			}
		}
	} else {
		fill(img, img.Bounds(), p.Background)
	}

	drawLayout(img, req.Layout, p)
	drawTitle(img, req.Title, req.Layout, p)
	if req.Tagline != "" {
		drawText(img, req.Tagline, w/2, 750, 40, p.Accent)
	}
	drawGenres(img, req.Genre, p)
	drawCast(img, req.Cast, p)
	drawText(img, "Directed by "+req.Director, w/2, h-180, 36, p.Text)
	if req.ReleaseYear != "" {
		drawText(img, req.ReleaseYear, w/2, h-100, 48, p.Primary)
	}
	return img
}

func drawLayout(img *image.RGBA, layout models.Layout, p Palette) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	switch layout {
	case models.LayoutClassic:
		const inset, line, corner = 40, 20, 60
		frame := image.Rect(inset, inset, w-inset, h-inset)
		// Border centred on the frame edge.
		fill(img, image.Rect(frame.Min.X-line/2, frame.Min.Y-line/2, frame.Max.X+line/2, frame.Min.Y+line/2), p.Primary)
		fill(img, image.Rect(frame.Min.X-line/2, frame.Max.Y-line/2, frame.Max.X+line/2, frame.Max.Y+line/2), p.Primary)
		fill(img, image.Rect(frame.Min.X-line/2, frame.Min.Y-line/2, frame.Min.X+line/2, frame.Max.Y+line/2), p.Primary)
		fill(img, image.Rect(frame.Max.X-line/2, frame.Min.Y-line/2, frame.Max.X+line/2, frame.Max.Y+line/2), p.Primary)

		for _, r := range []image.Rectangle{
			image.Rect(inset, inset, inset+corner, inset+4),
			image.Rect(inset, inset, inset+4, inset+corner),
			image.Rect(w-inset-corner, inset, w-inset, inset+4),
			image.Rect(w-inset-4, inset, w-inset, inset+corner),
			image.Rect(inset, h-inset-4, inset+corner, h-inset),
			image.Rect(inset, h-inset-corner, inset+4, h-inset),
			image.Rect(w-inset-corner, h-inset-4, w-inset, h-inset),
			image.Rect(w-inset-4, h-inset-corner, w-inset, h-inset),
		} {
			fill(img, r, p.Primary)
		}
	case models.LayoutModern:
		alpha := uint8(25)
		blend(img, circleMask{cx: float64(w) * 0.8, cy: float64(h) * 0.2, r: 300, alpha: alpha}, p.Accent)
		blend(img, circleMask{cx: float64(w) * 0.2, cy: float64(h) * 0.8, r: 250, alpha: alpha}, p.Accent)
	case models.LayoutArtistic:
		alpha := uint8(38)
		fw, fh := float64(w), float64(h)
		blend(img, curveMask{w: fw, y0: fh * 0.3, y1: fh * 0.2, y2: fh * 0.4, stroke: 80, alpha: alpha}, p.Primary)
		blend(img, curveMask{w: fw, y0: fh * 0.7, y1: fh * 0.8, y2: fh * 0.6, stroke: 80, alpha: alpha}, p.Primary)
	}
}

func drawTitle(img *image.RGBA, title string, layout models.Layout, p Palette) {
	const size, lineHeight = 120, 130
	w := img.Bounds().Dx()
	y := 500
	if layout == models.LayoutClassic {
		y = 400
	}
	shadow := color.RGBA{A: 0x80}
	for i, line := range wrap(title, size, w-200) {
		ly := y + i*lineHeight
		drawText(img, line, w/2, ly+10, size, shadow)
		drawText(img, line, w/2, ly, size, p.Text)
	}
}

func drawGenres(img *image.RGBA, genres []string, p Palette) {
	if len(genres) == 0 {
		return
	}
	const startY, badgeW, badgeH, spacing = 850, 180, 50, 20
	w := img.Bounds().Dx()
	total := len(genres)*badgeW + (len(genres)-1)*spacing
	x := (w - total) / 2
	for _, g := range genres {
		badge := image.Rect(x, startY, x+badgeW, startY+badgeH)
		draw.DrawMask(img, badge, image.NewUniform(p.Secondary), image.Point{}, roundRectMask{r: badge, radius: 25}, badge.Min, draw.Over)
		drawText(img, g, x+badgeW/2, startY+badgeH/2, 28, p.Text)
		x += badgeW + spacing
	}
}

func drawCast(img *image.RGBA, cast []string, p Palette) {
	if len(cast) == 0 {
		return
	}
	const startY = 980
	w := img.Bounds().Dx()
	drawText(img, "STARRING", w/2, startY, 32, p.Text)
	for i, member := range cast {
		drawText(img, member, w/2, startY+60+i*50, 38, p.Text)
	}
}

// drawText stands a solid block in for a run of text, centred on (cx, cy)
// and sized from the glyph count and font size.
func drawText(img *image.RGBA, s string, cx, cy, size int, c color.Color) {
	width := textWidth(s, size)
	if width == 0 {
		return
	}
	height := size * 7 / 10
	fill(img, image.Rect(cx-width/2, cy-height/2, cx+width/2, cy+height/2), c)
}

func textWidth(s string, size int) int {
	return len([]rune(s)) * size * 55 / 100
}

// wrap breaks text into lines no wider than max.
func wrap(text string, size, max int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if textWidth(candidate, size) > max {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	return append(lines, line)
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

func blend(img *image.RGBA, mask image.Image, c color.Color) {
	r := mask.Bounds().Intersect(img.Bounds())
	draw.DrawMask(img, r, image.NewUniform(c), image.Point{}, mask, r.Min, draw.Over)
}

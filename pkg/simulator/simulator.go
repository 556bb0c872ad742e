// Package simulator produces stand-in results for modules running in demo
// mode. Shapes match what the backend returns; values are canned or drawn
// from fixed bands.
package simulator

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"sync"
	"time"

	"github.com/grovetools/lumin/pkg/models"
)

// LandmarkCount is the number of simulated facial landmarks.
const LandmarkCount = 68

// DefaultFeedbackInterval is the delay between simulated agent entries.
const DefaultFeedbackInterval = 1500 * time.Millisecond

// Band is an inclusive range a metric is sampled from.
type Band struct {
	Min, Max float64
}

// Contains reports whether v lies inside the band.
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// MetricBands are the sampling ranges of each coaching metric. The overall
// score is sampled on its own and is not derived from the other four.
var MetricBands = struct {
	EmotionalIntensity Band
	FacialSymmetry     Band
	EyeContact         Band
	MicroExpressions   Band
	OverallScore       Band
}{
	EmotionalIntensity: Band{60, 90},
	FacialSymmetry:     Band{70, 95},
	EyeContact:         Band{65, 95},
	MicroExpressions:   Band{55, 90},
	OverallScore:       Band{65, 90},
}

// PosterStages are the progress values emitted while a poster is rendered.
var PosterStages = []float64{20, 60, 90, 100}

// Simulator generates demo data. It is safe for concurrent use.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New creates a Simulator. A zero seed seeds from the clock.
func New(seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{rng: rand.New(rand.NewSource(seed)), now: time.Now}
}

func (s *Simulator) float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Simulator) sample(b Band) float64 {
	return b.Min + s.float()*(b.Max-b.Min)
}

// ScriptFeedback returns the four canned agent entries.
func (s *Simulator) ScriptFeedback() []models.AgentFeedback {
	now := s.now()
	return []models.AgentFeedback{
		{
			AgentType: models.AgentDialogue,
			Score:     85,
			Feedback:  "Strong character voices with natural flow. Dialogue feels authentic and purposeful.",
			Suggestions: []string{
				"Consider varying sentence length for more dynamic exchanges",
				"Add more subtext in key emotional scenes",
			},
			Timestamp: now,
		},
		{
			AgentType: models.AgentPlot,
			Score:     78,
			Feedback:  "Solid three-act structure with clear turning points. Pacing is generally good.",
			Suggestions: []string{
				"The second act could use more tension escalation",
				"Consider adding a subplot to enrich the main narrative",
			},
			Timestamp: now,
		},
		{
			AgentType: models.AgentCharacter,
			Score:     92,
			Feedback:  "Well-developed characters with clear motivations and arcs. Strong protagonist.",
			Suggestions: []string{
				"Supporting characters could use more distinct voices",
				"Explore the antagonist's backstory more deeply",
			},
			Timestamp: now,
		},
		{
			AgentType:   models.AgentContent,
			Score:       95,
			Feedback:    "Content is appropriate and well-balanced. No major concerns flagged.",
			Suggestions: []string{"Consider age rating implications for certain scenes"},
			Timestamp:   now,
		},
	}
}

// EmitFunc receives simulated entry i and the analysis progress after it.
type EmitFunc func(i int, fb models.AgentFeedback, progress float64)

// RunScriptAnalysis emits the canned feedback entries interval apart, the
// first one immediately. It returns ctx.Err() if cancelled before the last
// entry, nil otherwise.
func (s *Simulator) RunScriptAnalysis(ctx context.Context, interval time.Duration, emit EmitFunc) error {
	entries := s.ScriptFeedback()
	for i, fb := range entries {
		if i > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		fb.Timestamp = s.now()
		emit(i, fb, float64(i+1)/float64(len(entries))*100)
	}
	return nil
}

// CoachingMetrics samples one metrics snapshot.
func (s *Simulator) CoachingMetrics() models.CoachingMetrics {
	return models.CoachingMetrics{
		EmotionalIntensity: s.sample(MetricBands.EmotionalIntensity),
		FacialSymmetry:     s.sample(MetricBands.FacialSymmetry),
		EyeContact:         s.sample(MetricBands.EyeContact),
		MicroExpressions:   s.sample(MetricBands.MicroExpressions),
		OverallScore:       s.sample(MetricBands.OverallScore),
	}
}

// Landmarks generates a fresh set of facial landmarks in normalized frame
// coordinates: x in [0.3,0.7], y in [0.2,0.8], z in [0,0.1].
func (s *Simulator) Landmarks() []models.FacialLandmark {
	out := make([]models.FacialLandmark, LandmarkCount)
	for i := range out {
		z := s.float() * 0.1
		out[i] = models.FacialLandmark{
			X:     0.3 + s.float()*0.4,
			Y:     0.2 + s.float()*0.6,
			Z:     &z,
			Label: fmt.Sprintf("point_%d", i),
		}
	}
	return out
}

// SceneFrame draws a synthetic camera image: a moving gradient with a face
// shaped ellipse, so consecutive frames differ.
func SceneFrame(width, height int, seq int64) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if width <= 0 || height <= 0 {
		return img
	}
	shift := int(seq * 7 % 256)
	cx, cy := width/2, height/2
	rx, ry := width/6, height/4
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{
				R: uint8((x*255/width + shift) % 256),
				G: uint8(y * 255 / height),
				B: 96,
				A: 255,
			}
			if rx > 0 && ry > 0 {
				dx := float64(x-cx) / float64(rx)
				dy := float64(y-cy) / float64(ry)
				if dx*dx+dy*dy <= 1 {
					c = color.RGBA{R: 224, G: 172, B: 105, A: 255}
				}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

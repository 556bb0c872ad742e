package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/grovetools/lumin/errors"
)

// Theme is a poster colour scheme.
type Theme string

const (
	ThemeDark    Theme = "dark"
	ThemeLight   Theme = "light"
	ThemeVibrant Theme = "vibrant"
	ThemeMinimal Theme = "minimal"
)

// Layout is a poster composition.
type Layout string

const (
	LayoutClassic  Layout = "classic"
	LayoutModern   Layout = "modern"
	LayoutArtistic Layout = "artistic"
)

// Limits on a poster request.
const (
	MaxGenres = 3
	MaxCast   = 5
)

// PosterRequest describes the poster to produce.
type PosterRequest struct {
	Title       string   `json:"title"`
	Tagline     string   `json:"tagline"`
	Genre       []string `json:"genre"`
	Cast        []string `json:"cast"`
	Director    string   `json:"director"`
	ReleaseYear string   `json:"releaseYear"`
	Theme       Theme    `json:"theme"`
	Layout      Layout   `json:"layout"`
}

// Validate checks the request before any remote call is made.
func (r PosterRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.Validation("title", "title is required")
	}
	if strings.TrimSpace(r.Director) == "" {
		return errors.Validation("director", "director is required")
	}
	if len(r.Genre) == 0 {
		return errors.Validation("genre", "at least one genre is required")
	}
	if len(r.Genre) > MaxGenres {
		return errors.Validation("genre", fmt.Sprintf("at most %d genres are allowed", MaxGenres))
	}
	if len(r.Cast) > MaxCast {
		return errors.Validation("cast", fmt.Sprintf("at most %d cast members are allowed", MaxCast))
	}
	switch r.Theme {
	case ThemeDark, ThemeLight, ThemeVibrant, ThemeMinimal:
	default:
		return errors.Validation("theme", fmt.Sprintf("unknown theme %q", r.Theme))
	}
	switch r.Layout {
	case LayoutClassic, LayoutModern, LayoutArtistic:
	default:
		return errors.Validation("layout", fmt.Sprintf("unknown layout %q", r.Layout))
	}
	return nil
}

// PosterVariation is an alternative rendering of the same request.
type PosterVariation struct {
	ID       string `json:"id"`
	ImageURL string `json:"imageUrl"`
	Theme    Theme  `json:"theme"`
	Layout   Layout `json:"layout"`
	Image    []byte `json:"-"`
}

// GeneratedPoster is the result of the poster module.
type GeneratedPoster struct {
	ID           string            `json:"id"`
	ImageURL     string            `json:"imageUrl"`
	ThumbnailURL string            `json:"thumbnailUrl"`
	CreatedAt    time.Time         `json:"createdAt"`
	Request      PosterRequest     `json:"request"`
	Variations   []PosterVariation `json:"variations"`
	Image        []byte            `json:"-"`
}

// PosterJob is the session of the poster module.
type PosterJob struct {
	ID       string           `json:"id"`
	Request  PosterRequest    `json:"request"`
	Status   Status           `json:"status"`
	Progress float64          `json:"progress"`
	Poster   *GeneratedPoster `json:"poster,omitempty"`
	Error    string           `json:"error,omitempty"`
}

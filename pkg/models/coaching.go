package models

import "time"

// CoachingMetrics is one scoring snapshot of a performance.
type CoachingMetrics struct {
	EmotionalIntensity float64 `json:"emotionalIntensity"`
	FacialSymmetry     float64 `json:"facialSymmetry"`
	EyeContact         float64 `json:"eyeContact"`
	MicroExpressions   float64 `json:"microExpressions"`
	OverallScore       float64 `json:"overallScore"`
}

// FacialLandmark is a normalized point on the face. Z is optional.
type FacialLandmark struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Z     *float64 `json:"z,omitempty"`
	Label string   `json:"label"`
}

// CoachingSession is the session of the coaching module.
type CoachingSession struct {
	ID              string           `json:"id"`
	SceneText       string           `json:"sceneText"`
	StartedAt       time.Time        `json:"startedAt"`
	Status          Status           `json:"status"`
	Progress        float64          `json:"progress"`
	Metrics         CoachingMetrics  `json:"metrics"`
	FacialLandmarks []FacialLandmark `json:"facialLandmarks"`
	Frames          int              `json:"frames"`
	Error           string           `json:"error,omitempty"`
}

// Clone returns a deep copy.
func (c CoachingSession) Clone() CoachingSession {
	out := c
	out.FacialLandmarks = append([]FacialLandmark(nil), c.FacialLandmarks...)
	return out
}

// Scene is a preset scene to rehearse.
type Scene struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// PresetScenes returns the built-in rehearsal scenes.
func PresetScenes() []Scene {
	return []Scene{
		{
			Title: "Dramatic Confrontation",
			Text:  "You betrayed me. After everything we've been through, you chose them over us. Look me in the eyes and tell me it was worth it.",
		},
		{
			Title: "Joyful Reunion",
			Text:  "I can't believe you're here! I thought I'd never see you again. This is the happiest day of my life!",
		},
		{
			Title: "Fearful Discovery",
			Text:  "What is that sound? Something's not right. We need to get out of here. Now!",
		},
	}
}

// ReferenceImage is an expression the performer can overlay on the camera view.
type ReferenceImage struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Package models holds the data types shared by the lumin stores, controllers
// and transport.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Module identifies one of the three product modules.
type Module int

const (
	ModuleScript Module = iota
	ModuleCoaching
	ModulePoster
)

// Modules returns every module in display order.
func Modules() []Module {
	return []Module{ModuleScript, ModuleCoaching, ModulePoster}
}

func (m Module) String() string {
	switch m {
	case ModuleScript:
		return "script"
	case ModuleCoaching:
		return "coaching"
	case ModulePoster:
		return "poster"
	default:
		return fmt.Sprintf("module(%d)", int(m))
	}
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusUploading Status = "uploading"
	StatusAnalyzing Status = "analyzing"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transitions are accepted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

const demoPrefix = "demo-"

// NewDemoID returns the id used for a locally generated session.
func NewDemoID(now time.Time) string {
	return fmt.Sprintf("%s%d", demoPrefix, now.UnixMilli())
}

// IsDemoID reports whether id was produced by NewDemoID. Session ids are
// otherwise opaque; this is only used for display.
func IsDemoID(id string) bool {
	return strings.HasPrefix(id, demoPrefix)
}

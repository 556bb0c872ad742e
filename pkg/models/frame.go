package models

import (
	"encoding/base64"
	"time"
)

// Frame is one encoded still taken from a capture device.
type Frame struct {
	Seq       int64
	TraceID   string
	Timestamp time.Time
	Width     int
	Height    int
	Data      []byte // JPEG
}

// DataURL renders the frame the way the backend expects it.
func (f *Frame) DataURL() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(f.Data)
}

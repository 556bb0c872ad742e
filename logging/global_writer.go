package logging

import (
	"io"
	"os"
	"sync"
)

// globalWriter is an io.Writer that delegates to an underlying writer,
// which can be swapped at runtime in a thread-safe manner.
type globalWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

// Write implements the io.Writer interface.
func (gw *globalWriter) Write(p []byte) (n int, err error) {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return gw.w.Write(p)
}

// swap changes the underlying writer and returns the previous one.
func (gw *globalWriter) swap(w io.Writer) io.Writer {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	prev := gw.w
	gw.w = w
	return prev
}

var defaultGlobalWriter = &globalWriter{w: os.Stderr}

// SetGlobalOutput redirects every logger that writes to stderr, e.g. while a
// dashboard owns the terminal. It returns the writer in use before, so the
// caller can restore it.
func SetGlobalOutput(w io.Writer) (previous io.Writer) {
	if w == nil {
		w = io.Discard
	}
	return defaultGlobalWriter.swap(w)
}

// GetGlobalOutput returns the shared writer loggers are configured with.
func GetGlobalOutput() io.Writer {
	return defaultGlobalWriter
}

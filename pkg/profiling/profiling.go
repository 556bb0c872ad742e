// Package profiling adds opt-in CPU, heap and wall-clock profiling to a
// cobra command tree.
package profiling

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	start    time.Time
	duration time.Duration
	t        *Timer
}

func (s *span) Stop() {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if s.duration == 0 {
		s.duration = time.Since(s.start)
	}
}

type noopStopper struct{}

func (noopStopper) Stop() {}

// Timer records named spans. A disabled Timer records nothing.
type Timer struct {
	mu      sync.Mutex
	enabled bool
	started time.Time
	spans   []*span
}

var defaultTimer = &Timer{}

// Enable turns on the process-wide timer.
func Enable() { defaultTimer.Enable() }

// Start begins a span on the process-wide timer.
func Start(name string) Stopper { return defaultTimer.Start(name) }

// Summarize writes the process-wide timings to w.
func Summarize(w io.Writer) { defaultTimer.Summarize(w) }

// Enable turns the timer on; the total is measured from this call.
func (t *Timer) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		t.enabled = true
		t.started = time.Now()
	}
}

// Start begins a span. Stop it, typically with defer.
func (t *Timer) Start(name string) Stopper {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return noopStopper{}
	}
	s := &span{name: name, start: time.Now(), t: t}
	t.spans = append(t.spans, s)
	return s
}

// Summarize writes one line per span in start order with its share of the
// total. Spans still running are reported up to now.
func (t *Timer) Summarize(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	total := time.Since(t.started)
	spans := append([]*span(nil), t.spans...)
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	fmt.Fprintf(w, "\n--- timing (%v) ---\n", total.Round(100*time.Microsecond))
	for _, s := range spans {
		d := s.duration
		if d == 0 {
			d = time.Since(s.start)
		}
		pct := 0.0
		if total > 0 {
			pct = float64(d) / float64(total) * 100
		}
		fmt.Fprintf(w, "  %-28s %10v %5.1f%%\n", s.name, d.Round(100*time.Microsecond), pct)
	}
}

// CobraProfiler owns the profiling flags of a command tree.
type CobraProfiler struct {
	cpuPath string
	memPath string
	timing  bool
	cpuFile *os.File
	root    Stopper
}

// NewCobraProfiler creates a profiler.
func NewCobraProfiler() *CobraProfiler {
	return &CobraProfiler{}
}

// Attach registers the flags on cmd and installs persistent pre and post run
// hooks. Subcommands defining their own persistent hooks shadow these.
func (p *CobraProfiler) Attach(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&p.cpuPath, "cpu-profile", "", "Write a CPU profile to this file")
	cmd.PersistentFlags().StringVar(&p.memPath, "mem-profile", "", "Write a heap profile to this file on exit")
	cmd.PersistentFlags().BoolVar(&p.timing, "timing", false, "Print a timing summary on exit")
	cmd.PersistentPreRunE = p.PreRun
	cmd.PersistentPostRun = p.PostRun
}

// PreRun starts the requested profiles.
func (p *CobraProfiler) PreRun(cmd *cobra.Command, args []string) error {
	if p.timing {
		Enable()
		p.root = Start(cmd.CommandPath())
	}
	if p.cpuPath != "" {
		f, err := os.Create(p.cpuPath)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		p.cpuFile = f
	}
	return nil
}

// PostRun writes the profiles. Messages go to stderr so that --json output
// stays machine readable.
func (p *CobraProfiler) PostRun(cmd *cobra.Command, args []string) {
	errOut := cmd.ErrOrStderr()
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		p.cpuFile.Close()
		p.cpuFile = nil
		fmt.Fprintf(errOut, "CPU profile written to %s\n", p.cpuPath)
	}
	if p.memPath != "" {
		if err := writeHeapProfile(p.memPath); err != nil {
			fmt.Fprintf(errOut, "could not write memory profile: %v\n", err)
		} else {
			fmt.Fprintf(errOut, "Memory profile written to %s\n", p.memPath)
		}
	}
	if p.timing {
		if p.root != nil {
			p.root.Stop()
		}
		Summarize(errOut)
	}
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

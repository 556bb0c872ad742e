package profiling

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledTimerRecordsNothing(t *testing.T) {
	tm := &Timer{}
	tm.Start("ignored").Stop()

	var buf bytes.Buffer
	tm.Summarize(&buf)
	assert.Empty(t, buf.String())
}

func TestTimerSummaryInStartOrder(t *testing.T) {
	tm := &Timer{}
	tm.Enable()
	first := tm.Start("config")
	time.Sleep(2 * time.Millisecond)
	first.Stop()
	tm.Start("script.analyze").Stop()

	var buf bytes.Buffer
	tm.Summarize(&buf)
	out := buf.String()
	require.Contains(t, out, "config")
	require.Contains(t, out, "script.analyze")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("config")), bytes.Index(buf.Bytes(), []byte("script.analyze")))
}

func TestCobraProfilerWritesHeapProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.pprof")
	root := &cobra.Command{Use: "lumin", RunE: func(*cobra.Command, []string) error { return nil }}
	NewCobraProfiler().Attach(root)

	var stderr bytes.Buffer
	root.SetErr(&stderr)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--mem-profile", path})
	require.NoError(t, root.Execute())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.Contains(t, stderr.String(), "Memory profile written")
}

package main

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

// offlineConfig points every remote at a closed port so the modules fall back
// to demo mode quickly and deterministically.
const offlineConfig = `backend_url: http://127.0.0.1:9/api
webhook_url: http://127.0.0.1:9/webhook
transport:
  timeout: 2s
events:
  enabled: false
simulator:
  feedback_interval: 10ms
  demo_grace: 50ms
  seed: 42
capture:
  interval: 20ms
  width: 64
  height: 48
`

// findLuminBinary finds the lumin binary under test.
// The binary must be built into a directory on PATH before the suite runs.
func findLuminBinary() (string, error) {
	path, err := exec.LookPath("lumin")
	if err != nil {
		return "", fmt.Errorf("could not find 'lumin' binary in PATH. Build it with 'go build -o bin/lumin ./cmd/lumin' and add ./bin to PATH")
	}
	return path, nil
}

// setupOfflineProject creates a project directory holding an offline lumin.yml
// and records it under "projectDir".
func setupOfflineProject(ctx *harness.Context) error {
	projectDir := ctx.NewDir("offline-project")
	if err := fs.WriteString(filepath.Join(projectDir, "lumin.yml"), offlineConfig); err != nil {
		return fmt.Errorf("failed to write lumin.yml: %w", err)
	}
	ctx.Set("projectDir", projectDir)
	return nil
}

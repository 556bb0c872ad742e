package main

import (
	"fmt"
	"path/filepath"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/command"
	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

// VersionScenario tests the 'version' command.
func VersionScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "lumin-basic-version",
		Steps: []harness.Step{
			harness.NewStep("Run 'lumin version'", func(ctx *harness.Context) error {
				luminBinary, err := findLuminBinary()
				if err != nil {
					return err
				}

				cmd := command.New(luminBinary, "version")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "lumin version should exit successfully"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "Version:", "Output should contain Version"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "Build Date:", "Output should contain Build Date")
			}),
		},
	}
}

// ConfigShowScenario checks that a project lumin.yml is picked up and merged
// with defaults.
func ConfigShowScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "lumin-config-show",
		Description: "Verifies that the project config is found and defaults are filled in.",
		Tags:        []string{"config"},
		Steps: []harness.Step{
			harness.NewStep("Setup offline project", setupOfflineProject),
			harness.NewStep("Run 'lumin config show'", func(ctx *harness.Context) error {
				luminBinary, err := findLuminBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(luminBinary, "config", "show").Dir(ctx.GetString("projectDir"))
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("`lumin config show` failed: %w", result.Error)
				}
				if err := assert.Contains(result.Stdout, "backend_url: http://127.0.0.1:9/api", "project backend should be used"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "failure_threshold: 3", "default threshold should be filled in")
			}),
		},
	}
}

// ConfigInvalidScenario checks that an invalid file is rejected with a
// readable error.
func ConfigInvalidScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "lumin-config-invalid",
		Description: "Verifies that 'config validate' reports an invalid backend URL.",
		Tags:        []string{"config"},
		Steps: []harness.Step{
			harness.NewStep("Validate a broken config", func(ctx *harness.Context) error {
				dir := ctx.NewDir("broken-project")
				path := filepath.Join(dir, "lumin.yml")
				if err := fs.WriteString(path, "backend_url: ftp://example.com\n"); err != nil {
					return err
				}
				luminBinary, err := findLuminBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(luminBinary, "config", "validate", path)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if err := assert.Equal(1, result.ExitCode, "an invalid config should fail"); err != nil {
					return err
				}
				return assert.Contains(result.Stderr, "backend_url", "the offending field should be named")
			}),
		},
	}
}

// HealthOfflineScenario checks that an unreachable backend is reported but
// is not an error.
func HealthOfflineScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "lumin-health-offline",
		Description: "Verifies that 'health' reports offline and exits zero.",
		Tags:        []string{"resilience"},
		Steps: []harness.Step{
			harness.NewStep("Setup offline project", setupOfflineProject),
			harness.NewStep("Run 'lumin health --json'", func(ctx *harness.Context) error {
				luminBinary, err := findLuminBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(luminBinary, "health", "--json").Dir(ctx.GetString("projectDir"))
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if err := assert.Equal(0, result.ExitCode, "health should exit successfully"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, `"online":false`, "backend should be offline")
			}),
		},
	}
}

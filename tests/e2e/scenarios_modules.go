package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/fs"
	"github.com/grovetools/tend/pkg/harness"
)

const sampleScript = `INT. KITCHEN - NIGHT

MARA stands at the sink. JONAH enters, soaked.

MARA
You said you'd call.

JONAH
I did. Forty times.
`

// ScriptDemoModeScenario analyzes a script against an unreachable backend and
// expects the four simulated agents.
func ScriptDemoModeScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "lumin-script-demo-mode",
		Description: "Verifies that script analysis falls back to simulated feedback when offline.",
		Tags:        []string{"script", "resilience"},
		Steps: []harness.Step{
			harness.NewStep("Setup offline project", setupOfflineProject),
			harness.NewStep("Analyze a fountain script", func(ctx *harness.Context) error {
				projectDir := ctx.GetString("projectDir")
				if err := fs.WriteString(filepath.Join(projectDir, "pilot.fountain"), sampleScript); err != nil {
					return err
				}
				luminBinary, err := findLuminBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(luminBinary, "script", "analyze", "pilot.fountain").Dir(projectDir)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("`lumin script analyze` failed: %w", result.Error)
				}

				if err := assert.Contains(result.Stderr, "Backend unavailable, using demo mode", "the fallback should be announced"); err != nil {
					return err
				}
				for _, agent := range []string{"dialogue", "plot", "character", "content"} {
					if err := assert.Contains(result.Stdout, agent, "feedback from every agent"); err != nil {
						return err
					}
				}
				return assert.Contains(result.Stdout, "completed", "the analysis should complete")
			}),
		},
	}
}

// ScriptRejectsUnsupportedFileScenario checks client-side file validation.
func ScriptRejectsUnsupportedFileScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "lumin-script-unsupported-file",
		Description: "Verifies that a .docx upload is refused before any remote call.",
		Tags:        []string{"script"},
		Steps: []harness.Step{
			harness.NewStep("Setup offline project", setupOfflineProject),
			harness.NewStep("Analyze a .docx", func(ctx *harness.Context) error {
				projectDir := ctx.GetString("projectDir")
				if err := fs.WriteString(filepath.Join(projectDir, "draft.docx"), "binary"); err != nil {
					return err
				}
				luminBinary, err := findLuminBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(luminBinary, "script", "analyze", "draft.docx").Dir(projectDir)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if err := assert.Equal(1, result.ExitCode, "unsupported files should fail"); err != nil {
					return err
				}
				return assert.Contains(result.Stderr, "PDF, TXT, or Fountain", "the accepted formats should be listed")
			}),
		},
	}
}

// PosterLocalRenderScenario generates a poster with the webhook down and
// checks the PNG files written locally.
func PosterLocalRenderScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "lumin-poster-local-render",
		Description: "Verifies that posters are rendered locally when the webhook is unreachable.",
		Tags:        []string{"poster", "resilience"},
		Steps: []harness.Step{
			harness.NewStep("Setup offline project", setupOfflineProject),
			harness.NewStep("Generate a poster", func(ctx *harness.Context) error {
				projectDir := ctx.GetString("projectDir")
				outDir := filepath.Join(projectDir, "posters")
				luminBinary, err := findLuminBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(luminBinary, "poster", "generate",
					"--title", "Night Shift",
					"--director", "A. Reyes",
					"--genre", "thriller,drama",
					"--theme", "vibrant",
					"--layout", "modern",
					"--out", outDir,
				).Dir(projectDir)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("`lumin poster generate` failed: %w", result.Error)
				}

				entries, err := os.ReadDir(outDir)
				if err != nil {
					return fmt.Errorf("poster directory missing: %w", err)
				}
				var pngs int
				for _, e := range entries {
					if strings.HasSuffix(e.Name(), ".png") {
						pngs++
					}
				}
				return assert.Equal(4, pngs, "the poster and three variations should be written")
			}),
		},
	}
}

// PosterValidationScenario checks that an incomplete request never reaches
// the webhook.
func PosterValidationScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "lumin-poster-validation",
		Description: "Verifies that a poster without a director is rejected.",
		Tags:        []string{"poster"},
		Steps: []harness.Step{
			harness.NewStep("Setup offline project", setupOfflineProject),
			harness.NewStep("Generate without a director", func(ctx *harness.Context) error {
				luminBinary, err := findLuminBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(luminBinary, "poster", "generate", "--title", "Untitled", "--genre", "drama").
					Dir(ctx.GetString("projectDir"))
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if err := assert.Equal(1, result.ExitCode, "validation should fail"); err != nil {
					return err
				}
				return assert.Contains(result.Stderr, "director is required", "the missing field should be named")
			}),
		},
	}
}

// CoachingDemoModeScenario runs a short coaching session offline on the
// synthetic camera.
func CoachingDemoModeScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "lumin-coaching-demo-mode",
		Description: "Verifies that coaching produces simulated metrics when offline.",
		Tags:        []string{"coaching", "resilience"},
		Steps: []harness.Step{
			harness.NewStep("Setup offline project", setupOfflineProject),
			harness.NewStep("Rehearse a preset scene", func(ctx *harness.Context) error {
				luminBinary, err := findLuminBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(luminBinary, "coach", "start", "--scene", "Joyful Reunion", "--duration", "500ms").
					Dir(ctx.GetString("projectDir"))
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("`lumin coach start` failed: %w", result.Error)
				}
				if err := assert.Contains(result.Stdout, "session demo-", "a demo session id should be issued"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "overall", "final metrics should be printed")
			}),
		},
	}
}

package main

import (
	"fmt"

	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/harness"
)

// AuthRoundTripScenario signs up, checks whoami in a second process and signs
// out again.
func AuthRoundTripScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "lumin-auth-round-trip",
		Description: "Verifies that credentials persist across processes until logout.",
		Tags:        []string{"auth"},
		Steps: []harness.Step{
			harness.NewStep("Setup offline project", setupOfflineProject),
			harness.NewStep("Sign up", func(ctx *harness.Context) error {
				luminBinary, err := findLuminBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(luminBinary, "auth", "signup",
					"--name", "Ada", "--email", "ada@example.com", "--password", "secret1").
					Dir(ctx.GetString("projectDir"))
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("`lumin auth signup` failed: %w", result.Error)
				}
				return assert.Contains(result.Stdout, "ada@example.com", "the new account should be shown")
			}),
			harness.NewStep("Check whoami", func(ctx *harness.Context) error {
				luminBinary, err := findLuminBinary()
				if err != nil {
					return err
				}
				cmd := ctx.Command(luminBinary, "auth", "whoami", "--json").Dir(ctx.GetString("projectDir"))
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("`lumin auth whoami` failed: %w", result.Error)
				}
				return assert.Contains(result.Stdout, `"email":"ada@example.com"`, "the account should persist")
			}),
			harness.NewStep("Log out", func(ctx *harness.Context) error {
				luminBinary, err := findLuminBinary()
				if err != nil {
					return err
				}
				logout := ctx.Command(luminBinary, "auth", "logout").Dir(ctx.GetString("projectDir"))
				if result := logout.Run(); result.Error != nil {
					return fmt.Errorf("`lumin auth logout` failed: %w", result.Error)
				}
				cmd := ctx.Command(luminBinary, "auth", "whoami").Dir(ctx.GetString("projectDir"))
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if err := assert.Equal(1, result.ExitCode, "whoami should fail after logout"); err != nil {
					return err
				}
				return assert.Contains(result.Stderr, "Not logged in", "the user should be told to log in")
			}),
		},
	}
}

// LogsJSONScenario checks that a command leaves structured lines in the
// daily log file and that 'logs --json' returns them.
func LogsJSONScenario() *harness.Scenario {
	return &harness.Scenario{
		Name:        "lumin-logs-json",
		Description: "Verifies that the daily log file holds JSON lines readable with 'lumin logs'.",
		Tags:        []string{"logging"},
		Steps: []harness.Step{
			harness.NewStep("Setup offline project", setupOfflineProject),
			harness.NewStep("Produce and read log lines", func(ctx *harness.Context) error {
				luminBinary, err := findLuminBinary()
				if err != nil {
					return err
				}
				projectDir := ctx.GetString("projectDir")
				if result := ctx.Command(luminBinary, "health").Dir(projectDir).Run(); result.Error != nil {
					return fmt.Errorf("`lumin health` failed: %w", result.Error)
				}
				cmd := ctx.Command(luminBinary, "logs", "--json", "--component", "transport").Dir(projectDir)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)
				if result.Error != nil {
					return fmt.Errorf("`lumin logs` failed: %w", result.Error)
				}
				return assert.Contains(result.Stdout, `"component":"transport"`, "transport lines should be returned")
			}),
		},
	}
}

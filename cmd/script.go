package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/grovetools/lumin/cli"
	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/tui/dashboard"
	"github.com/spf13/cobra"
)

// NewScriptCmd creates the `script` command group.
func NewScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Analyze screenplays",
	}
	cmd.AddCommand(newScriptAnalyzeCmd())
	return cmd
}

func newScriptAnalyzeCmd() *cobra.Command {
	var (
		watch   bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Upload a script and stream the agents' feedback",
		Long: `Uploads a PDF, TXT or Fountain script and streams the feedback of the
dialogue, plot, character and content agents. When the backend cannot be
reached the feedback is simulated.

Examples:
  lumin script analyze pilot.fountain
  lumin script analyze draft.pdf --watch
  lumin script analyze draft.txt --json`,
		Args: cobra.ExactArgs(1),
		Annotations: map[string]string{
			cli.AnnotationOffline: "An upload that cannot reach the backend is analyzed locally: the four agents report canned feedback with simulated progress.",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return errors.Validation("file", err.Error())
			}
			defer f.Close()

			s, err := startApp(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(s.Context(), timeout)
			defer cancel()

			updates := s.Store.Subscribe()
			defer s.Store.Unsubscribe(updates)

			if _, err := s.Script.Submit(ctx, filepath.Base(path), f); err != nil {
				return err
			}

			var status models.Status
			if watch && cli.Interactive(cmd) {
				m, err := dashboard.Run(ctx, dashboard.Options{
					Module:  models.ModuleScript,
					Updates: updates,
					Mode:    s.Script.Mode,
				}, cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				status = m.Status()
			} else {
				p := cli.NewProgressPrinter(cmd.OutOrStdout(), models.ModuleScript, cli.GetOptions(cmd).JSONOutput)
				if status, err = p.Follow(ctx, updates); err != nil {
					return err
				}
			}

			if status == models.StatusError {
				final, _ := s.Store.Script.Current()
				return fmt.Errorf("analysis failed: %s", final.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Show the live dashboard")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up after this long")
	return cmd
}

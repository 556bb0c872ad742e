package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/lumin/cli"
	"github.com/grovetools/lumin/tui/theme"
	"github.com/spf13/cobra"
)

// NewHealthCmd creates the `health` command.
func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the backend is reachable",
		Long: `Calls the backend health endpoint. An unreachable backend is not an error:
the modules then run in demo mode.

Examples:
  lumin health
  lumin health --json`,
		Args: cobra.NoArgs,
		Annotations: map[string]string{
			cli.AnnotationOffline: "Reports offline and exits 0.",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := startApp(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			online := s.Gateway.Health(s.Context())
			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"backend": s.Config.BackendURL,
					"online":  online,
				})
			}
			if online {
				fmt.Fprintf(out, "%s online  %s\n", theme.DefaultTheme.Success.Render(theme.IconSuccess), s.Config.BackendURL)
			} else {
				fmt.Fprintf(out, "%s offline %s\n", theme.DefaultTheme.Warning.Render(theme.IconNotice), s.Config.BackendURL)
			}
			return nil
		},
	}
}

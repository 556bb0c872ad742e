package cli

import (
	"os"
	"strconv"

	"github.com/grovetools/lumin/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// CommandOptions holds common options for lumin commands
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a new command with the standard lumin flags
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to lumin.yml config file")

	SetStyledHelp(cmd)

	return cmd
}

// GetOptions extracts common options from a command. It works before the
// command has been executed, when persistent flags are not yet merged into
// cmd.Flags().
func GetOptions(cmd *cobra.Command) CommandOptions {
	verbose, _ := strconv.ParseBool(flagValue(cmd, "verbose"))
	jsonOutput, _ := strconv.ParseBool(flagValue(cmd, "json"))

	return CommandOptions{
		ConfigFile: flagValue(cmd, "config"),
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

func flagValue(cmd *cobra.Command, name string) string {
	for _, fs := range []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags(), cmd.InheritedFlags()} {
		if f := fs.Lookup(name); f != nil {
			return f.Value.String()
		}
	}
	return ""
}

// LoadConfig loads the file named by --config, or searches for one from the
// current directory. A missing file yields the defaults.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts := GetOptions(cmd)
	if opts.ConfigFile == "" {
		return config.LoadDefault()
	}
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Interactive reports whether stdout is a terminal and JSON output was not
// requested.
func Interactive(cmd *cobra.Command) bool {
	if GetOptions(cmd).JSONOutput {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Execute runs root and reports a failure through the ErrorHandler. It
// returns the process exit code.
func Execute(root *cobra.Command) int {
	ApplyStyledHelpRecursive(root)
	if err := root.Execute(); err != nil {
		verbose, _ := root.PersistentFlags().GetBool("verbose")
		h := NewErrorHandler(verbose)
		h.Out = root.ErrOrStderr()
		h.Handle(err)
		return 1
	}
	return 0
}

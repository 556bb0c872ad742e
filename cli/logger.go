package cli

import (
	"github.com/grovetools/lumin/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// GetLogger returns the "cli" component logger adjusted by --verbose and
// --json. The underlying logger is shared, so the adjustment applies to the
// whole command.
func GetLogger(cmd *cobra.Command) *logrus.Entry {
	entry := logging.NewLogger("cli")
	opts := GetOptions(cmd)

	if opts.Verbose {
		entry.Logger.SetLevel(logrus.DebugLevel)
	}
	if opts.JSONOutput {
		entry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return entry
}

// Package cmd holds the cobra subcommands of the lumin CLI.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/lumin/cli"
	"github.com/grovetools/lumin/config"
	"github.com/grovetools/lumin/internal/app"
	"github.com/grovetools/lumin/logging"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/pkg/profiling"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the lumin command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand("lumin", "Resilient client for the lumin filmmaking assistant")
	root.Long = `lumin analyzes scripts, coaches performances from a camera and generates
posters. Every module keeps working when the backend is unreachable by
switching to locally simulated results (demo mode).`
	root.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")
	profiling.NewCobraProfiler().Attach(root)

	root.AddCommand(cli.NewVersionCommand())
	root.AddCommand(NewHealthCmd())
	root.AddCommand(NewScriptCmd())
	root.AddCommand(NewCoachCmd())
	root.AddCommand(NewPosterCmd())
	root.AddCommand(NewAuthCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewLogsCmd())
	return root
}

// session is an App bound to one command invocation.
type session struct {
	*app.App
	ctx    context.Context
	cancel context.CancelFunc
	runErr chan error
}

// startApp loads the configuration, builds the App and starts its background
// services. The returned session must be closed; closing releases the camera
// and stops any running module session, also after SIGINT.
func startApp(cmd *cobra.Command, opts ...app.Option) (*session, error) {
	return startAppWith(cmd, nil, opts...)
}

// startAppWith is startApp with a hook that adjusts the loaded configuration
// from command flags before the App is built.
func startAppWith(cmd *cobra.Command, configure func(*config.Config), opts ...app.Option) (*session, error) {
	defer profiling.Start("startup").Stop()

	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if configure != nil {
		configure(cfg)
	}
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = addr
	}

	pretty := logging.NewPrettyLogger().WithWriter(cmd.ErrOrStderr())
	base := []app.Option{
		app.WithLogger(cli.GetLogger(cmd)),
		app.WithNotifier(func(m models.Module, msg string) {
			pretty.Notice(fmt.Sprintf("%s: %s", m, msg))
		}),
	}
	a := app.New(cfg, append(base, opts...)...)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	s := &session{App: a, ctx: ctx, cancel: cancel, runErr: make(chan error, 1)}
	go func() { s.runErr <- a.Run(ctx) }()
	return s, nil
}

// Close stops the session and its background services.
func (s *session) Close() {
	s.App.Close()
	s.cancel()
	if err := <-s.runErr; err != nil {
		s.Logger.WithError(err).Warn("Background service stopped with an error")
	}
}

// Context is cancelled on SIGINT or SIGTERM.
func (s *session) Context() context.Context { return s.ctx }

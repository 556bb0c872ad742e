package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grovetools/lumin/cli"
	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/internal/app"
	"github.com/grovetools/lumin/logging"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/tui/theme"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewAuthCmd creates the `auth` command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the signed-in account",
		Long: `Accounts are kept locally; the credentials file is shared with other lumin
processes and picked up by them as it changes.`,
	}
	cmd.PersistentFlags().Duration("delay", 0, "Simulated sign-in latency")
	cmd.AddCommand(newLoginCmd(), newSignupCmd(), newLogoutCmd(), newWhoamiCmd())
	return cmd
}

func authSession(cmd *cobra.Command) (*session, error) {
	delay, _ := cmd.Flags().GetDuration("delay")
	return startApp(cmd, app.WithAuthDelay(delay))
}

// readPassword prompts for a password without echo when stdin is a terminal
// and reads one line otherwise.
func readPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printUser(cmd *cobra.Command, verb string, u *models.User) error {
	out := cmd.OutOrStdout()
	if cli.GetOptions(cmd).JSONOutput {
		return json.NewEncoder(out).Encode(u)
	}
	fmt.Fprintf(out, "%s %s %s <%s>\n", theme.DefaultTheme.Success.Render(theme.IconSuccess), verb, u.Name, u.Email)
	return nil
}

func newLoginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := readPassword(cmd)
				if err != nil {
					return err
				}
				password = p
			}
			s, err := authSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			u, err := s.Accounts.Login(s.Context(), email, password)
			if err != nil {
				return err
			}
			return printUser(cmd, "Signed in as", u)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password; prompted for when omitted")
	return cmd
}

func newSignupCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := readPassword(cmd)
				if err != nil {
					return err
				}
				password = p
			}
			s, err := authSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			u, err := s.Accounts.Signup(s.Context(), name, email, password)
			if err != nil {
				return err
			}
			return printUser(cmd, "Welcome,", u)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password; prompted for when omitted")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Accounts.Logout(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Signed out\n", theme.DefaultTheme.Success.Render(theme.IconSuccess))
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := authSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			u, err := s.Auth.CurrentUser()
			if err != nil {
				return err
			}
			if u == nil {
				return errors.New(errors.ErrCodeUnauthenticated, "not signed in")
			}
			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				return json.NewEncoder(out).Encode(u)
			}
			pretty := logging.NewPrettyLogger().WithWriter(out)
			pretty.Field("name", u.Name)
			pretty.Field("email", u.Email)
			pretty.Field("member since", u.CreatedAt.Format(time.RFC1123))
			pretty.Path("credentials", s.Auth.Path())
			return nil
		},
	}
}

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/lumin/tui/theme"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// AnnotationOffline holds what a command does when the backend cannot be
// reached. It is shown under "WITHOUT A BACKEND" in the help.
const AnnotationOffline = "lumin/offline"

const helpWidth = 72

// HelpSection renders an extra help block, e.g. the preset scenes of
// `coach start`.
type HelpSection struct {
	Title  string
	Render func(w io.Writer, t *theme.Theme)
}

var (
	sectionsMu sync.Mutex
	sections   = map[*cobra.Command][]HelpSection{}
)

// AddHelpSection appends a section printed after the flags of cmd.
func AddHelpSection(cmd *cobra.Command, s HelpSection) {
	sectionsMu.Lock()
	defer sectionsMu.Unlock()
	sections[cmd] = append(sections[cmd], s)
}

func helpSections(cmd *cobra.Command) []HelpSection {
	sectionsMu.Lock()
	defer sectionsMu.Unlock()
	return sections[cmd]
}

// SetStyledHelp applies the lumin help layout to a command.
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(renderHelp)
}

// ApplyStyledHelpRecursive applies the help layout to cmd and every
// subcommand, and silences cobra's usage dump since Execute reports errors.
func ApplyStyledHelpRecursive(cmd *cobra.Command) {
	cmd.SetHelpFunc(renderHelp)
	cmd.SetUsageFunc(func(*cobra.Command) error { return nil })
	for _, sub := range cmd.Commands() {
		ApplyStyledHelpRecursive(sub)
	}
}

func width(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 40 && cols < helpWidth {
			return cols
		}
	}
	return helpWidth
}

// wrap re-flows each paragraph of text to width, keeping blank lines and
// indented lines as written.
func wrap(text string, width int) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		if len(para) <= width || strings.HasPrefix(para, " ") {
			out = append(out, para)
			continue
		}
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= width:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		out = append(out, line)
	}
	return out
}

// splitExamples separates the "Examples:" block of a long description.
func splitExamples(long string) (string, string) {
	if i := strings.Index(long, "\nExamples:\n"); i >= 0 {
		return strings.TrimSpace(long[:i]), strings.TrimSpace(long[i+len("\nExamples:\n"):])
	}
	return strings.TrimSpace(long), ""
}

// choices splits usage strings of the form "Theme: dark, light, vibrant"
// into the label and the accepted values.
func choices(usage string) (string, []string) {
	label, list, ok := strings.Cut(usage, ": ")
	if !ok || !strings.Contains(list, ", ") {
		return usage, nil
	}
	values := strings.Split(list, ", ")
	if len(values) < 2 {
		return usage, nil
	}
	return label, values
}

func flagName(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return "-" + f.Shorthand + ", --" + f.Name
	}
	return "    --" + f.Name
}

func renderHelp(cmd *cobra.Command, _ []string) {
	w := cmd.OutOrStdout()
	t := theme.DefaultTheme
	cols := width(w) - 2
	heading := lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Orange)
	name := lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Blue)
	flagStyle := lipgloss.NewStyle().Foreground(t.Colors.Violet)
	section := func(title string) {
		fmt.Fprintf(w, "\n %s\n", heading.Render(title))
	}

	fmt.Fprintf(w, " %s\n", heading.Render(strings.ToUpper(cmd.CommandPath())))
	if cmd.Short != "" {
		fmt.Fprintf(w, " %s\n", t.Italic.Render(cmd.Short))
	}
	description, examples := splitExamples(cmd.Long)
	if description != "" && description != cmd.Short {
		fmt.Fprintln(w)
		for _, line := range wrap(description, cols) {
			fmt.Fprintf(w, " %s\n", line)
		}
	}

	if cmd.Runnable() || cmd.HasAvailableSubCommands() {
		section("USAGE")
		if cmd.Runnable() {
			fmt.Fprintf(w, " %s\n", cmd.UseLine())
		}
		if cmd.HasAvailableSubCommands() {
			fmt.Fprintf(w, " %s [command]\n", cmd.CommandPath())
		}
	}

	if cmd.HasAvailableSubCommands() {
		section("COMMANDS")
		pad := 0
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() && len(sub.Name()) > pad {
				pad = len(sub.Name())
			}
		}
		for _, sub := range cmd.Commands() {
			if !sub.IsAvailableCommand() {
				continue
			}
			fmt.Fprintf(w, " %s%s  %s\n", name.Render(sub.Name()), strings.Repeat(" ", pad-len(sub.Name())), sub.Short)
		}
	}

	var flags []*pflag.Flag
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			flags = append(flags, f)
		}
	})
	if len(flags) > 0 {
		section("FLAGS")
		pad := 0
		for _, f := range flags {
			if n := len(flagName(f)); n > pad {
				pad = n
			}
		}
		for _, f := range flags {
			label, values := choices(f.Usage)
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" {
				label += t.Muted.Render(" (default: " + f.DefValue + ")")
			}
			n := flagName(f)
			fmt.Fprintf(w, " %s%s  %s\n", flagStyle.Render(n), strings.Repeat(" ", pad-len(n)), label)
			for _, v := range values {
				bullet := theme.IconBullet + " " + v
				fmt.Fprintf(w, " %s  %s\n", strings.Repeat(" ", pad), t.Muted.Render(bullet))
			}
		}
	}

	if offline := cmd.Annotations[AnnotationOffline]; offline != "" {
		section("WITHOUT A BACKEND")
		for _, line := range wrap(offline, cols) {
			fmt.Fprintf(w, " %s %s\n", t.Demo.Render(theme.IconDemo), line)
		}
	}

	for _, s := range helpSections(cmd) {
		section(strings.ToUpper(s.Title))
		s.Render(w, t)
	}

	if examples != "" {
		section("EXAMPLES")
		root := cmd.Root().Name()
		for _, line := range strings.Split(examples, "\n") {
			fmt.Fprintf(w, " %s\n", styleExample(strings.TrimSpace(line), root, name, flagStyle, t))
		}
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "\n Use \"%s [command] --help\" for more information.\n", cmd.CommandPath())
	}
}

func styleExample(line, root string, name, flagStyle lipgloss.Style, t *theme.Theme) string {
	if strings.HasPrefix(line, "#") {
		return t.Muted.Render(line)
	}
	parts := strings.Fields(line)
	for i, p := range parts {
		switch {
		case i == 0 && p == root:
			parts[i] = name.Render(p)
		case strings.HasPrefix(p, "-"):
			parts[i] = flagStyle.Render(p)
		}
	}
	return " " + strings.Join(parts, " ")
}

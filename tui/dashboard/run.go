package dashboard

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/lumin/logging"
	"github.com/grovetools/lumin/tui/theme"
)

// Run shows the dashboard on out until the session ends, the user quits or
// ctx is done. Structured logs that would otherwise go to stderr are
// suppressed while the dashboard owns the terminal.
func Run(ctx context.Context, opts Options, in io.Reader, out io.Writer) (Model, error) {
	theme.ConfigureColorProfile(out)

	prev := logging.SetGlobalOutput(io.Discard)
	defer logging.SetGlobalOutput(prev)

	p := tea.NewProgram(New(opts),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	m, _ := final.(Model)
	if err != nil && ctx.Err() != nil {
		return m, ctx.Err()
	}
	return m, err
}

// Package dashboard renders the live state of one module session in the
// terminal. It only observes the store; it never calls the backend.
package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/pkg/resilience"
	"github.com/grovetools/lumin/pkg/store"
	"github.com/grovetools/lumin/tui/theme"
)

const defaultWidth = 72

// Options configures a Model.
type Options struct {
	Module  models.Module
	Updates <-chan store.Update
	// Mode, if set, is polled on every spinner frame.
	Mode  func() resilience.Mode
	Theme *theme.Theme
	// KeepOpen keeps the dashboard running after the session ends.
	KeepOpen bool
}

type keyMap struct {
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Quit} }
func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{{k.Quit}} }

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type updateMsg store.Update

type closedMsg struct{}

// Model is the bubbletea model of the dashboard.
type Model struct {
	opts     Options
	theme    *theme.Theme
	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	width    int

	sessionID string
	status    models.Status
	percent   float64
	mode      resilience.Mode
	errMsg    string
	lines     []string
	done      bool
}

// New creates a Model.
func New(opts Options) Model {
	th := opts.Theme
	if th == nil {
		th = theme.DefaultTheme
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = th.Accent
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(defaultWidth-10))

	m := Model{
		opts:     opts,
		theme:    th,
		spinner:  sp,
		progress: bar,
		help:     help.New(),
		width:    defaultWidth,
	}
	if opts.Mode != nil {
		m.mode = opts.Mode()
	}
	return m
}

// Done reports whether the observed session reached a terminal status.
func (m Model) Done() bool { return m.done }

// Status is the last observed session status.
func (m Model) Status() models.Status { return m.status }

// Err is the error message of a failed session.
func (m Model) Err() string { return m.errMsg }

func waitForUpdate(ch <-chan store.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return updateMsg(u)
	}
}

// Init starts listening for store updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.opts.Updates), m.spinner.Tick)
}

// Update handles store updates, keys and animation frames.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = clampWidth(msg.Width - 10)
		m.help.Width = msg.Width
		return m, nil

	case closedMsg:
		return m, tea.Quit

	case updateMsg:
		u := store.Update(msg)
		if u.Module != m.opts.Module {
			return m, waitForUpdate(m.opts.Updates)
		}
		m.apply(u)
		if m.done && !m.opts.KeepOpen {
			return m, tea.Quit
		}
		return m, waitForUpdate(m.opts.Updates)

	case spinner.TickMsg:
		if m.opts.Mode != nil {
			m.mode = m.opts.Mode()
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) apply(u store.Update) {
	if u.Type == store.UpdateCleared {
		m.sessionID, m.status, m.percent, m.errMsg, m.lines = "", "", 0, "", nil
		return
	}
	switch p := u.Payload.(type) {
	case models.ScriptAnalysis:
		m.sessionID, m.status, m.percent, m.errMsg = p.ID, p.Status, p.Progress, p.Error
		m.lines = m.lines[:0]
		for _, a := range p.Agents {
			m.lines = append(m.lines, fmt.Sprintf("%-10s %4.1f  %s", a.AgentType, a.Score, a.Feedback))
		}
	case models.CoachingSession:
		m.sessionID, m.status, m.percent, m.errMsg = p.ID, p.Status, p.Progress, p.Error
		mt := p.Metrics
		m.lines = []string{
			fmt.Sprintf("%-20s %5.1f", "emotional intensity", mt.EmotionalIntensity),
			fmt.Sprintf("%-20s %5.1f", "facial symmetry", mt.FacialSymmetry),
			fmt.Sprintf("%-20s %5.1f", "eye contact", mt.EyeContact),
			fmt.Sprintf("%-20s %5.1f", "micro expressions", mt.MicroExpressions),
			fmt.Sprintf("%-20s %5.1f", "overall", mt.OverallScore),
			fmt.Sprintf("%-20s %5d", "frames", p.Frames),
		}
	case models.PosterJob:
		m.sessionID, m.status, m.percent, m.errMsg = p.ID, p.Status, p.Progress, p.Error
		m.lines = []string{fmt.Sprintf("%s · %s / %s", p.Request.Title, p.Request.Theme, p.Request.Layout)}
		if p.Poster != nil {
			m.lines = append(m.lines, fmt.Sprintf("%d variations", len(p.Poster.Variations)))
		}
	default:
		return
	}
	m.done = m.status.Terminal()
}

// View renders the dashboard.
func (m Model) View() string {
	th := m.theme
	var b strings.Builder

	header := th.Title.Render("LUMIN · " + strings.ToUpper(m.opts.Module.String()))
	badge := th.ModeBadge(m.mode.String())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, header, "  ", badge))
	b.WriteString("\n\n")

	if m.sessionID == "" {
		b.WriteString(m.spinner.View() + " " + th.Muted.Render("waiting for a session"))
		b.WriteString("\n\n" + m.help.View(keys))
		return b.String()
	}

	b.WriteString(th.Muted.Render("session ") + m.sessionID + "\n")
	b.WriteString(th.Muted.Render("status  ") + m.renderStatus() + "\n\n")
	b.WriteString(m.progress.ViewAs(m.percent/100) + "\n")

	if len(m.lines) > 0 {
		var body strings.Builder
		for i, line := range m.lines {
			if i > 0 {
				body.WriteString("\n")
			}
			body.WriteString(theme.IconBullet + " " + line)
		}
		b.WriteString("\n" + th.Box.Width(clampWidth(m.width-4)).Render(body.String()) + "\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n" + th.Error.Render(theme.IconError+" "+m.errMsg) + "\n")
	}
	b.WriteString("\n" + m.help.View(keys))
	return b.String()
}

func (m Model) renderStatus() string {
	th := m.theme
	switch m.status {
	case models.StatusCompleted:
		return th.Success.Render(theme.IconSuccess + " completed")
	case models.StatusError:
		return th.Error.Render(theme.IconError + " error")
	default:
		return m.spinner.View() + " " + string(m.status)
	}
}

func clampWidth(w int) int {
	switch {
	case w < 20:
		return 20
	case w > 100:
		return 100
	}
	return w
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/pkg/store"
	"github.com/grovetools/lumin/tui/theme"
)

// ProgressPrinter prints store updates of one module as lines, for output
// that is not a terminal or when the dashboard is not wanted.
type ProgressPrinter struct {
	Out    io.Writer
	Module models.Module
	JSON   bool

	lastProgress float64
	agents       int
}

// NewProgressPrinter creates a printer for module.
func NewProgressPrinter(out io.Writer, module models.Module, jsonOutput bool) *ProgressPrinter {
	return &ProgressPrinter{Out: out, Module: module, JSON: jsonOutput, lastProgress: -1}
}

// Follow prints updates until the observed session reaches a terminal status,
// the channel closes or ctx is done. It returns the final status.
func (p *ProgressPrinter) Follow(ctx context.Context, updates <-chan store.Update) (models.Status, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return "", nil
			}
			if u.Module != p.Module {
				continue
			}
			if status, done := p.Print(u); done {
				return status, nil
			}
		}
	}
}

// Print writes one update. It reports the status and whether it is terminal.
func (p *ProgressPrinter) Print(u store.Update) (models.Status, bool) {
	var (
		status   models.Status
		progress float64
		errMsg   string
	)
	switch s := u.Payload.(type) {
	case models.ScriptAnalysis:
		status, progress, errMsg = s.Status, s.Progress, s.Error
		if !p.JSON {
			for _, a := range s.Agents[min(p.agents, len(s.Agents)):] {
				fmt.Fprintf(p.Out, "  %s %-10s %4.1f  %s\n", theme.IconBullet, a.AgentType, a.Score, a.Feedback)
			}
			p.agents = len(s.Agents)
		}
	case models.CoachingSession:
		status, progress, errMsg = s.Status, s.Progress, s.Error
	case models.PosterJob:
		status, progress, errMsg = s.Status, s.Progress, s.Error
	default:
		return "", false
	}

	if p.JSON {
		line, _ := json.Marshal(map[string]interface{}{
			"module":    u.Module.String(),
			"type":      string(u.Type),
			"sessionId": u.SessionID,
			"payload":   u.Payload,
		})
		fmt.Fprintln(p.Out, string(line))
		return status, status.Terminal()
	}

	t := theme.DefaultTheme
	switch {
	case status == models.StatusCompleted:
		fmt.Fprintf(p.Out, "%s %s %s completed\n", t.Success.Render(theme.IconSuccess), p.Module, u.SessionID)
	case status == models.StatusError:
		fmt.Fprintf(p.Out, "%s %s %s failed: %s\n", t.Error.Render(theme.IconError), p.Module, u.SessionID, errMsg)
	case progress != p.lastProgress:
		fmt.Fprintf(p.Out, "[%3.0f%%] %s %s\n", progress, p.Module, status)
	}
	p.lastProgress = progress
	return status, status.Terminal()
}

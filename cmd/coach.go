package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/grovetools/lumin/cli"
	"github.com/grovetools/lumin/config"
	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/internal/app"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/pkg/modules"
	"github.com/grovetools/lumin/tui/theme"
	"github.com/spf13/cobra"
)

// NewCoachCmd creates the `coach` command group.
func NewCoachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coach",
		Short: "Rehearse a scene with live expression coaching",
	}
	cmd.AddCommand(newCoachStartCmd())
	cmd.AddCommand(newCoachScenesCmd())
	return cmd
}

// resolveScene accepts a preset title (case-insensitive) or free text.
func resolveScene(input string) string {
	for _, sc := range models.PresetScenes() {
		if strings.EqualFold(sc.Title, strings.TrimSpace(input)) {
			return sc.Text
		}
	}
	return input
}

// tickPrinter writes one line per processed frame.
type tickPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	json    bool
	current func() (models.CoachingSession, bool)
}

func (p *tickPrinter) print(r modules.TickResult) {
	var m models.CoachingMetrics
	if p.current != nil {
		if cur, ok := p.current(); ok {
			m = cur.Metrics
		}
	}
	var seq int64
	if r.Frame != nil {
		seq = r.Frame.Seq
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.json {
		line, _ := json.Marshal(map[string]interface{}{
			"sessionId": r.SessionID,
			"frame":     seq,
			"mode":      r.Mode.String(),
			"simulated": r.Simulated,
			"metrics":   m,
		})
		fmt.Fprintln(p.out, string(line))
		return
	}
	fmt.Fprintf(p.out, "frame %4d  %s  overall %5.1f  eye contact %5.1f\n",
		seq, theme.DefaultTheme.ModeBadge(r.Mode.String()), m.OverallScore, m.EyeContact)
}

func newCoachStartCmd() *cobra.Command {
	var (
		scene    string
		duration time.Duration
		device   string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a coaching session on the camera",
		Long: `Opens the camera, streams frames to the backend and prints the metrics of
each processed frame. After three consecutive failed submissions the metrics
are simulated. The session is stopped and the camera released when the
duration elapses or on Ctrl-C.

Examples:
  lumin coach start --scene "Joyful Reunion"
  lumin coach start --scene "You lied to me." --duration 30s`,
		Args: cobra.NoArgs,
		Annotations: map[string]string{
			cli.AnnotationOffline: "A session the backend cannot open gets a demo- id; metrics and landmarks are simulated once frame submission gives up.",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(scene) == "" {
				return errors.Validation("scene", "a scene is required")
			}
			printer := &tickPrinter{out: cmd.OutOrStdout(), json: cli.GetOptions(cmd).JSONOutput}

			s, err := startAppWith(cmd, func(cfg *config.Config) {
				if device != "" {
					cfg.Capture.DeviceID = device
				}
			}, app.WithTickHandler(printer.print))
			if err != nil {
				return err
			}
			defer s.Close()
			printer.current = s.Store.Coaching.Current

			session, err := s.Coaching.Start(s.Context(), resolveScene(scene))
			if err != nil {
				return err
			}
			if !printer.json {
				fmt.Fprintf(cmd.OutOrStdout(), "session %s started\n", session.ID)
			}

			timer := time.NewTimer(duration)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-s.Context().Done():
			}

			if err := s.Coaching.Stop(s.Context()); err != nil && !errors.Is(err, errors.ErrCodeNoSession) {
				return err
			}
			final, _ := s.Store.Coaching.Current()
			if printer.json {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(final)
			}
			m := final.Metrics
			fmt.Fprintf(cmd.OutOrStdout(),
				"%s %d frames  intensity %.1f  symmetry %.1f  eye contact %.1f  micro %.1f  overall %.1f\n",
				theme.DefaultTheme.Success.Render(theme.IconSuccess), final.Frames,
				m.EmotionalIntensity, m.FacialSymmetry, m.EyeContact, m.MicroExpressions, m.OverallScore)
			return nil
		},
	}
	cmd.Flags().StringVarP(&scene, "scene", "s", "", "Scene text or the title of a preset scene")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 10*time.Second, "How long to rehearse")
	cmd.Flags().StringVar(&device, "device", "", "Camera device id")
	cli.AddHelpSection(cmd, cli.HelpSection{
		Title: "Preset scenes",
		Render: func(w io.Writer, t *theme.Theme) {
			for _, sc := range models.PresetScenes() {
				fmt.Fprintf(w, " %s %s\n", theme.IconBullet, t.Bold.Render(sc.Title))
			}
		},
	})
	return cmd
}

func newCoachScenesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenes",
		Short: "List the preset scenes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenes := models.PresetScenes()
			if cli.GetOptions(cmd).JSONOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(scenes)
			}
			t := theme.DefaultTheme
			for _, sc := range scenes {
				fmt.Fprintln(cmd.OutOrStdout(), t.Bold.Render(sc.Title))
				fmt.Fprintln(cmd.OutOrStdout(), "  "+t.Muted.Render(sc.Text))
			}
			return nil
		},
	}
}

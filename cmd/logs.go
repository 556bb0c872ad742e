package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/lumin/cli"
	"github.com/grovetools/lumin/config"
	"github.com/grovetools/lumin/logging"
	"github.com/grovetools/lumin/tui/theme"
	"github.com/grovetools/lumin/util/pathutil"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	var (
		follow    bool
		lines     int
		file      string
		component string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the lumin log file",
		Long: `Prints today's log file. Structured (JSON) lines are pretty-printed.

Examples:
  lumin logs --tail 50
  lumin logs -f --component transport`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = logFilePath()
			}
			p := &logPrinter{
				out:       cmd.OutOrStdout(),
				json:      cli.GetOptions(cmd).JSONOutput,
				component: component,
			}

			offset, err := printTail(file, lines, p)
			if err != nil {
				if os.IsNotExist(err) && follow {
					offset = 0
				} else if os.IsNotExist(err) {
					return fmt.Errorf("no log file at %s", file)
				} else {
					return err
				}
			}
			if !follow {
				return nil
			}

			t, err := tail.TailFile(file, tail.Config{
				Follow:    true,
				ReOpen:    true,
				MustExist: false,
				Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
				Logger:    stdlog.New(io.Discard, "", 0),
			})
			if err != nil {
				return fmt.Errorf("failed to follow %s: %w", file, err)
			}
			defer t.Cleanup()

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return t.Stop()
				case line, ok := <-t.Lines:
					if !ok {
						return t.Err()
					}
					if line.Err != nil {
						return line.Err
					}
					p.print(line.Text)
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "tail", "n", -1, "Number of lines to show from the end (default: all)")
	cmd.Flags().StringVar(&file, "file", "", "Log file to read (default: today's file)")
	cmd.Flags().StringVar(&component, "component", "", "Only show lines from this component")
	return cmd
}

// logFilePath honours a file sink configured under the logging extension.
func logFilePath() string {
	if cfg, err := config.LoadDefault(); err == nil {
		var logCfg logging.Config
		if cfg.UnmarshalExtension("logging", &logCfg) == nil && logCfg.File.Path != "" {
			if p, err := pathutil.Expand(logCfg.File.Path); err == nil {
				return p
			}
			return logCfg.File.Path
		}
	}
	return logging.DefaultLogFile(time.Now())
}

// printTail prints the last n lines of path (all when n < 0) and returns the
// offset following would resume from.
func printTail(path string, n int, p *logPrinter) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var (
		buf    []string
		offset int64
	)
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 && strings.HasSuffix(line, "\n") {
			offset += int64(len(line))
			buf = append(buf, strings.TrimRight(line, "\r\n"))
			if n >= 0 && len(buf) > n {
				buf = buf[1:]
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return offset, err
		}
	}
	for _, line := range buf {
		p.print(line)
	}
	return offset, nil
}

type logPrinter struct {
	out       io.Writer
	json      bool
	component string
}

func (p *logPrinter) print(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		if p.component != "" && !strings.Contains(line, "["+p.component+"]") {
			return
		}
		if p.json {
			data, _ := json.Marshal(map[string]interface{}{"raw_line": line})
			fmt.Fprintln(p.out, string(data))
			return
		}
		fmt.Fprintln(p.out, line)
		return
	}

	component, _ := entry["component"].(string)
	if p.component != "" && component != p.component {
		return
	}
	if p.json {
		fmt.Fprintln(p.out, line)
		return
	}

	ts, _ := entry["time"].(string)
	level, _ := entry["level"].(string)
	msg, _ := entry["msg"].(string)

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		parsed, _ = time.Parse(time.RFC3339, ts)
	}

	var levelStyle lipgloss.Style
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = theme.DefaultTheme.Error
	case "warning":
		levelStyle = theme.DefaultTheme.Warning
	case "info":
		levelStyle = theme.DefaultTheme.Info
	default:
		levelStyle = theme.DefaultTheme.Muted
	}

	var keys []string
	for k := range entry {
		switch k {
		case "time", "level", "msg", "component":
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", theme.DefaultTheme.Muted.Render(k), entry[k]))
	}

	fmt.Fprintf(p.out, "%s %s [%s] %s %s\n",
		parsed.Format("15:04:05"),
		levelStyle.Render(strings.ToUpper(level)),
		theme.DefaultTheme.Accent.Render(component),
		msg,
		strings.Join(fields, " "),
	)
}

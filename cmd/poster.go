package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/lumin/cli"
	"github.com/grovetools/lumin/pkg/models"
	"github.com/grovetools/lumin/tui/theme"
	"github.com/grovetools/lumin/util/pathutil"
	"github.com/grovetools/lumin/util/sanitize"
	"github.com/spf13/cobra"
)

// NewPosterCmd creates the `poster` command group.
func NewPosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poster",
		Short: "Generate movie posters",
	}
	cmd.AddCommand(newPosterGenerateCmd())
	return cmd
}

type posterResult struct {
	poster models.GeneratedPoster
	err    error
}

func newPosterGenerateCmd() *cobra.Command {
	var (
		req    models.PosterRequest
		themeF string
		layout string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a poster and its variations",
		Long: `Asks the poster webhook for a poster. When the webhook cannot deliver, the
poster and three variations are rendered locally and written as PNG files.

Examples:
  lumin poster generate --title "Night Shift" --director "A. Reyes" --genre thriller
  lumin poster generate --title Tides --director Mo --genre drama,romance --theme vibrant --out ./posters`,
		Args: cobra.NoArgs,
		Annotations: map[string]string{
			cli.AnnotationOffline: "The poster and its three variations are rendered locally as 1200x1600 PNG files in --out.",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Theme = models.Theme(strings.ToLower(themeF))
			req.Layout = models.Layout(strings.ToLower(layout))
			if err := req.Validate(); err != nil {
				return err
			}

			s, err := startApp(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			updates := s.Store.Subscribe()
			defer s.Store.Unsubscribe(updates)

			done := make(chan posterResult, 1)
			go func() {
				p, err := s.Poster.Generate(s.Context(), req)
				done <- posterResult{p, err}
			}()

			jsonOut := cli.GetOptions(cmd).JSONOutput
			printer := cli.NewProgressPrinter(cmd.ErrOrStderr(), models.ModulePoster, false)
			if !jsonOut {
				if _, err := printer.Follow(s.Context(), updates); err != nil {
					return err
				}
			}
			res := <-done
			if res.err != nil {
				return res.err
			}

			files, err := writePosterFiles(outDir, res.poster)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"poster": res.poster,
					"files":  files,
				})
			}
			if len(files) == 0 {
				fmt.Fprintf(out, "%s %s\n", theme.DefaultTheme.Success.Render(theme.IconSuccess), res.poster.ImageURL)
				for _, v := range res.poster.Variations {
					fmt.Fprintf(out, "  %s %s\n", theme.IconBullet, v.ImageURL)
				}
				return nil
			}
			for _, f := range files {
				fmt.Fprintf(out, "%s %s\n", theme.DefaultTheme.Success.Render(theme.IconSuccess), f)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "Movie title")
	cmd.Flags().StringVar(&req.Tagline, "tagline", "", "Tagline")
	cmd.Flags().StringSliceVar(&req.Genre, "genre", nil, "Genres, at most 3")
	cmd.Flags().StringSliceVar(&req.Cast, "cast", nil, "Cast members, at most 5")
	cmd.Flags().StringVar(&req.Director, "director", "", "Director")
	cmd.Flags().StringVar(&req.ReleaseYear, "year", "", "Release year")
	cmd.Flags().StringVar(&themeF, "theme", string(models.ThemeDark), "Theme: dark, light, vibrant, minimal")
	cmd.Flags().StringVar(&layout, "layout", string(models.LayoutClassic), "Layout: classic, modern, artistic")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for locally rendered posters")
	return cmd
}

// writePosterFiles saves locally rendered images. Remote posters carry no
// image bytes and are left at their URLs.
func writePosterFiles(dir string, p models.GeneratedPoster) ([]string, error) {
	if len(p.Image) == 0 {
		return nil, nil
	}
	dir, err := pathutil.Expand(dir)
	if err != nil {
		return nil, err
	}
	base := sanitize.ForFilename(p.Request.Title)
	if base == "" {
		base = p.ID
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	var files []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		files = append(files, path)
		return nil
	}
	if err := write(base+".png", p.Image); err != nil {
		return nil, err
	}
	for i, v := range p.Variations {
		if len(v.Image) == 0 {
			continue
		}
		name := fmt.Sprintf("%s-%d-%s-%s.png", base, i+1, v.Theme, v.Layout)
		if err := write(name, v.Image); err != nil {
			return nil, err
		}
	}
	return files, nil
}

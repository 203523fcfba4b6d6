package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	applog "github.com/janisto/lostcat/internal/platform/logging"
	"github.com/janisto/lostcat/internal/poster"
)

func (c *cli) renderCmd() *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the poster as HTML, PNG or JSON",
		Example: `  lostcat render --profile milo.yaml --format png --out milo.png
  lostcat render --profile milo.yaml --format html --locale de-DE > milo.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.opContext(cmd)
			defer cancel()

			state, err := replay(ctx, c.profilePath, c.loader(), c.now(), true)
			if err != nil {
				return err
			}
			layout := poster.Render(state.Profile, poster.Options{Locale: c.locale, Share: c.shareBuilder()})

			w := c.stdout
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}

			if err := writeLayout(w, format, layout); err != nil {
				return err
			}
			applog.LogInfo(ctx, "poster rendered",
				zap.String("format", format),
				zap.String("out", out),
				zap.String("locale", layout.Locale),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "html", "Output format: html, png or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func writeLayout(w io.Writer, format string, l poster.Layout) error {
	switch format {
	case "html":
		return poster.WriteHTML(w, l)
	case "png":
		return poster.WritePNG(w, l)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(l)
	default:
		return fmt.Errorf("unknown format %q: want html, png or json", format)
	}
}

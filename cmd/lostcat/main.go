// Command lostcat builds lost-cat posters offline from a YAML profile.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/janisto/lostcat/internal/photo"
	"github.com/janisto/lostcat/internal/platform/config"
	applog "github.com/janisto/lostcat/internal/platform/logging"
	"github.com/janisto/lostcat/internal/service/describe"
	"github.com/janisto/lostcat/internal/share"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

// cli carries the state shared by every subcommand.
type cli struct {
	stdout io.Writer
	now    func() time.Time

	loadConfig   func() (config.Config, error)
	newGenerator func(ctx context.Context, cfg config.Config) (describe.Generator, error)

	cfg         config.Config
	profilePath string
	locale      string
	timeout     time.Duration
}

func newCLI(stdout io.Writer) *cli {
	return &cli{
		stdout:       stdout,
		now:          time.Now,
		loadConfig:   config.Load,
		newGenerator: newGeminiGenerator,
	}
}

func newGeminiGenerator(ctx context.Context, cfg config.Config) (describe.Generator, error) {
	return describe.NewClient(ctx, cfg.Gemini.APIKey,
		describe.WithModel(cfg.Gemini.Model),
		describe.WithTimeout(cfg.Gemini.Timeout),
		describe.WithStrictEmpty(cfg.Gemini.StrictEmpty),
		describe.WithBaseURL(cfg.Gemini.BaseURL),
	)
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lostcat",
		Short:         "Build lost-cat posters from a profile file",
		Long:          "lostcat replays a YAML cat profile through the poster wizard and renders the poster, drafts a description or prints share links.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			c.cfg = cfg
			if err := applog.SetLevel(cfg.LogLevel); err != nil {
				return err
			}
			if c.locale == "" {
				c.locale = cfg.Poster.Locale
			}
			return nil
		},
	}
	root.SetOut(c.stdout)

	flags := root.PersistentFlags()
	flags.StringVarP(&c.profilePath, "profile", "p", "", "YAML profile of the missing cat (required)")
	flags.StringVar(&c.locale, "locale", "", "BCP 47 locale for dates (default POSTER_LOCALE)")
	flags.DurationVar(&c.timeout, "timeout", 2*time.Minute, "Overall operation timeout")
	_ = root.MarkPersistentFlagRequired("profile")

	root.AddCommand(c.renderCmd(), c.describeCmd(), c.linksCmd())
	return root
}

// opContext returns a context bounded by the --timeout flag.
func (c *cli) opContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *cli) loader() *photo.Loader {
	l := photo.NewLoader(c.cfg.Photo.MaxBytes, c.cfg.Photo.MaxDimension)
	l.MaxPixels = c.cfg.Photo.MaxPixels
	return l
}

func (c *cli) shareBuilder() share.Builder {
	return share.Builder{
		MapsEmbedKey:     c.cfg.Share.MapsEmbedKey,
		ReferralURL:      c.cfg.Share.ReferralURL,
		WhatsAppReferral: c.cfg.Share.WhatsAppReferral,
		QRSize:           c.cfg.Share.QRSize,
	}
}

func main() {
	defer func() { _ = applog.Sync() }()

	if err := newCLI(os.Stdout).rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		_ = applog.Sync()
		os.Exit(1)
	}
}

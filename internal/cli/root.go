// Package cli implements the x2notion command line.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ibeckermayer/x2notion/internal/app"
	"github.com/ibeckermayer/x2notion/internal/config"
	"github.com/ibeckermayer/x2notion/internal/dom"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	cacheDir   string
	verbose    bool
}

// NewRootCommand builds the x2notion command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "x2notion",
		Short:         "Save X/Twitter posts and threads to a Notion database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), opts.verbose)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is the user config dir)")
	root.PersistentFlags().StringVar(&opts.cacheDir, "cache-dir", "", "directory for the database, cookies and snapshots")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newSaveCommand(opts),
		newThreadCommand(opts),
		newContextCommand(opts),
		newExtractCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newQueueCommand(opts),
		newDaemonCommand(opts),
		newWatchCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("x2notion failed")
		return 1
	}
	return 0
}

func setupLogging(w io.Writer, verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	return config.Load()
}

// openApp loads config and wires the app. A nil source captures pages with Chrome.
func (o *rootOptions) openApp(source dom.Source) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, app.Paths{CacheDir: o.cacheDir}, source)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

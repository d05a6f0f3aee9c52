package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/murexstreams/murex/internal/auth"
	"github.com/murexstreams/murex/internal/config"
	"github.com/murexstreams/murex/internal/errors"
	"github.com/murexstreams/murex/internal/library"
	"github.com/murexstreams/murex/internal/logging"
	"github.com/murexstreams/murex/internal/remote"
)

var (
	cfgFile string
	jsonOut bool
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "murex",
	Short: "Play, share and back your music library from the terminal",
	Long: `Murex is a self-hosted listening station. It imports audio files
into a catalog, plays them, keeps listening history, and lets
listeners like tracks, follow artists and put small stakes on tracks
that pay out per play.

Run 'murex serve' to start a station, then drive it from any shell
with the playback commands, or run 'murex ui' for the dashboard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.murexrc)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// formatError prefers the server's own suggestion when one came back
// with the error body.
func formatError(err error) string {
	var apiErr *remote.APIError
	if stderrors.As(err, &apiErr) && apiErr.Suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", apiErr.Message, apiErr.Suggestion)
	}
	return errors.Format(err)
}

// JSONOutput returns true if JSON output is requested.
func JSONOutput() bool {
	return jsonOut
}

// Verbose returns true if verbose output is requested.
func Verbose() bool {
	return verbose
}

// isTerminal reports whether stdout is a terminal. Interactive pickers
// fall back to plain output when it is not.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// newRemoteClient returns a client for the configured station address
// with the saved session attached.
func newRemoteClient() (*remote.Client, error) {
	storage, err := auth.NewSessionStorage("")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session storage: %w", err)
	}

	c := remote.NewClient(remote.BaseURL(cfg.Remote.Listen), storage)
	if Verbose() {
		c.SetVerbose(true, func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		})
	}
	if err := c.LoadSession(); err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return c, nil
}

// resolveDBURL returns the catalog database URL, creating the library
// directory for the default sqlite file on first use.
func resolveDBURL() (string, error) {
	dir, err := cfg.Library.ResolveDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create library directory: %w", err)
	}
	return cfg.Library.ResolveDBURL()
}

// openStore opens the catalog store.
func openStore() (*library.Store, error) {
	dbURL, err := resolveDBURL()
	if err != nil {
		return nil, err
	}
	return library.OpenStore(dbURL)
}

// openLogger builds the logger from the log config. --verbose drops
// the level to debug.
func openLogger() (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if Verbose() {
		level = logging.LevelDebug
	}
	return logging.Open(level, cfg.Log.File)
}

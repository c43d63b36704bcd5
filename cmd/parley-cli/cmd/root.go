package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nfrund/parley/internal/app"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/logging"
	"github.com/spf13/cobra"
)

var outputFormat string

var rootCmd = &cobra.Command{
	Use:   "parley-cli",
	Short: "Parley CLI tool",
	Long: `Parley CLI administers the chat store and talks to a running server.

Storage commands read the same environment as the server (STORAGE_DRIVER,
SQLITE_PATH, SURREAL_*), so point them at the server's database.

Use "parley-cli [command] --help" for more information about a specific command.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "output format: table or json")
}

// withStorage opens the configured storage for the duration of fn.
func withStorage(cmd *cobra.Command, fn func(ctx context.Context, cfg config.Provider, s *app.Storage) error) error {
	cfg := config.New()
	logging.NewWithWriter(cmd.ErrOrStderr(), cfg.GetLogFormat(), "warn")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := app.OpenStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = s.Shutdown(context.Background()) }()
	return fn(ctx, cfg, s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

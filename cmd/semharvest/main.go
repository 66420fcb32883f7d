// Package main provides the semharvest binary entry point.
// Semharvest harvests ontologies, controlled vocabularies and schemas from
// git repositories into a search index, a triple-store and a vocabulary
// store.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semharvest/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semharvest"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Semantic asset harvester",
		Long: `Semharvest harvests semantic assets from git repositories.

It scans a checkout for:
- Ontologies (assets/ontologies)
- Controlled vocabularies with optional CSV rows (assets/controlled-vocabularies)
- Schemas (assets/schemas)

Metadata goes to the search index, RDF to the triple-store and vocabulary
rows to the vocabulary store. The serve command consumes harvest requests
from NATS JetStream.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		harvestCmd(flags),
		inspectCmd(flags),
		watchCmd(flags),
		serveCmd(flags),
		purgeCmd(flags),
		configCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// parseLevel maps a --log-level value to a slog level. Unknown values mean info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setup configures logging and loads the layered configuration.
func (f *globalFlags) setup() (*config.Config, *slog.Logger, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(f.logLevel)}))
	slog.SetDefault(logger)

	loader := config.NewLoader(logger)
	if f.configPath != "" {
		loader = loader.WithFile(f.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger, nil
}

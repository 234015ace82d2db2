package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yonasBSD/pingora-utils/pkg/module"
	"github.com/yonasBSD/pingora-utils/pkg/modules/headers"
	"github.com/yonasBSD/pingora-utils/pkg/modules/metrics"
	"github.com/yonasBSD/pingora-utils/pkg/modules/requestid"
	"github.com/yonasBSD/pingora-utils/pkg/modules/rewrite"
	"github.com/yonasBSD/pingora-utils/pkg/modules/staticfiles"
	"github.com/yonasBSD/pingora-utils/pkg/server"
)

var (
	// Global flags
	cfgFiles  []string
	logLevel  string
	logFormat string
)

// The pipeline is assembled once from a fixed module list. The server
// module comes first so that its settings are resolved before anything
// handles requests, static files last because it answers every request
// once a root directory is configured.
var (
	serverModule = server.NewModule()
	pipeline     = mustPipeline()
)

func mustPipeline() *module.Pipeline {
	pipe, err := module.New(
		serverModule,
		requestid.New(),
		headers.New(),
		rewrite.New(),
		metrics.New(),
		staticfiles.New(),
	)
	if err != nil {
		// A fixed module list only collides when a module is changed to
		// claim another's keys or flags.
		panic(err)
	}
	return pipe
}

var rootCmd = &cobra.Command{
	Use:   "pingora-server",
	Short: "Pluggable HTTP server assembled from modules",
	Long: `Pingora-server is a pluggable HTTP server assembled from modules.

Each request runs through a pipeline of modules until one of them answers
it: request ID tagging, custom response headers, URI rewriting, a
Prometheus metrics endpoint, and static file serving. Modules are
configured through shared YAML configuration files and command line flags;
every module contributes its own configuration keys and flags.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringSliceVarP(&cfgFiles, "config", "c", nil,
		"configuration file, repeatable; later files override earlier ones")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format (text, json)")
}

// newLogger builds the process logger from the global flags.
func newLogger() *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yonasBSD/pingora-utils/pkg/config"
	"github.com/yonasBSD/pingora-utils/pkg/module"
	"github.com/yonasBSD/pingora-utils/pkg/server"
)

var runFlags struct {
	dryRun bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the server",
	Long: `Start the server with the specified configuration.

Configuration files are merged in order, later files overriding earlier
ones, and command line flags override the files. Every module's keys live
in the same files and every module's flags are available here.

Examples:
  # Start with a configuration file
  pingora-server run --config /etc/pingora/config.yaml

  # Merge a base and a site-specific configuration
  pingora-server run -c base.yaml -c site.yaml

  # Override the listen address from the command line
  pingora-server run -c config.yaml --listen 0.0.0.0:8080

  # Check the configuration without starting the server
  pingora-server run -c config.yaml --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false,
		"load and check the configuration without starting the server")
	if err := pipeline.RegisterFlags(runCmd.Flags()); err != nil {
		panic(err)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := config.LoadAll(cfgFiles, pipeline)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := pipeline.ApplyFlags(cfg, cmd.Flags()); err != nil {
		return err
	}

	env := module.NewEnv()
	env.Logger = logger
	if len(cfgFiles) > 0 {
		dir, err := filepath.Abs(filepath.Dir(cfgFiles[0]))
		if err != nil {
			return err
		}
		env.ConfigDir = dir
	}

	if err := pipeline.Startup(cmd.Context(), cfg, env); err != nil {
		return fmt.Errorf("starting modules: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	settings := serverModule.Settings()
	logger.Info("server starting", "listen", settings.ListenAddress)
	srv := server.New(settings, pipeline, logger, server.NewMetrics(env.Metrics))
	return srv.Start(cmd.Context())
}

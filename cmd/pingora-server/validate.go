package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yonasBSD/pingora-utils/pkg/config"
)

var validateFlags struct {
	watch bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check configuration files",
	Long: `Check that the configuration files load and merge cleanly.

Every file must decode against the combined configuration of all pipeline
modules; unknown keys and values of the wrong type are reported with the
file they came from. With --watch the command keeps running and re-checks
the files whenever one of them changes.

Examples:
  # Check a single file
  pingora-server validate --config config.yaml

  # Check a base and an override file together
  pingora-server validate -c base.yaml -c site.yaml

  # Re-check on every change, e.g. while editing
  pingora-server validate -c config.yaml --watch`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.watch, "watch", false,
		"keep running and re-check when a configuration file changes")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if len(cfgFiles) == 0 {
		return errors.New("no configuration files given, use --config")
	}

	check := func() error {
		_, err := config.LoadAll(cfgFiles, pipeline)
		return err
	}

	err := check()
	if !validateFlags.watch {
		if err != nil {
			return err
		}
		fmt.Println("configuration valid")
		return nil
	}

	logger := newLogger()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
	} else {
		logger.Info("configuration valid")
	}

	// One watcher per file, funneled into a single channel.
	ctx := cmd.Context()
	changed := make(chan struct{}, 1)
	for _, file := range cfgFiles {
		ch, err := config.Watch(ctx, file, 250*time.Millisecond)
		if err != nil {
			return fmt.Errorf("watching %s: %w", file, err)
		}
		go func() {
			for range ch {
				select {
				case changed <- struct{}{}:
				default:
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			if err := check(); err != nil {
				logger.Error("configuration invalid", "error", err)
			} else {
				logger.Info("configuration valid")
			}
		}
	}
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yzharold/RCAS/internal/config"
	"github.com/yzharold/RCAS/internal/logger"
	"github.com/yzharold/RCAS/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides log_level from the configuration.
	logLevel string

	// settings are loaded before any subcommand runs.
	settings *config.Config

	// rootCmd represents the base command; subcommands do the work.
	rootCmd = &cobra.Command{
		Use:   "rcas-setup",
		Short: "Build, publish and install the RCAS distribution",
		Long: `rcas-setup packages the RCAS (RNA Centric Annotation System) source tree
into a checksummed distribution and installs it under a prefix, registering
the RCAS command.

Settings are read from rcas-settings.yaml and may be overridden by RCAS_*
environment variables (for example RCAS_PREFIX) and command line flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadSettings,
	}
)

// Execute runs the rcas-setup CLI and exits with non-zero status on error.
func Execute() {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	rootCmd.Version = version.Short()
	version.AttachCobraVersionCommand(rootCmd)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		logger.Error(ctx, err)
	}

	stop()
	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

func loadSettings(cmd *cobra.Command, _ []string) error {
	var err error

	settings, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	level := settings.LogLevel
	if cmd.Flags().Changed("log-level") {
		level = logLevel
	}

	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}

	logger.SetLevel(parsed)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(configCmd, manifestCmd, buildCmd, installCmd, verifyCmd, uninstallCmd, publishCmd, serveCmd)
}

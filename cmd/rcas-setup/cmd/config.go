package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yzharold/RCAS/internal/config"
	"github.com/yzharold/RCAS/internal/logger"
)

var (
	// overwriteConfig allows config init to replace an existing file.
	overwriteConfig bool

	errConfigExists = errors.New("settings file already exists, use --force to replace it")

	// configCmd groups settings file commands.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the settings file",
	}

	// configInitCmd writes the resolved settings to the --config path.
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write the effective settings to the settings file",
		Long: `Writes the settings currently in effect (defaults, the existing file and
RCAS_* environment overrides) to the file named by --config, so that later
runs do not depend on the environment. The file is created with mode 0600
because it may hold publish credentials.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !overwriteConfig {
				return fmt.Errorf("%w: %s", errConfigExists, configPath)
			}

			if err := config.Save(configPath, settings); err != nil {
				return err
			}

			logger.Infof(cmd.Context(), "Settings written to %s", configPath)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configInitCmd.Flags().BoolVar(&overwriteConfig, "force", false, "replace an existing settings file")
	configCmd.AddCommand(configInitCmd)
}

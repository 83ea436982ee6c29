package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yzharold/RCAS/internal/domain/manifest"
	"github.com/yzharold/RCAS/internal/service/packager"
)

// manifestCmd prints the effective package manifest.
var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the effective package manifest as TOML",
	Long: `Prints the manifest used by build: the built-in RCAS description, with values
from --manifest applied on top. The output is a valid --manifest file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := cmd.Flags().GetString("manifest")
		if err != nil {
			return err
		}

		m, err := packager.LoadManifest(path)
		if err != nil {
			return err
		}

		return manifest.Encode(cmd.OutOrStdout(), m)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	manifestCmd.Flags().StringP("manifest", "m", "", "path to a TOML manifest overriding built-in values")
}

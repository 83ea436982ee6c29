package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yzharold/RCAS/internal/service/packager"
)

var (
	// manifestPath to an optional TOML manifest replacing built-in values.
	manifestPath string
	// outputDir overrides dist_dir from the configuration.
	outputDir string

	// buildCmd packages a source tree into a distribution directory.
	buildCmd = &cobra.Command{
		Use:   "build [source-dir]",
		Short: "Build the distribution archive and descriptor",
		Long: `Collects the RCAS package modules and every file matched by the package data
globs, then writes a reproducible tar.gz archive and its checksummed descriptor
into the distribution directory. A glob matching nothing fails the build.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceDir := "."
			if len(args) > 0 {
				sourceDir = args[0]
			}

			if cmd.Flags().Changed("output") {
				settings.DistDir = outputDir
			}

			_, err := packager.Run(cmd.Context(), &packager.Options{
				ManifestPath: manifestPath,
				SourceDir:    sourceDir,
				OutputDir:    settings.DistDir,
			})

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	buildCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "path to a TOML manifest overriding built-in values")
	buildCmd.Flags().StringVarP(&outputDir, "output", "o", "", "distribution directory (default dist_dir)")
}

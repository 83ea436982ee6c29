package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yzharold/RCAS/internal/service/installer"
)

var (
	// prefix overrides the installation root from the configuration.
	prefix string
	// interpreter overrides the configured Python interpreter.
	interpreter string
	// skipRuntimeCheck installs without probing the interpreter.
	skipRuntimeCheck bool
	// force replaces commands that are running.
	force bool

	// installCmd installs a distribution under the prefix.
	installCmd = &cobra.Command{
		Use:   "install [source]",
		Short: "Install a distribution and register the RCAS command",
		Long: `Installs the distribution found in source, a directory written by build or an
http(s) URL served by serve, into <prefix>/lib/rcas and registers
<prefix>/bin/RCAS. The archive and every file are verified against the
descriptor checksums before anything is written. An existing installation
is upgraded in place and files it no longer ships are removed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyPrefixFlag(cmd)

			if cmd.Flags().Changed("interpreter") {
				settings.Interpreter = interpreter
			}

			source := settings.DistDir
			if len(args) > 0 {
				source = args[0]
			}

			record, err := installer.Install(cmd.Context(), &installer.InstallOptions{
				Source:           source,
				Prefix:           settings.Prefix,
				Interpreter:      settings.Interpreter,
				SkipRuntimeCheck: skipRuntimeCheck,
				Force:            force,
				Timeout:          settings.Timeout,
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Installed %s %s into %s\nCommands: %s\n",
				record.Name, record.Version, record.Prefix, strings.Join(record.Launchers, ", "))

			return err
		},
	}
)

// applyPrefixFlag copies --prefix into settings when given.
func applyPrefixFlag(cmd *cobra.Command) {
	if cmd.Flags().Changed("prefix") {
		settings.Prefix = prefix
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	installCmd.Flags().StringVarP(&prefix, "prefix", "p", "", "installation root (default prefix)")
	installCmd.Flags().StringVarP(&interpreter, "interpreter", "i", "", "python interpreter (default interpreter)")
	installCmd.Flags().BoolVar(&skipRuntimeCheck, "skip-runtime-check", false, "do not check the interpreter version")
	installCmd.Flags().BoolVar(&force, "force", false, "replace commands even if they are running")
}

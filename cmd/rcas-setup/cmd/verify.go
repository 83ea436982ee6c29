package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yzharold/RCAS/internal/service/installer"
)

var (
	// verifyCmd checks an installation against its record.
	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Check installed files against their recorded checksums",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyPrefixFlag(cmd)

			report, err := installer.Verify(cmd.Context(), settings.Prefix)
			if err != nil && !errors.Is(err, installer.ErrInstallationCorrupt) {
				return err
			}

			out := cmd.OutOrStdout()

			for _, path := range report.Missing {
				_, _ = fmt.Fprintln(out, "missing:  ", path)
			}

			for _, path := range report.Modified {
				_, _ = fmt.Fprintln(out, "modified: ", path)
			}

			_, _ = fmt.Fprintf(out, "%s %s: %d files checked\n",
				report.Record.Name, report.Record.Version, report.Checked)

			return err
		},
	}

	// uninstallCmd removes an installation.
	uninstallCmd = &cobra.Command{
		Use:   "uninstall",
		Short: "Remove an installation and its commands",
		Long: `Removes every file recorded for the installation under the prefix, the
install record and directories left empty. Files that were not installed
by rcas-setup are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyPrefixFlag(cmd)

			record, err := installer.Uninstall(cmd.Context(), settings.Prefix)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s %s from %s\n", record.Name, record.Version, record.Prefix)

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	verifyCmd.Flags().StringVarP(&prefix, "prefix", "p", "", "installation root (default prefix)")
	uninstallCmd.Flags().StringVarP(&prefix, "prefix", "p", "", "installation root (default prefix)")
}

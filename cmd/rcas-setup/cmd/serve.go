package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yzharold/RCAS/internal/logger"
	"github.com/yzharold/RCAS/internal/service/server"
)

// serveCmd serves a distribution directory over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve [listen-address]",
	Short: "Serve the distribution over HTTP",
	Long: `Serves the descriptor and archive of the distribution directory at /dist/ so
that other hosts can run: rcas-setup install http://<host>/dist/
GET /healthz reports the served name and version. The listen address
argument overrides listen_addr.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyDistDirFlag(cmd)

		if len(args) > 0 {
			settings.ListenAddress = args[0]
		}

		// Without access_log_level request lines follow the command log level.
		accessLevel := logger.Level()
		if settings.AccessLogLevel != "" {
			accessLevel, _ = logger.ParseLogLevel(settings.AccessLogLevel)
		}

		return server.Run(cmd.Context(), &server.Options{
			DistDir:         settings.DistDir,
			ListenAddress:   settings.ListenAddress,
			AccessLogLevel:  accessLevel,
			ShutdownTimeout: settings.Timeout,
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	serveCmd.Flags().StringVarP(&distDir, "dist-dir", "d", "", "distribution directory (default dist_dir)")
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yzharold/RCAS/internal/service/publisher"
)

var (
	// distDir overrides dist_dir for publish and serve.
	distDir string

	// publishCmd uploads a distribution to object storage.
	publishCmd = &cobra.Command{
		Use:   "publish",
		Short: "Upload the distribution to an S3-compatible bucket",
		Long: `Uploads the archive and then the descriptor of the distribution directory to
<bucket>/<key_prefix>/<name>/<version>/. The bucket is created when missing.
Credentials come from publish.access_key and publish.secret_key, usually
through RCAS_PUBLISH_ACCESS_KEY and RCAS_PUBLISH_SECRET_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyDistDirFlag(cmd)

			flags := cmd.Flags()
			if flags.Changed("endpoint") {
				settings.Publish.Endpoint, _ = flags.GetString("endpoint")
			}

			if flags.Changed("bucket") {
				settings.Publish.Bucket, _ = flags.GetString("bucket")
			}

			if flags.Changed("key-prefix") {
				settings.Publish.KeyPrefix, _ = flags.GetString("key-prefix")
			}

			result, err := publisher.Run(cmd.Context(), &publisher.Options{
				DistDir:   settings.DistDir,
				Endpoint:  settings.Publish.Endpoint,
				Bucket:    settings.Publish.Bucket,
				AccessKey: settings.Publish.AccessKey,
				SecretKey: settings.Publish.SecretKey,
				UseTLS:    settings.Publish.UseTLS,
				KeyPrefix: settings.Publish.KeyPrefix,
			})
			if err != nil {
				return err
			}

			for _, key := range result.Keys {
				if _, err = fmt.Fprintf(cmd.OutOrStdout(), "s3://%s/%s\n", result.Bucket, key); err != nil {
					return err
				}
			}

			return nil
		},
	}
)

// applyDistDirFlag copies --dist-dir into settings when given.
func applyDistDirFlag(cmd *cobra.Command) {
	if cmd.Flags().Changed("dist-dir") {
		settings.DistDir = distDir
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	publishCmd.Flags().StringVarP(&distDir, "dist-dir", "d", "", "distribution directory (default dist_dir)")
	publishCmd.Flags().String("endpoint", "", "storage host[:port] (default publish.endpoint)")
	publishCmd.Flags().String("bucket", "", "bucket name (default publish.bucket)")
	publishCmd.Flags().String("key-prefix", "", "object key prefix (default publish.key_prefix)")
}

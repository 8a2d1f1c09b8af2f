package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"debforge/internal/app"
)

type downloadOptions struct {
	PkgDir    string
	MirrorDir string
}

func newDownloadCommand() *cobra.Command {
	opts := downloadOptions{}
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Fetch a package's remote inputs into the local mirror",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDownload(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.PkgDir, "pkg-dir", "", "Package directory holding debian/meta_data.yaml")
	cmd.Flags().StringVar(&opts.MirrorDir, "mirror", "mirror", "Local download mirror directory")

	_ = viper.BindPFlag("pkg_dir", cmd.Flags().Lookup("pkg-dir"))
	_ = viper.BindPFlag("mirror", cmd.Flags().Lookup("mirror"))

	return cmd
}

func runDownload(ctx context.Context, cmd *cobra.Command, opts downloadOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Download(ctx, app.DownloadRequest{
		PkgDir:    resolveString(cmd, opts.PkgDir, "pkg_dir", "pkg-dir"),
		MirrorDir: resolveString(cmd, opts.MirrorDir, "mirror", "mirror"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("mirrored: %s\n", strings.Join(result.Files, " "))
	return nil
}

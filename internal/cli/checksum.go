package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"debforge/internal/app"
)

type checksumOptions struct {
	PkgDir string
}

func newChecksumCommand() *cobra.Command {
	opts := checksumOptions{}
	cmd := &cobra.Command{
		Use:   "checksum",
		Short: "Compute the content checksum of a package's build inputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChecksum(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.PkgDir, "pkg-dir", "", "Package directory holding debian/meta_data.yaml")
	_ = viper.BindPFlag("pkg_dir", cmd.Flags().Lookup("pkg-dir"))

	return cmd
}

func runChecksum(ctx context.Context, cmd *cobra.Command, opts checksumOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.MetaChecksum(ctx, app.ChecksumRequest{
		PkgDir: resolveString(cmd, opts.PkgDir, "pkg_dir", "pkg-dir"),
	})
	if err != nil {
		return err
	}
	fmt.Println(result.Checksum)
	return nil
}

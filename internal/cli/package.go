package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"debforge/internal/app"
)

type packageOptions struct {
	PkgDir    string
	MirrorDir string
	BaseDir   string
	OutputDir string
}

func newPackageCommand() *cobra.Command {
	opts := packageOptions{}
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Assemble a debian source package from its metadata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPackage(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.PkgDir, "pkg-dir", "", "Package directory holding debian/meta_data.yaml")
	cmd.Flags().StringVar(&opts.MirrorDir, "mirror", "mirror", "Local download mirror directory")
	cmd.Flags().StringVar(&opts.BaseDir, "base-dir", "build", "Scratch directory for package assembly")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "out", "Output directory")

	_ = viper.BindPFlag("pkg_dir", cmd.Flags().Lookup("pkg-dir"))
	_ = viper.BindPFlag("mirror", cmd.Flags().Lookup("mirror"))
	_ = viper.BindPFlag("base_dir", cmd.Flags().Lookup("base-dir"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))

	return cmd
}

func runPackage(ctx context.Context, cmd *cobra.Command, opts packageOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.Assemble(ctx, app.AssembleRequest{
		PkgDir:    resolveString(cmd, opts.PkgDir, "pkg_dir", "pkg-dir"),
		MirrorDir: resolveString(cmd, opts.MirrorDir, "mirror", "mirror"),
		BaseDir:   resolveString(cmd, opts.BaseDir, "base_dir", "base-dir"),
		OutputDir: resolveString(cmd, opts.OutputDir, "output", "output"),
	})
	if err != nil {
		if result.LogFile != "" {
			fmt.Printf("build log: %s\n", result.LogFile)
		}
		return err
	}
	fmt.Printf("assembled: %s\n", strings.Join(result.Files, " "))
	return nil
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"debforge/internal/app"
)

type patchOptions struct {
	Recipe    string
	OutputDir string
	FileName  string
}

func newPatchCommand() *cobra.Command {
	opts := patchOptions{}
	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Build a signed patch bundle from a recipe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPatch(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Recipe, "recipe", "", "Patch recipe XML path")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "out", "Output directory")
	cmd.Flags().StringVar(&opts.FileName, "file-name", "", "Bundle file name override")

	_ = viper.BindPFlag("recipe", cmd.Flags().Lookup("recipe"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("file_name", cmd.Flags().Lookup("file-name"))

	return cmd
}

func runPatch(ctx context.Context, cmd *cobra.Command, opts patchOptions) error {
	service, err := newAppService()
	if err != nil {
		return err
	}
	result, err := service.BuildBundle(ctx, app.BundleRequest{
		RecipePath: resolveString(cmd, opts.Recipe, "recipe", "recipe"),
		OutputDir:  resolveString(cmd, opts.OutputDir, "output", "output"),
		FileName:   resolveString(cmd, opts.FileName, "file_name", "file-name"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("bundle: %s\n", result.BundlePath)
	if result.NeedsFormalResign {
		fmt.Println("warning: signed with a development key; formal re-signing required before release")
	}
	return nil
}

package core

import (
	"context"
	"fmt"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"debforge/internal/types"
)

// ValidateMetadata checks a loaded metadata document once, so the
// pipelines can rely on it without re-checking at every use site.
func ValidateMetadata(ctx context.Context, meta types.PackageMetadata) error {
	assert.NotEmpty(ctx, meta.Version, "version must be set")
	if _, err := ParseVersion(meta.Version); err != nil {
		return err
	}

	origins := 0
	if meta.Archive != nil {
		origins++
		if strings.TrimSpace(meta.Archive.URL) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("archive origin declares no url")
		}
		if meta.Archive.SHA256 == "" && meta.Archive.MD5 == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("archive origin declares no checksum")
		}
	}
	if meta.SourcePath != "" {
		origins++
	}
	if len(meta.FileList) > 0 {
		origins++
	}
	if meta.DownloadHook != "" {
		origins++
	}
	if origins > 1 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("metadata declares more than one origin")
	}

	for name, record := range meta.DownloadFiles {
		if strings.TrimSpace(record.URL) == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("download file %s declares no url", name))
		}
		if record.SHA256 == "" && record.MD5 == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("download file %s declares no checksum", name))
		}
	}

	if meta.Revision != nil {
		if meta.Revision.SourceRevCount != nil && meta.SourcePath == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("src_gitrevcount is set, but metadata declares no source_path")
		}
		if tree := meta.Revision.TreeRevCount; tree != nil {
			if tree.SrcDir == "" {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg("gitrevcount is set without src_dir")
			}
			if tree.BaseRev == "" {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg("gitrevcount is set without base_srcrev")
			}
		}
	}
	return nil
}

// ValidateRecipe checks a loaded patch recipe.
func ValidateRecipe(ctx context.Context, recipe types.PatchRecipe) error {
	assert.NotEmpty(ctx, recipe.ID, "patch_id must be set")
	if strings.TrimSpace(recipe.ID) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("recipe declares no patch_id")
	}
	if len(recipe.Packages) == 0 && len(recipe.BinaryPackages) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("recipe declares no required packages")
	}
	switch recipe.RebootRequired {
	case "", "Y", "N":
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("reboot_required must be Y or N, got %q", recipe.RebootRequired))
	}
	return nil
}

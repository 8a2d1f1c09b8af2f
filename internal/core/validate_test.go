package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"debforge/internal/types"
)

func TestValidateMetadataOriginExclusivity(t *testing.T) {
	meta := types.PackageMetadata{
		Version:    "1.0-1",
		SourcePath: "src",
		Archive:    &types.ArchiveOrigin{URL: "https://example.com/a.tar.gz", SHA256: "abc"},
	}
	err := ValidateMetadata(t.Context(), meta)
	require.ErrorContains(t, err, "more than one origin")
}

func TestValidateMetadataArchiveNeedsChecksum(t *testing.T) {
	meta := types.PackageMetadata{
		Version: "1.0-1",
		Archive: &types.ArchiveOrigin{URL: "https://example.com/a.tar.gz"},
	}
	err := ValidateMetadata(t.Context(), meta)
	require.ErrorContains(t, err, "no checksum")
}

func TestValidateMetadataDownloadFiles(t *testing.T) {
	meta := types.PackageMetadata{
		Version: "1.0-1",
		DownloadFiles: map[string]types.DownloadFile{
			"blob.bin": {URL: "https://example.com/blob.bin"},
		},
	}
	err := ValidateMetadata(t.Context(), meta)
	require.ErrorContains(t, err, "blob.bin")
}

func TestValidateMetadataPrestagedIsValid(t *testing.T) {
	meta := types.PackageMetadata{Version: "1.0-1"}
	require.NoError(t, ValidateMetadata(t.Context(), meta))
	require.Equal(t, types.OriginKindPrestaged, meta.OriginKind())
}

func TestValidateRecipe(t *testing.T) {
	recipe := types.PatchRecipe{
		ID:             "SAMPLE_01",
		Packages:       []string{"software"},
		RebootRequired: "N",
	}
	require.NoError(t, ValidateRecipe(t.Context(), recipe))

	recipe.RebootRequired = "maybe"
	require.ErrorContains(t, ValidateRecipe(t.Context(), recipe), "reboot_required")

	recipe.RebootRequired = "Y"
	recipe.Packages = nil
	require.ErrorContains(t, ValidateRecipe(t.Context(), recipe), "no required packages")
}

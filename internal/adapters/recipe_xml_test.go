package adapters

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"debforge/internal/types"
	"debforge/tests/testutil"
)

const sampleRecipe = `<patch_recipe>
  <patch_id>SAMPLE_01</patch_id>
  <summary>Sample fix</summary>
  <description>Fixes a sample defect</description>
  <packages>
    <package>software</package>
    <package>sysinv</package>
  </packages>
  <binary_packages>
    <package>external-agent</package>
  </binary_packages>
  <pre_install>scripts/pre.sh</pre_install>
  <reboot_required>Y</reboot_required>
</patch_recipe>
`

func TestRecipeLoad(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "recipe.xml", sampleRecipe)

	recipe, err := NewRecipeXMLAdapter().Load(path)
	require.NoError(t, err)
	require.Equal(t, "SAMPLE_01", recipe.ID)
	require.Equal(t, "Sample fix", recipe.Summary)
	require.Equal(t, "Y", recipe.RebootRequired)
	require.Equal(t, "scripts/pre.sh", recipe.PreInstall)
	if diff := cmp.Diff([]string{"software", "sysinv"}, recipe.Packages); diff != "" {
		t.Fatalf("unexpected packages (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"external-agent"}, recipe.BinaryPackages); diff != "" {
		t.Fatalf("unexpected binary packages (-want +got):\n%s", diff)
	}
}

func TestRecipeLoadDefaultsReboot(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "recipe.xml", `<patch_recipe>
  <patch_id>NOREBOOT_01</patch_id>
  <packages><package>software</package></packages>
</patch_recipe>`)

	recipe, err := NewRecipeXMLAdapter().Load(path)
	require.NoError(t, err)
	require.Equal(t, "N", recipe.RebootRequired)
}

func TestRecipeLoadInvalid(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "recipe.xml", `<patch_recipe>
  <patch_id>EMPTY_01</patch_id>
</patch_recipe>`)

	_, err := NewRecipeXMLAdapter().Load(path)
	require.ErrorContains(t, err, "no required packages")
}

func TestWriteDescriptorRoundTrip(t *testing.T) {
	desc := types.BundleDescriptor{
		ID:             "SAMPLE_01",
		Summary:        "Sample fix",
		Description:    "Fixes a sample defect",
		RebootRequired: "N",
		PreInstall:     "pre-install.sh",
		Debs:           []string{"software_1.0-1_amd64.deb"},
	}
	path := filepath.Join(t.TempDir(), "metadata.xml")
	require.NoError(t, NewRecipeXMLAdapter().WriteDescriptor(desc, path))

	content := testutil.ReadFile(t, path)
	require.Contains(t, content, "<id>SAMPLE_01</id>")
	require.Contains(t, content, "<deb>software_1.0-1_amd64.deb</deb>")
	require.Contains(t, content, "<pre_install>pre-install.sh</pre_install>")
}

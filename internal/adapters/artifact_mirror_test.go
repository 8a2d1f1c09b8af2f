package adapters

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"debforge/tests/testutil"
)

func TestFetchArtifacts(t *testing.T) {
	mirror := t.TempDir()
	testutil.WriteFile(t, mirror, "software_1.0-1_amd64.deb", "software deb")
	testutil.WriteFile(t, mirror, "software-doc_1.0-1_all.deb", "doc deb")
	testutil.WriteFile(t, mirror, "sysinv_2.1-1_amd64.deb", "sysinv deb")
	testutil.WriteFile(t, mirror, "notes.txt", "not a deb")

	adapter, err := NewArtifactMirrorAdapter(mirror)
	require.NoError(t, err)

	destDir := t.TempDir()
	fetched, err := adapter.FetchArtifacts(t.Context(), []string{"software", "sysinv"}, destDir)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"software_1.0-1_amd64.deb", "sysinv_2.1-1_amd64.deb"}, fetched); diff != "" {
		t.Fatalf("unexpected artifacts (-want +got):\n%s", diff)
	}
	require.Equal(t, "software deb", testutil.ReadFile(t, filepath.Join(destDir, "software_1.0-1_amd64.deb")))
}

func TestFetchArtifactsMissingPackage(t *testing.T) {
	mirror := t.TempDir()
	testutil.WriteFile(t, mirror, "software_1.0-1_amd64.deb", "software deb")

	adapter, err := NewArtifactMirrorAdapter(mirror)
	require.NoError(t, err)

	_, err = adapter.FetchArtifacts(t.Context(), []string{"missing-pkg"}, t.TempDir())
	require.ErrorContains(t, err, "no artifacts found for package missing-pkg")
}

func TestNewArtifactMirrorAdapterRequiresDir(t *testing.T) {
	_, err := NewArtifactMirrorAdapter("")
	require.ErrorContains(t, err, "not configured")
}

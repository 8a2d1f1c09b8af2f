package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"debforge/internal/core"
	"debforge/internal/types"
	"debforge/tests/testutil"
)

const sampleDscTemplate = `Format: 3.0 (quilt)
Source: sample
Binary: sample
Architecture: any
Version: 1.0-1
Maintainer: Sample Maintainer <sample@example.com>
Standards-Version: 4.5.1
Files:
 %s 7 sample_1.0.orig.tar.gz
 %s 9 sample_1.0-1.debian.tar.xz
Checksums-Sha256:
 %s 7 sample_1.0.orig.tar.gz
 %s 9 sample_1.0-1.debian.tar.xz
`

func writeSampleDsc(t *testing.T, dir string) string {
	t.Helper()
	orig := testutil.WriteFile(t, dir, "sample_1.0.orig.tar.gz", "origtar")
	debian := testutil.WriteFile(t, dir, "sample_1.0-1.debian.tar.xz", "debiantar")

	origMD5, err := core.FileDigest(orig, types.ChecksumAlgoMD5)
	require.NoError(t, err)
	debianMD5, err := core.FileDigest(debian, types.ChecksumAlgoMD5)
	require.NoError(t, err)
	origSHA, err := core.FileDigest(orig, types.ChecksumAlgoSHA256)
	require.NoError(t, err)
	debianSHA, err := core.FileDigest(debian, types.ChecksumAlgoSHA256)
	require.NoError(t, err)

	content := fmt.Sprintf(sampleDscTemplate, origMD5, debianMD5, origSHA, debianSHA)
	return testutil.WriteFile(t, dir, "sample_1.0-1.dsc", content)
}

func TestDscParse(t *testing.T) {
	dir := t.TempDir()
	dscPath := writeSampleDsc(t, dir)

	dsc, err := NewDscFileAdapter().Parse(dscPath)
	require.NoError(t, err)
	require.Equal(t, "sample", dsc.Source)
	require.Equal(t, "1.0-1", dsc.Version)

	var names []string
	for _, m := range dsc.Members {
		names = append(names, m.Name)
		require.NotEmpty(t, m.MD5)
		require.NotEmpty(t, m.SHA256)
	}
	if diff := cmp.Diff([]string{"sample_1.0.orig.tar.gz", "sample_1.0-1.debian.tar.xz"}, names); diff != "" {
		t.Fatalf("unexpected members (-want +got):\n%s", diff)
	}
}

func TestDscParseNoSource(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "broken.dsc", "Format: 3.0 (quilt)\n")
	_, err := NewDscFileAdapter().Parse(path)
	require.Error(t, err)
}

func TestDscVerify(t *testing.T) {
	dir := t.TempDir()
	dscPath := writeSampleDsc(t, dir)

	adapter := NewDscFileAdapter()
	require.NoError(t, adapter.Verify(dscPath))

	// Corrupt a member and the verification must fail.
	testutil.WriteFile(t, dir, "sample_1.0.orig.tar.gz", "tampered")
	require.ErrorContains(t, adapter.Verify(dscPath), "checksum mismatch")
}

func TestDscVerifyMissingMember(t *testing.T) {
	dir := t.TempDir()
	dscPath := writeSampleDsc(t, dir)
	require.NoError(t, NewDscFileAdapter().Verify(dscPath))

	require.NoError(t, os.Remove(filepath.Join(dir, "sample_1.0-1.debian.tar.xz")))
	require.Error(t, NewDscFileAdapter().Verify(dscPath))
}

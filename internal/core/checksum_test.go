package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"debforge/internal/types"
	"debforge/tests/testutil"
)

func TestFileDigest(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "file", "hello world")

	md5sum, err := FileDigest(path, types.ChecksumAlgoMD5)
	require.NoError(t, err)
	require.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", md5sum)

	sha, err := FileDigest(path, types.ChecksumAlgoSHA256)
	require.NoError(t, err)
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", sha)
}

func TestFileDigestUnsupportedAlgo(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "file", "content")
	_, err := FileDigest(path, types.ChecksumAlgo("sha1"))
	require.ErrorContains(t, err, "unsupported checksum algorithm")
}

func TestChecksumMatches(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "file", "hello world")

	require.True(t, ChecksumMatches(types.ChecksumRecord{
		Path: path, Algo: types.ChecksumAlgoMD5, Expected: "5eb63bbbe01eeed093cb22bb8f5acdc3",
	}))
	require.False(t, ChecksumMatches(types.ChecksumRecord{
		Path: path, Algo: types.ChecksumAlgoMD5, Expected: "0000",
	}))
	// No expected digest never matches.
	require.False(t, ChecksumMatches(types.ChecksumRecord{Path: path, Algo: types.ChecksumAlgoMD5}))
	// Missing file counts as a non-match, not a failure.
	require.False(t, ChecksumMatches(types.ChecksumRecord{
		Path: "/does/not/exist", Algo: types.ChecksumAlgoMD5, Expected: "5eb63bbbe01eeed093cb22bb8f5acdc3",
	}))
}

func TestVerifyChecksumMismatch(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "file", "hello world")
	err := VerifyChecksum(types.ChecksumRecord{
		Path: path, Algo: types.ChecksumAlgoSHA256, Expected: "deadbeef",
	})
	require.ErrorContains(t, err, "checksum mismatch")
}

func TestStringMD5(t *testing.T) {
	require.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", StringMD5("hello world"))
}

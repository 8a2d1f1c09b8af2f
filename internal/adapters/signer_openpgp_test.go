package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"debforge/tests/testutil"
)

func TestSignDetachedDevFallback(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "metadata.tar", "metadata content")
	b := testutil.WriteFile(t, dir, "software.tar", "software content")
	outPath := filepath.Join(dir, "signature.v2")

	signer := NewOpenPGPSigner("", "")
	devFallback, err := signer.SignDetached([]string{a, b}, outPath)
	require.NoError(t, err)
	require.True(t, devFallback)

	content := testutil.ReadFile(t, outPath)
	require.Contains(t, content, "BEGIN PGP SIGNATURE")
}

func TestSignDetachedMissingKeyFallsBack(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "member", "content")

	signer := NewOpenPGPSigner(filepath.Join(dir, "no-such-key.asc"), "")
	devFallback, err := signer.SignDetached([]string{a}, filepath.Join(dir, "signature.v2"))
	require.NoError(t, err)
	require.True(t, devFallback)
}

func TestSignDetachedMissingMember(t *testing.T) {
	dir := t.TempDir()
	signer := NewOpenPGPSigner("", "")
	_, err := signer.SignDetached([]string{filepath.Join(dir, "absent")}, filepath.Join(dir, "signature.v2"))
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "signature.v2"))
	require.True(t, os.IsNotExist(statErr))
}

package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"debforge/internal/adapters"
	"debforge/internal/core"
	"debforge/internal/types"
	"debforge/tests/testutil"
)

type fakeFetcher struct {
	content map[string]string
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, savePath string, expected types.ChecksumRecord) error {
	if expected.Expected != "" && core.ChecksumMatches(expected) {
		return nil
	}
	content, ok := f.content[url]
	if !ok {
		return fmt.Errorf("status=404 url=%s", url)
	}
	f.fetched = append(f.fetched, url)
	return os.WriteFile(savePath, []byte(content), 0o644)
}

func TestDownloadArchiveOrigin(t *testing.T) {
	pkgDir := writePkg(t, "1.4-1", `archive:
  url: https://example.com/pool/sample_1.4.tar.gz
  sha256: `+core.StringSHA256("tarball content")+`
`)
	fetcher := &fakeFetcher{content: map[string]string{
		"https://example.com/pool/sample_1.4.tar.gz": "tarball content",
	}}
	service := Service{Metadata: adapters.NewMetaFileAdapter(), Fetcher: fetcher}

	mirrorDir := t.TempDir()
	result, err := service.Download(t.Context(), DownloadRequest{PkgDir: pkgDir, MirrorDir: mirrorDir})
	require.NoError(t, err)
	require.Equal(t, []string{"sample_1.4.tar.gz"}, result.Files)
	require.Equal(t, "tarball content", testutil.ReadFile(t, filepath.Join(mirrorDir, "sample-pkg", "sample_1.4.tar.gz")))
}

func TestDownloadPrestagedReusesValidated(t *testing.T) {
	pkgDir := writePkg(t, "1.0-1", "")
	service := Service{
		Metadata: adapters.NewMetaFileAdapter(),
		Fetcher:  &fakeFetcher{},
		Dsc:      adapters.NewDscFileAdapter(),
	}

	mirrorDir := t.TempDir()
	saveTo := filepath.Join(mirrorDir, "sample-pkg")
	member := testutil.WriteFile(t, saveTo, "sample-pkg_1.0.orig.tar.gz", "orig")
	memberSHA, err := core.FileDigest(member, types.ChecksumAlgoSHA256)
	require.NoError(t, err)
	testutil.WriteFile(t, saveTo, "sample-pkg_1.0-1.dsc", `Source: sample-pkg
Version: 1.0-1
Checksums-Sha256:
 `+memberSHA+` 4 sample-pkg_1.0.orig.tar.gz
`)

	result, err := service.Download(t.Context(), DownloadRequest{PkgDir: pkgDir, MirrorDir: mirrorDir})
	require.NoError(t, err)
	require.Contains(t, result.Files, "sample-pkg_1.0-1.dsc")
}

func TestDownloadPrestagedNeedsArchiveURL(t *testing.T) {
	pkgDir := writePkg(t, "1.0-1", "")
	service := Service{
		Metadata: adapters.NewMetaFileAdapter(),
		Fetcher:  &fakeFetcher{},
		Dsc:      adapters.NewDscFileAdapter(),
	}

	_, err := service.Download(t.Context(), DownloadRequest{PkgDir: pkgDir, MirrorDir: t.TempDir()})
	require.ErrorContains(t, err, "no package archive URL")
}

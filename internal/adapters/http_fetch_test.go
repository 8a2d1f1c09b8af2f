package adapters

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"debforge/internal/core"
	"debforge/internal/types"
	"debforge/tests/testutil"
)

func sha256Of(t *testing.T, path string) string {
	t.Helper()
	digest, err := core.FileDigest(path, types.ChecksumAlgoSHA256)
	require.NoError(t, err)
	return digest
}

func TestNewHTTPFetchAdapterValidation(t *testing.T) {
	_, err := NewHTTPFetchAdapter("", types.FetchStrategy("bogus"), 0, 0, 0)
	require.ErrorContains(t, err, "unknown fetch strategy")

	_, err = NewHTTPFetchAdapter("", types.FetchStrategyMirrorFirst, 0, 0, 0)
	require.ErrorContains(t, err, "requires a mirror base url")

	_, err = NewHTTPFetchAdapter("", types.FetchStrategyUpstreamOnly, 0, 0, 0)
	require.NoError(t, err)
}

func TestFetchSkipsWhenChecksumMatches(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	savePath := testutil.WriteFile(t, t.TempDir(), "blob", "payload")
	fetcher, err := NewHTTPFetchAdapter("", types.FetchStrategyUpstreamOnly, 1, 1, 0)
	require.NoError(t, err)

	rec := types.ChecksumRecord{Algo: types.ChecksumAlgoSHA256, Expected: sha256Of(t, savePath)}
	require.NoError(t, fetcher.Fetch(t.Context(), server.URL+"/blob", savePath, rec))
	require.Equal(t, int64(0), hits.Load())
}

func TestFetchDownloadsAndVerifies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	expected := testutil.WriteFile(t, t.TempDir(), "want", "payload")
	savePath := filepath.Join(t.TempDir(), "blob")
	fetcher, err := NewHTTPFetchAdapter("", types.FetchStrategyUpstreamOnly, 1, 1, 0)
	require.NoError(t, err)

	rec := types.ChecksumRecord{Algo: types.ChecksumAlgoSHA256, Expected: sha256Of(t, expected)}
	require.NoError(t, fetcher.Fetch(t.Context(), server.URL+"/blob", savePath, rec))
	require.Equal(t, "payload", testutil.ReadFile(t, savePath))
}

func TestFetchFallsBackToUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer upstream.Close()
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer mirror.Close()

	expected := testutil.WriteFile(t, t.TempDir(), "want", "payload")
	savePath := filepath.Join(t.TempDir(), "blob")
	fetcher, err := NewHTTPFetchAdapter(mirror.URL, types.FetchStrategyMirrorFirst, 1, 1, 0)
	require.NoError(t, err)

	rec := types.ChecksumRecord{Algo: types.ChecksumAlgoSHA256, Expected: sha256Of(t, expected)}
	require.NoError(t, fetcher.Fetch(t.Context(), upstream.URL+"/blob", savePath, rec))
	require.Equal(t, "payload", testutil.ReadFile(t, savePath))
}

func TestFetchMismatchIsTerminal(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Write([]byte("corrupted"))
	}))
	defer server.Close()

	savePath := filepath.Join(t.TempDir(), "blob")
	fetcher, err := NewHTTPFetchAdapter("", types.FetchStrategyUpstreamOnly, 3, 1, 0)
	require.NoError(t, err)

	rec := types.ChecksumRecord{Algo: types.ChecksumAlgoSHA256, Expected: "deadbeef"}
	err = fetcher.Fetch(t.Context(), server.URL+"/blob", savePath, rec)
	require.ErrorContains(t, err, "checksum mismatch")
	// The mismatch is discovered after a successful transfer; nothing retries it.
	require.Equal(t, int64(1), hits.Load())
}

func TestFetchNoChecksumSkipsVerification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("anything"))
	}))
	defer server.Close()

	savePath := filepath.Join(t.TempDir(), "blob")
	fetcher, err := NewHTTPFetchAdapter("", types.FetchStrategyUpstreamOnly, 1, 1, 0)
	require.NoError(t, err)
	require.NoError(t, fetcher.Fetch(t.Context(), server.URL+"/blob", savePath, types.ChecksumRecord{}))
	require.Equal(t, "anything", testutil.ReadFile(t, savePath))
}

func TestMirrorURL(t *testing.T) {
	fetcher, err := NewHTTPFetchAdapter("https://mirror.example.com/base/", types.FetchStrategyMirrorOnly, 1, 1, 0)
	require.NoError(t, err)

	mirror, err := fetcher.mirrorURL("https://upstream.example.org/pool/p/pkg_1.0.tar.gz")
	require.NoError(t, err)
	require.Equal(t, "https://mirror.example.com/base/upstream.example.org/pool/p/pkg_1.0.tar.gz", mirror)
}

func TestFetchRetriesExhausted(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	savePath := filepath.Join(t.TempDir(), "blob")
	fetcher, err := NewHTTPFetchAdapter("", types.FetchStrategyUpstreamOnly, 2, 1, 0)
	require.NoError(t, err)

	err = fetcher.Fetch(t.Context(), server.URL+"/blob", savePath, types.ChecksumRecord{})
	require.ErrorContains(t, err, "download failed after 3 attempts")
	require.Equal(t, int64(3), hits.Load())
}

func TestFetchStalledTransferFails(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		// Hold the connection open without sending a single body byte.
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	fetcher, err := NewHTTPFetchAdapter("", types.FetchStrategyUpstreamOnly, 1, 1, 1)
	require.NoError(t, err)
	fetcher.FloorWindow = 50 * time.Millisecond

	savePath := filepath.Join(t.TempDir(), "blob")
	err = fetcher.Fetch(t.Context(), server.URL+"/blob", savePath, types.ChecksumRecord{})
	require.ErrorContains(t, err, "download failed after 2 attempts")
}

package ports

import (
	"context"

	"debforge/internal/types"
)

// RemoteFetcher downloads a remote artifact to a local path and
// succeeds only once the local file matches the expected checksum.
// A file that already matches must short-circuit without any network
// traffic.
type RemoteFetcher interface {
	Fetch(ctx context.Context, url string, savePath string, expected types.ChecksumRecord) error
}

// ArtifactFetcher collects already-built binary artifacts for the named
// packages into destDir and returns the fetched file names.
type ArtifactFetcher interface {
	FetchArtifacts(ctx context.Context, packages []string, destDir string) ([]string, error)
}

package ports

import "context"

// Git answers the version-control queries the revision counter and the
// orig-tarball synthesis need. Implementations drive the git CLI; the
// repository is identified by the directory the query runs in, and
// counts are scoped to paths under that directory.
type Git interface {
	// IsRepo reports whether dir is inside a git work tree.
	IsRepo(dir string) bool

	// CommitCount counts commits affecting dir. baseRev, when non-empty,
	// bounds the count to commits after baseRev (exclusive).
	CommitCount(ctx context.Context, dir string, baseRev string) (int, error)

	// DirtyCount counts uncommitted changes under dir.
	DirtyCount(ctx context.Context, dir string) (int, error)

	// ExportUpstream generates the orig tarball from the checked-out
	// HEAD of the tree at dir (gbp export-orig).
	ExportUpstream(ctx context.Context, dir string) error
}

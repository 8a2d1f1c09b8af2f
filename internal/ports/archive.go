package ports

// Archive reads and writes the compressed tarballs the pipelines deal
// in (tar.gz, tgz, tar.bz2, tar.xz, tar.zst for reading; gzip and xz
// for writing).
type Archive interface {
	// TopDir returns the common top-level directory shared by every
	// member of the tarball, or "" when members sit at multiple
	// distinct top-level names.
	TopDir(tarball string) (string, error)

	// Extract unpacks the tarball into destDir, stripping the first
	// path component when stripTop is set.
	Extract(tarball string, destDir string, stripTop bool) error

	// Create packs the named members (paths relative to baseDir) into a
	// new tarball whose compression follows its file extension.
	Create(tarball string, baseDir string, members []string) error

	// ExtractBySuffix extracts the first member matching each suffix
	// into destDir and returns the extracted paths, one per suffix, in
	// suffix order. A suffix with no matching member is an error.
	ExtractBySuffix(tarball string, destDir string, suffixes []string) ([]string, error)
}

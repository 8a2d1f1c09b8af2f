package app

// AssembleRequest names the inputs of one source-package assembly.
type AssembleRequest struct {
	// PkgDir is the package directory holding debian/meta_data.yaml.
	PkgDir string

	// MirrorDir is the local download mirror the fetch phase filled.
	MirrorDir string

	// BaseDir is the scratch root; the package works under
	// BaseDir/<pkgname>, recreated on every run.
	BaseDir string

	// OutputDir receives the generated source-package files.
	OutputDir string
}

// AssembleResult reports the files an assembly produced.
type AssembleResult struct {
	// Files are the absolute paths of the generated source-package
	// members copied into the output directory, the .dsc first.
	Files []string

	// LogFile is the per-package build log, also left behind when the
	// assembly fails.
	LogFile string
}

// DownloadRequest names the inputs of the fetch phase for one package.
type DownloadRequest struct {
	PkgDir    string
	MirrorDir string
}

// DownloadResult lists what the fetch phase stored in the mirror.
type DownloadResult struct {
	// Files are the file names now present under the package's mirror
	// directory.
	Files []string
}

// BundleRequest names the inputs of one patch-bundle build.
type BundleRequest struct {
	// RecipePath is the patch recipe XML document.
	RecipePath string

	// OutputDir receives the finished bundle.
	OutputDir string

	// FileName overrides the bundle file name; empty means
	// "<patch_id>.patch".
	FileName string
}

// BundleResult reports the finished bundle.
type BundleResult struct {
	BundlePath string

	// NeedsFormalResign is set when the bundle was signed with a
	// generated development key and must be re-signed before release.
	NeedsFormalResign bool

	// Debs are the artifact names packed into software.tar.
	Debs []string
}

// ChecksumRequest names the package whose metadata content checksum is
// wanted.
type ChecksumRequest struct {
	PkgDir string
}

// ChecksumResult carries the content checksum identifying the package's
// current inputs. Two runs over identical inputs produce the same
// value; any input change produces a different one.
type ChecksumResult struct {
	Checksum string
}

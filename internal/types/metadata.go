package types

// PackageMetadata is the declarative description of a source package,
// loaded from the package's meta_data.yaml. Exactly one origin must be
// declared (archive, source_path, file_list, download_hook); none of
// them means a pre-staged source-package description is reused from the
// local mirror.
type PackageMetadata struct {
	// Version is the full debian version string, optionally carrying an
	// epoch and a debian revision: "[epoch:]upstream[-revision]".
	Version string `yaml:"version"`

	// Name overrides the debian source name when it differs from the
	// package directory name.
	Name string `yaml:"name,omitempty"`

	// Archive declares a remote tarball origin.
	Archive *ArchiveOrigin `yaml:"archive,omitempty"`

	// SourcePath declares a version-controlled source tree origin.
	// Environment variables are expanded; relative paths are resolved
	// against the package directory.
	SourcePath string `yaml:"source_path,omitempty"`

	// FileList declares a literal file set origin: the source tree is
	// synthesized from exactly these files.
	FileList []string `yaml:"file_list,omitempty"`

	// DownloadHook declares a hook-script origin. The script must
	// produce (or leave discoverable) an original-source tarball.
	DownloadHook string `yaml:"download_hook,omitempty"`

	// ExtraFiles are injected into the source tree after origin
	// resolution, whatever the origin kind.
	ExtraFiles []string `yaml:"extra_files,omitempty"`

	// DownloadFiles maps additional artifact names to their download
	// records. They are fetched into the mirror and copied into the
	// source tree before the orig tarball is synthesized.
	DownloadFiles map[string]DownloadFile `yaml:"download_files,omitempty"`

	// Revision configures the computed build revision suffix. Nil means
	// no suffix is appended to the declared version.
	Revision *RevisionRules `yaml:"revision,omitempty"`
}

// ArchiveOrigin is a remote tarball download record. One of SHA256 or
// MD5 must be set; SHA256 wins when both are present.
type ArchiveOrigin struct {
	URL    string `yaml:"url"`
	SHA256 string `yaml:"sha256,omitempty"`
	MD5    string `yaml:"md5,omitempty"`
}

// DownloadFile is a supplemental artifact fetched alongside the main
// origin. Topdir, when set, repacks the tarball under that directory
// name before it is copied into the source tree.
type DownloadFile struct {
	URL    string `yaml:"url"`
	SHA256 string `yaml:"sha256,omitempty"`
	MD5    string `yaml:"md5,omitempty"`
	Topdir string `yaml:"topdir,omitempty"`
}

// RevisionRules configures the accumulated build revision. Each
// enabled contribution adds its commit count plus the count of
// uncommitted changes under the counted path, so a dirty working tree
// always bumps the revision.
type RevisionRules struct {
	// Dist is an optional distribution tag prefixed to the numeric
	// revision, e.g. "bullseye" yielding "bullseye.3". Environment
	// variables are expanded.
	Dist string `yaml:"dist,omitempty"`

	// PackageRevCount counts commits touching the package's debian
	// folder, from PackageBaseRev (exclusive) when set.
	PackageRevCount bool   `yaml:"pkg_gitrevcount,omitempty"`
	PackageBaseRev  string `yaml:"pkg_base_srcrev,omitempty"`

	// SourceRevCount counts commits touching the declared source_path.
	// Declaring it without source_path is a configuration error.
	SourceRevCount *SourceRevCount `yaml:"src_gitrevcount,omitempty"`

	// TreeRevCount counts commits in an arbitrary git tree. Both fields
	// are required when the block is present.
	TreeRevCount *TreeRevCount `yaml:"gitrevcount,omitempty"`

	// DistPatch adds a manually maintained patch counter.
	DistPatch *int `yaml:"dist_patch,omitempty"`
}

type SourceRevCount struct {
	BaseRev string `yaml:"base_srcrev,omitempty"`
}

type TreeRevCount struct {
	SrcDir  string `yaml:"src_dir"`
	BaseRev string `yaml:"base_srcrev"`
}

// OriginKind reports which origin the metadata declares. It does not
// check mutual exclusion; ValidateMetadata does that once at load time.
func (m PackageMetadata) OriginKind() OriginKind {
	switch {
	case m.Archive != nil:
		return OriginKindArchive
	case m.SourcePath != "":
		return OriginKindSourcePath
	case len(m.FileList) > 0:
		return OriginKindFileList
	case m.DownloadHook != "":
		return OriginKindDownloadHook
	default:
		return OriginKindPrestaged
	}
}

// ResolvedPackage is the per-build working state derived from metadata
// and a base directory. It lives for one assembly invocation and is
// never persisted.
type ResolvedPackage struct {
	// PkgName is the package directory name.
	PkgName string

	// DebName is the debian source name (PkgName unless overridden).
	DebName string

	// PkgDir is the absolute package directory holding debian/.
	PkgDir string

	// DebDir is the effective debian folder. It starts as PkgDir/debian
	// and moves to the build-type overlay copy during assembly.
	DebDir string

	// PackDir is the per-package working directory under the base dir.
	PackDir string

	// SrcDir is the source tree being assembled: PackDir/DebName-upstream.
	SrcDir string

	// BuildType tags the build flavor ("std" or a variant substituted
	// into the debian folder token).
	BuildType string

	Meta    PackageMetadata
	Version Version
}

// ChecksumRecord pairs a file with its expected digest. Used both to
// skip redundant downloads and to validate pre-staged description files.
type ChecksumRecord struct {
	Path     string
	Algo     ChecksumAlgo
	Expected string
}

// Checksum returns the record declared by a download file, preferring
// SHA256 over MD5.
func (d DownloadFile) Checksum(path string) ChecksumRecord {
	if d.SHA256 != "" {
		return ChecksumRecord{Path: path, Algo: ChecksumAlgoSHA256, Expected: d.SHA256}
	}
	return ChecksumRecord{Path: path, Algo: ChecksumAlgoMD5, Expected: d.MD5}
}

// Checksum returns the record declared by an archive origin, preferring
// SHA256 over MD5.
func (a ArchiveOrigin) Checksum(path string) ChecksumRecord {
	if a.SHA256 != "" {
		return ChecksumRecord{Path: path, Algo: ChecksumAlgoSHA256, Expected: a.SHA256}
	}
	return ChecksumRecord{Path: path, Algo: ChecksumAlgoMD5, Expected: a.MD5}
}

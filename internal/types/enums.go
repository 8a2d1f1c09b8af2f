package types

// SourceFormat is the debian source-package layout variant reported by
// dpkg-source for an extracted tree. It is discovered, never declared:
// the variant decides whether a patch is applied to the working tree or
// registered in the tree's own series file.
type SourceFormat string

const (
	SourceFormatLegacy SourceFormat = "1.0"
	SourceFormatNative SourceFormat = "3.0 (native)"
	SourceFormatQuilt  SourceFormat = "3.0 (quilt)"
)

type FetchStrategy string

const (
	FetchStrategyMirrorFirst   FetchStrategy = "mirror_first"
	FetchStrategyUpstreamFirst FetchStrategy = "upstream_first"
	FetchStrategyMirrorOnly    FetchStrategy = "mirror_only"
	FetchStrategyUpstreamOnly  FetchStrategy = "upstream_only"
)

type ChecksumAlgo string

const (
	ChecksumAlgoMD5    ChecksumAlgo = "md5"
	ChecksumAlgoSHA256 ChecksumAlgo = "sha256"
)

// OriginKind identifies where a package's upstream material comes from.
// Exactly one kind applies to a given metadata document.
type OriginKind string

const (
	OriginKindArchive      OriginKind = "archive"
	OriginKindSourcePath   OriginKind = "source_path"
	OriginKindFileList     OriginKind = "file_list"
	OriginKindDownloadHook OriginKind = "download_hook"
	OriginKindPrestaged    OriginKind = "prestaged"
)

// ScriptType names the lifecycle scripts a patch bundle can carry.
// Each maps to a fixed canonical file name inside the bundle.
type ScriptType string

const (
	ScriptTypePreInstall     ScriptType = "pre_install"
	ScriptTypePostInstall    ScriptType = "post_install"
	ScriptTypeDeployPrecheck ScriptType = "deploy_precheck"
	ScriptTypeUpgradeUtils   ScriptType = "upgrade_utils"
)

// ScriptFileNames maps script types to the canonical names used inside
// a patch bundle.
var ScriptFileNames = map[ScriptType]string{
	ScriptTypePreInstall:     "pre-install.sh",
	ScriptTypePostInstall:    "post-install.sh",
	ScriptTypeDeployPrecheck: "deploy-precheck",
	ScriptTypeUpgradeUtils:   "upgrade_utils.py",
}

package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"debforge/internal/core"
	"debforge/internal/shared"
	"debforge/internal/types"
)

const metadataFileName = "meta_data.yaml"

// Assemble builds the debian source package described by the package
// directory's metadata: resolve the origin, inject custom files, apply
// the patch series, stamp the changelog, and run the source build. The
// generated .dsc and its members are copied into the output directory.
func (s Service) Assemble(ctx context.Context, req AssembleRequest) (AssembleResult, error) {
	pkg, err := s.resolvePackage(req.PkgDir, req.BaseDir)
	if err != nil {
		return AssembleResult{}, err
	}

	if err := recreateDir(pkg.PackDir); err != nil {
		return AssembleResult{}, err
	}

	logPath := filepath.Join(pkg.PackDir, pkg.PkgName+".log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return AssembleResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("cannot create build log %s", logPath)).
			WithCause(err)
	}
	defer logFile.Close()
	lg := log.Output(zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stderr}, logFile)).
		With().Str("package", pkg.PkgName).Logger()

	lg.Info().Str("version", pkg.Version.Full).Str("origin", string(pkg.Meta.OriginKind())).Msg("assembling source package")

	if err := s.applyBuildType(&pkg); err != nil {
		return AssembleResult{LogFile: logPath}, err
	}
	if err := s.stageMirror(pkg, req.MirrorDir); err != nil {
		return AssembleResult{LogFile: logPath}, err
	}
	if err := s.resolveOrigin(ctx, &lg, pkg); err != nil {
		return AssembleResult{LogFile: logPath}, err
	}
	if err := s.applySrcPatches(ctx, &lg, pkg); err != nil {
		return AssembleResult{LogFile: logPath}, err
	}
	if err := s.updateChangelog(ctx, &lg, pkg); err != nil {
		return AssembleResult{LogFile: logPath}, err
	}

	lg.Info().Str("srcdir", pkg.SrcDir).Msg("building source package")
	if _, err := s.Runner.Run(ctx, pkg.SrcDir, "dpkg-buildpackage", "-nc", "-us", "-uc", "-S", "-d"); err != nil {
		return AssembleResult{LogFile: logPath}, err
	}

	files, err := s.collectOutput(ctx, pkg, req.OutputDir)
	if err != nil {
		return AssembleResult{LogFile: logPath}, err
	}
	lg.Info().Strs("files", files).Msg("source package assembled")
	return AssembleResult{Files: files, LogFile: logPath}, nil
}

// resolvePackage loads the metadata and derives the per-build paths.
func (s Service) resolvePackage(pkgDir string, baseDir string) (types.ResolvedPackage, error) {
	absPkgDir, err := filepath.Abs(pkgDir)
	if err != nil {
		return types.ResolvedPackage{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid package directory %s", pkgDir)).
			WithCause(err)
	}
	meta, err := s.Metadata.Load(filepath.Join(absPkgDir, "debian", metadataFileName))
	if err != nil {
		return types.ResolvedPackage{}, err
	}
	version, err := core.ParseVersion(meta.Version)
	if err != nil {
		return types.ResolvedPackage{}, err
	}

	pkgName := filepath.Base(absPkgDir)
	debName := pkgName
	if meta.Name != "" {
		debName = meta.Name
	}
	packDir := filepath.Join(baseDir, pkgName)
	return types.ResolvedPackage{
		PkgName:   pkgName,
		DebName:   debName,
		PkgDir:    absPkgDir,
		DebDir:    filepath.Join(absPkgDir, "debian"),
		PackDir:   packDir,
		SrcDir:    filepath.Join(packDir, debName+"-"+version.Upstream),
		BuildType: s.Cfg.BuildType,
		Meta:      meta,
		Version:   version,
	}, nil
}

// applyBuildType copies the debian folder into a working overlay and
// rewrites the kernel-type token for the configured build flavor. The
// overlay becomes the effective debian folder for the rest of the run;
// the canonical folder stays untouched so revision counting sees no
// dirt.
func (s Service) applyBuildType(pkg *types.ResolvedPackage) error {
	overlay := filepath.Join(pkg.PackDir, "local_debian")
	if err := shared.CopyTree(pkg.DebDir, overlay); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stage debian folder").
			WithCause(err)
	}
	replacement := ""
	if pkg.BuildType != DefaultBuildType {
		replacement = "-" + pkg.BuildType
	}
	err := filepath.Walk(overlay, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.Mode().IsRegular() {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if !strings.Contains(string(content), "@KERNEL_TYPE@") {
			return nil
		}
		rewritten := strings.ReplaceAll(string(content), "@KERNEL_TYPE@", replacement)
		return os.WriteFile(path, []byte(rewritten), info.Mode().Perm())
	})
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to rewrite build type token").
			WithCause(err)
	}
	pkg.DebDir = overlay
	return nil
}

// stageMirror copies the package's fetched artifacts from the mirror
// into the pack directory. The mirror itself must exist; a package
// with nothing to fetch has no per-package subdirectory, and that is
// not an error.
func (s Service) stageMirror(pkg types.ResolvedPackage, mirrorDir string) error {
	if _, err := os.Stat(mirrorDir); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no such mirror directory %s", mirrorDir)).
			WithCause(err)
	}
	src := filepath.Join(mirrorDir, pkg.PkgName)
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}
	names, err := shared.ListRegularFiles(src)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("cannot read mirror directory %s", src)).
			WithCause(err)
	}
	for _, name := range names {
		if err := shared.CopyFile(filepath.Join(src, name), filepath.Join(pkg.PackDir, name)); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to stage %s from mirror", name)).
				WithCause(err)
		}
	}
	return nil
}

func (s Service) resolveOrigin(ctx context.Context, lg *zerolog.Logger, pkg types.ResolvedPackage) error {
	switch pkg.Meta.OriginKind() {
	case types.OriginKindDownloadHook:
		return s.runDownloadHook(ctx, lg, pkg)
	case types.OriginKindArchive:
		return s.extractArchive(ctx, lg, pkg)
	case types.OriginKindSourcePath:
		return s.copySourceTree(ctx, lg, pkg)
	case types.OriginKindFileList:
		return s.synthesizeSourceTree(ctx, lg, pkg)
	case types.OriginKindPrestaged:
		return s.extractPrestaged(ctx, lg, pkg)
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("unknown origin for %s", pkg.PkgName))
}

// runDownloadHook executes the metadata's hook script in the pack
// directory. The hook is responsible for producing the source tree
// under the name it is given, and may also leave an orig tarball; the
// fallback tarball is built only when it did not.
func (s Service) runDownloadHook(ctx context.Context, lg *zerolog.Logger, pkg types.ResolvedPackage) error {
	hook := shared.ExpandPath(pkg.Meta.DownloadHook, pkg.PkgDir)
	if _, err := os.Stat(hook); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("download hook not found: %s", hook)).
			WithCause(err)
	}
	lg.Info().Str("hook", hook).Msg("running download hook")
	if _, err := s.Runner.Run(ctx, pkg.PackDir, hook, filepath.Base(pkg.SrcDir)); err != nil {
		return err
	}
	if _, err := os.Stat(pkg.SrcDir); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("download hook did not produce %s", pkg.SrcDir)).
			WithCause(err)
	}
	if !hookProducedOrigTarball(pkg) {
		if err := s.createOrigTarball(ctx, lg, pkg); err != nil {
			return err
		}
	}
	if err := s.updateDebFolder(ctx, lg, pkg); err != nil {
		return err
	}
	return s.applyDebPatches(ctx, lg, pkg)
}

func hookProducedOrigTarball(pkg types.ResolvedPackage) bool {
	base := filepath.Join(pkg.PackDir, pkg.DebName+"_"+pkg.Version.Upstream)
	for _, tarball := range []string{base + ".orig.tar.gz", base + ".orig.tar.xz"} {
		if _, err := os.Stat(tarball); err == nil {
			return true
		}
	}
	return false
}

// extractArchive unpacks the fetched origin tarball into the source
// tree, stripping the tarball's own top directory when it has one.
func (s Service) extractArchive(ctx context.Context, lg *zerolog.Logger, pkg types.ResolvedPackage) error {
	tarball := filepath.Join(pkg.PackDir, filepath.Base(pkg.Meta.Archive.URL))
	if _, err := os.Stat(tarball); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("origin tarball %s is missing; run the download phase first", tarball)).
			WithCause(err)
	}
	topDir, err := s.Archive.TopDir(tarball)
	if err != nil {
		return err
	}
	lg.Info().Str("tarball", tarball).Msg("extracting origin tarball")
	if err := s.Archive.Extract(tarball, pkg.SrcDir, topDir != ""); err != nil {
		return err
	}
	if err := s.finishSourceTree(ctx, lg, pkg); err != nil {
		return err
	}
	return s.applyDebPatches(ctx, lg, pkg)
}

func (s Service) copySourceTree(ctx context.Context, lg *zerolog.Logger, pkg types.ResolvedPackage) error {
	src := shared.ExpandPath(pkg.Meta.SourcePath, pkg.PkgDir)
	lg.Info().Str("source", src).Msg("copying source tree")
	if err := shared.CopyTree(src, pkg.SrcDir); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("failed to copy source tree %s", src)).
			WithCause(err)
	}
	return s.finishSourceTree(ctx, lg, pkg)
}

func (s Service) synthesizeSourceTree(ctx context.Context, lg *zerolog.Logger, pkg types.ResolvedPackage) error {
	if err := os.MkdirAll(pkg.SrcDir, 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("cannot create %s", pkg.SrcDir)).
			WithCause(err)
	}
	for _, entry := range pkg.Meta.FileList {
		src := shared.ExpandPath(entry, pkg.PkgDir)
		lg.Debug().Str("file", src).Msg("adding file to source tree")
		if err := shared.CopyPath(src, pkg.SrcDir); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("file list entry %s is missing", src)).
				WithCause(err)
		}
	}
	return s.finishSourceTree(ctx, lg, pkg)
}

// finishSourceTree runs the steps shared by the archive and
// source-tree origins: custom file injection, orig tarball synthesis,
// then the debian overlay. The tarball must be cut before the overlay
// lands so upstream content and packaging stay separate.
func (s Service) finishSourceTree(ctx context.Context, lg *zerolog.Logger, pkg types.ResolvedPackage) error {
	if err := s.copyCustomFiles(lg, pkg); err != nil {
		return err
	}
	if err := s.createOrigTarball(ctx, lg, pkg); err != nil {
		return err
	}
	return s.updateDebFolder(ctx, lg, pkg)
}

// copyCustomFiles injects extra_files and download_files into the
// source tree. A download file with a topdir is repacked under that
// directory name first.
func (s Service) copyCustomFiles(lg *zerolog.Logger, pkg types.ResolvedPackage) error {
	for _, entry := range pkg.Meta.ExtraFiles {
		src := shared.ExpandPath(entry, pkg.PkgDir)
		lg.Debug().Str("file", src).Msg("injecting extra file")
		if err := shared.CopyPath(src, pkg.SrcDir); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("extra file %s is missing", src)).
				WithCause(err)
		}
	}
	for name, df := range pkg.Meta.DownloadFiles {
		staged := filepath.Join(pkg.PackDir, filepath.Base(df.URL))
		if _, err := os.Stat(staged); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("download file %s is missing; run the download phase first", staged)).
				WithCause(err)
		}
		if df.Topdir != "" {
			repacked, err := s.repackUnderTopdir(staged, df.Topdir, name)
			if err != nil {
				return err
			}
			staged = repacked
		}
		lg.Debug().Str("file", staged).Msg("injecting download file")
		if err := shared.CopyPath(staged, pkg.SrcDir); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to inject %s", staged)).
				WithCause(err)
		}
	}
	return nil
}

// repackUnderTopdir rewrites a fetched tarball so its members live
// under the requested top directory, returning the new tarball path.
func (s Service) repackUnderTopdir(tarball string, topdir string, name string) (string, error) {
	workDir, err := os.MkdirTemp("", "repack_")
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("cannot create repack directory").
			WithCause(err)
	}
	defer os.RemoveAll(workDir)

	existingTop, err := s.Archive.TopDir(tarball)
	if err != nil {
		return "", err
	}
	if err := s.Archive.Extract(tarball, filepath.Join(workDir, topdir), existingTop != ""); err != nil {
		return "", err
	}
	repacked := filepath.Join(filepath.Dir(tarball), name)
	if err := s.Archive.Create(repacked, workDir, []string{topdir}); err != nil {
		return "", err
	}
	return repacked, nil
}

// createOrigTarball produces <debname>_<upstream>.orig.tar.gz next to
// the source tree. A git checkout that already carries debian/ is
// exported through gbp so git attributes are honored; anything else is
// packed directly, minus version-control metadata.
func (s Service) createOrigTarball(ctx context.Context, lg *zerolog.Logger, pkg types.ResolvedPackage) error {
	if s.Git.IsRepo(pkg.SrcDir) {
		if _, err := os.Stat(filepath.Join(pkg.SrcDir, "debian")); err == nil {
			lg.Info().Msg("exporting orig tarball from git")
			return s.Git.ExportUpstream(ctx, pkg.SrcDir)
		}
	}
	entries, err := filepath.Glob(filepath.Join(pkg.SrcDir, ".git*"))
	if err == nil {
		for _, entry := range entries {
			if err := os.RemoveAll(entry); err != nil {
				return errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg(fmt.Sprintf("failed to drop %s", entry)).
					WithCause(err)
			}
		}
	}
	tarball := filepath.Join(pkg.PackDir, pkg.DebName+"_"+pkg.Version.Upstream+".orig.tar.gz")
	lg.Info().Str("tarball", tarball).Msg("creating orig tarball")
	return s.Archive.Create(tarball, pkg.PackDir, []string{filepath.Base(pkg.SrcDir)})
}

// extractPrestaged unpacks the mirrored source-package description and
// applies the metadata's deb-level patch series on top. The extracted
// tree already carries its own debian folder, so no overlay runs here.
func (s Service) extractPrestaged(ctx context.Context, lg *zerolog.Logger, pkg types.ResolvedPackage) error {
	dscPath, err := findDsc(pkg.PackDir)
	if err != nil {
		return err
	}
	lg.Info().Str("dsc", dscPath).Msg("extracting source package")
	if _, err := s.Runner.Run(ctx, pkg.PackDir, "dpkg-source", "-x", dscPath, pkg.SrcDir); err != nil {
		return err
	}
	return s.applyDebPatches(ctx, lg, pkg)
}

// updateDebFolder overlays the metadata's deb_folder onto the source
// tree's debian folder, creating it when the tree carries none. The
// overlay's own patch series is applied to the working files straight
// away unless the tree is quilt, which applies the copied series
// itself at build time.
func (s Service) updateDebFolder(ctx context.Context, lg *zerolog.Logger, pkg types.ResolvedPackage) error {
	overlay := filepath.Join(pkg.DebDir, "deb_folder")
	if _, err := os.Stat(overlay); os.IsNotExist(err) {
		return nil
	}
	lg.Info().Msg("overlaying debian folder")
	if err := shared.CopyTree(overlay, filepath.Join(pkg.SrcDir, "debian")); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to overlay debian folder").
			WithCause(err)
	}
	series := filepath.Join(overlay, "patches", "series")
	if _, err := os.Stat(series); os.IsNotExist(err) {
		return nil
	}
	format, err := s.Patches.DetectFormat(ctx, pkg.SrcDir)
	if err != nil {
		return err
	}
	if format == types.SourceFormatQuilt {
		return nil
	}
	return s.Patches.ApplySeries(ctx, pkg.SrcDir, series, format)
}

// applyDebPatches applies the metadata's deb_patches series to the
// extracted tree.
func (s Service) applyDebPatches(ctx context.Context, lg *zerolog.Logger, pkg types.ResolvedPackage) error {
	series := filepath.Join(pkg.DebDir, "deb_patches", "series")
	if _, err := os.Stat(series); os.IsNotExist(err) {
		return nil
	}
	format, err := s.Patches.DetectFormat(ctx, pkg.SrcDir)
	if err != nil {
		return err
	}
	lg.Info().Str("format", string(format)).Msg("applying deb patches")
	return s.Patches.ApplySeries(ctx, pkg.SrcDir, series, format)
}

// applySrcPatches applies the debian folder's own patch series to the
// assembled source tree.
func (s Service) applySrcPatches(ctx context.Context, lg *zerolog.Logger, pkg types.ResolvedPackage) error {
	series := filepath.Join(pkg.DebDir, "patches", "series")
	if _, err := os.Stat(series); os.IsNotExist(err) {
		return nil
	}
	format, err := s.Patches.DetectFormat(ctx, pkg.SrcDir)
	if err != nil {
		return err
	}
	lg.Info().Str("format", string(format)).Msg("applying source patches")
	return s.Patches.ApplySeries(ctx, pkg.SrcDir, series, format)
}

// updateChangelog stamps a new changelog entry carrying the declared
// version plus the computed revision suffix. The suffix is counted
// against the canonical debian folder, never the overlay copy.
func (s Service) updateChangelog(ctx context.Context, lg *zerolog.Logger, pkg types.ResolvedPackage) error {
	suffix, err := s.Revision.Suffix(ctx, pkg.Meta, filepath.Join(pkg.PkgDir, "debian"))
	if err != nil {
		return err
	}
	// The suffix already carries its separator ("bullseye.3", ".7").
	version := pkg.Version.Full + suffix
	lg.Info().Str("version", version).Str("distribution", s.Cfg.Distribution).Msg("updating changelog")
	_, err = s.Runner.Run(ctx, pkg.SrcDir, "dch", "-p", "-D", s.Cfg.Distribution, "-v", version, "-b", s.Cfg.ReleaseNotes)
	return err
}

// collectOutput locates the generated description via the final
// changelog, verifies it parses, and copies it with its members into
// the output directory.
func (s Service) collectOutput(ctx context.Context, pkg types.ResolvedPackage, outputDir string) ([]string, error) {
	source, err := s.Runner.Run(ctx, pkg.SrcDir, "dpkg-parsechangelog", "--show-field", "Source")
	if err != nil {
		return nil, err
	}
	rawVersion, err := s.Runner.Run(ctx, pkg.SrcDir, "dpkg-parsechangelog", "--show-field", "Version")
	if err != nil {
		return nil, err
	}
	built, err := core.ParseVersion(rawVersion)
	if err != nil {
		return nil, err
	}
	dscPath := filepath.Join(pkg.PackDir, source+"_"+built.NoEpoch()+".dsc")
	dsc, err := s.Dsc.Parse(dscPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("cannot create output directory %s", outputDir)).
			WithCause(err)
	}
	names := append([]string{filepath.Base(dscPath)}, memberNames(dsc)...)
	files := make([]string, 0, len(names))
	for _, name := range names {
		dst := filepath.Join(outputDir, name)
		if err := shared.CopyFile(filepath.Join(pkg.PackDir, name), dst); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to copy %s to output", name)).
				WithCause(err)
		}
		files = append(files, dst)
	}
	return files, nil
}

func memberNames(dsc types.Dsc) []string {
	names := make([]string, 0, len(dsc.Members))
	for _, m := range dsc.Members {
		names = append(names, m.Name)
	}
	return names
}

func findDsc(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.dsc"))
	if err != nil || len(matches) == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("no source package description found in %s", dir))
	}
	return matches[0], nil
}

func recreateDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("cannot clear %s", dir)).
			WithCause(err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("cannot create %s", dir)).
			WithCause(err)
	}
	return nil
}

package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"debforge/internal/shared"
	"debforge/internal/types"
)

// Download fills the package's mirror directory with everything the
// assembly phase will need: the origin tarball, declared download
// files, and for pre-staged packages the source-package description
// with its members. Files already matching their checksums are left
// alone, so re-running the phase is free.
func (s Service) Download(ctx context.Context, req DownloadRequest) (DownloadResult, error) {
	pkg, err := s.resolvePackage(req.PkgDir, os.TempDir())
	if err != nil {
		return DownloadResult{}, err
	}
	saveTo := filepath.Join(req.MirrorDir, pkg.PkgName)
	if err := os.MkdirAll(saveTo, 0o755); err != nil {
		return DownloadResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("cannot create mirror directory %s", saveTo)).
			WithCause(err)
	}

	if archive := pkg.Meta.Archive; archive != nil {
		savePath := filepath.Join(saveTo, filepath.Base(archive.URL))
		log.Info().Str("package", pkg.PkgName).Str("url", archive.URL).Msg("fetching origin tarball")
		if err := s.Fetcher.Fetch(ctx, archive.URL, savePath, archive.Checksum(savePath)); err != nil {
			return DownloadResult{}, err
		}
	}
	for name, df := range pkg.Meta.DownloadFiles {
		savePath := filepath.Join(saveTo, filepath.Base(df.URL))
		log.Info().Str("package", pkg.PkgName).Str("file", name).Str("url", df.URL).Msg("fetching download file")
		if err := s.Fetcher.Fetch(ctx, df.URL, savePath, df.Checksum(savePath)); err != nil {
			return DownloadResult{}, err
		}
	}
	if pkg.Meta.OriginKind() == types.OriginKindPrestaged {
		if err := s.downloadPrestaged(ctx, pkg, saveTo); err != nil {
			return DownloadResult{}, err
		}
	}

	files, err := shared.ListRegularFiles(saveTo)
	if err != nil {
		return DownloadResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("cannot list mirror directory %s", saveTo)).
			WithCause(err)
	}
	return DownloadResult{Files: files}, nil
}

// downloadPrestaged fetches the package's source-package description
// and its members from the package archive. A local description whose
// members all validate is reused without network traffic; anything
// stale is refetched.
func (s Service) downloadPrestaged(ctx context.Context, pkg types.ResolvedPackage, saveTo string) error {
	dscName := pkg.DebName + "_" + pkg.Version.NoEpoch() + ".dsc"
	dscPath := filepath.Join(saveTo, dscName)

	if _, err := os.Stat(dscPath); err == nil {
		if err := s.Dsc.Verify(dscPath); err == nil {
			log.Info().Str("package", pkg.PkgName).Str("dsc", dscName).Msg("reusing validated source package")
			return nil
		}
		log.Warn().Str("package", pkg.PkgName).Str("dsc", dscName).Msg("local source package is stale, refetching")
	}

	if s.Cfg.PackageArchiveURL == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("package %s declares no origin and no package archive URL is configured", pkg.PkgName))
	}
	base := s.Cfg.PackageArchiveURL

	// The description carries its own member digests, so it is fetched
	// without a checksum and validated as a whole afterwards.
	if err := s.Fetcher.Fetch(ctx, base+"/"+dscName, dscPath, types.ChecksumRecord{Path: dscPath}); err != nil {
		return err
	}
	dsc, err := s.Dsc.Parse(dscPath)
	if err != nil {
		return err
	}
	for _, member := range dsc.Members {
		savePath := filepath.Join(saveTo, member.Name)
		rec := types.ChecksumRecord{Path: savePath, Algo: types.ChecksumAlgoSHA256, Expected: member.SHA256}
		if err := s.Fetcher.Fetch(ctx, base+"/"+member.Name, savePath, rec); err != nil {
			return err
		}
	}
	return s.Dsc.Verify(dscPath)
}

package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"debforge/internal/core"
	"debforge/internal/shared"
	"debforge/internal/types"
)

// MetaChecksum computes the content checksum identifying a package's
// current inputs: every file under the debian folder plus the declared
// source files, and the recent history of any counted git tree. Builds
// whose checksum matches a recorded one can be skipped; any edit to an
// input changes the value.
func (s Service) MetaChecksum(ctx context.Context, req ChecksumRequest) (ChecksumResult, error) {
	pkg, err := s.resolvePackage(req.PkgDir, os.TempDir())
	if err != nil {
		return ChecksumResult{}, err
	}

	paths, err := checksumInputs(pkg)
	if err != nil {
		return ChecksumResult{}, err
	}

	var parts []string
	for _, path := range paths {
		digest, err := core.FileDigest(path, types.ChecksumAlgoMD5)
		if err != nil {
			return ChecksumResult{}, err
		}
		parts = append(parts, digest)
	}

	// A counted tree contributes its recent history so new commits and
	// uncommitted edits both change the checksum.
	if rules := pkg.Meta.Revision; rules != nil && rules.TreeRevCount != nil {
		srcDir := os.ExpandEnv(rules.TreeRevCount.SrcDir)
		if _, err := os.Stat(srcDir); err == nil {
			gitLog, err := s.Runner.Run(ctx, srcDir, "git", "log", "--oneline", "-10", ".")
			if err != nil {
				return ChecksumResult{}, err
			}
			diff, err := s.Runner.Run(ctx, srcDir, "git", "diff", ".")
			if err != nil {
				return ChecksumResult{}, err
			}
			parts = append(parts, gitLog, diff)
		}
	}

	return ChecksumResult{Checksum: core.StringMD5(strings.Join(parts, "\n"))}, nil
}

// checksumInputs returns the sorted file set the checksum covers:
// the canonical debian folder, the declared file list, and any extra
// files. Version-control metadata is excluded.
func checksumInputs(pkg types.ResolvedPackage) ([]string, error) {
	var paths []string
	debDir := filepath.Join(pkg.PkgDir, "debian")
	err := filepath.Walk(debDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".git") {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("cannot walk %s", debDir)).
			WithCause(err)
	}

	declared := append(append([]string{}, pkg.Meta.FileList...), pkg.Meta.ExtraFiles...)
	for _, entry := range declared {
		src := shared.ExpandPath(entry, pkg.PkgDir)
		info, err := os.Stat(src)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("declared file %s is missing", src)).
				WithCause(err)
		}
		if !info.IsDir() {
			paths = append(paths, src)
			continue
		}
		err = filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() && strings.HasPrefix(info.Name(), ".git") {
				return filepath.SkipDir
			}
			if info.Mode().IsRegular() {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("cannot walk %s", src)).
				WithCause(err)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"debforge/internal/ports"
	"debforge/internal/types"
)

// PatchApplier applies an ordered patch series to an extracted source
// tree. The behavior branches on the tree's discovered source format:
// legacy (1.0) and native (3.0) patches are applied to the working
// files immediately; quilt (3.0) patches are registered in the tree's
// own debian/patches/series and applied later by the package build
// tool.
type PatchApplier struct {
	Runner ports.CommandRunner
}

func NewPatchApplier(runner ports.CommandRunner) PatchApplier {
	return PatchApplier{Runner: runner}
}

// DetectFormat classifies the source tree by querying dpkg-source. Any
// answer other than the three known formats is a configuration error.
func (p PatchApplier) DetectFormat(ctx context.Context, srcDir string) (types.SourceFormat, error) {
	out, err := p.Runner.Run(ctx, "", "dpkg-source", "--print-format", srcDir)
	if err != nil {
		return "", err
	}
	// Legacy trees may report "1.0" with trailing qualifiers.
	reported := strings.TrimSpace(out)
	if strings.HasPrefix(reported, "1.0") {
		return types.SourceFormatLegacy, nil
	}
	switch reported {
	case string(types.SourceFormatNative):
		return types.SourceFormatNative, nil
	case string(types.SourceFormatQuilt):
		return types.SourceFormatQuilt, nil
	}
	return "", errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("unrecognized source format %q for %s", reported, srcDir))
}

// ReadSeries parses a patch series file, skipping blank lines and
// lines starting with '#'. A missing series file yields an empty list.
func ReadSeries(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to read series file %s", path)).
			WithCause(err)
	}
	var patches []string
	for _, line := range strings.Split(string(content), "\n") {
		entry := strings.TrimSpace(line)
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		patches = append(patches, entry)
	}
	return patches, nil
}

// ApplySeries applies every patch listed in seriesPath to srcDir
// according to format, in series order. Patch files are resolved
// relative to the series file's directory. A failing direct patch
// aborts immediately; nothing retries a partial application.
func (p PatchApplier) ApplySeries(ctx context.Context, srcDir string, seriesPath string, format types.SourceFormat) error {
	patches, err := ReadSeries(seriesPath)
	if err != nil {
		return err
	}
	if len(patches) == 0 {
		return nil
	}
	patchesSrc := filepath.Dir(seriesPath)

	switch format {
	case types.SourceFormatLegacy, types.SourceFormatNative:
		for _, name := range patches {
			log.Info().Str("patch", name).Str("srcdir", srcDir).Msg("applying patch")
			if err := p.applyDirect(ctx, srcDir, filepath.Join(patchesSrc, name)); err != nil {
				return err
			}
		}
		return nil
	case types.SourceFormatQuilt:
		for _, name := range patches {
			log.Info().Str("patch", name).Str("srcdir", srcDir).Msg("registering patch")
			if err := registerQuiltPatch(srcDir, filepath.Join(patchesSrc, name), name); err != nil {
				return err
			}
		}
		return nil
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("unrecognized source format: %s", format))
}

func (p PatchApplier) applyDirect(ctx context.Context, srcDir string, patchPath string) error {
	_, err := p.Runner.RunStdin(ctx, srcDir, patchPath, "patch", "-p1")
	return err
}

// registerQuiltPatch copies the patch into the tree's debian/patches
// directory and appends its name to the series file, creating an empty
// series first when the tree has none.
func registerQuiltPatch(srcDir string, patchPath string, name string) error {
	patchesDir := filepath.Join(srcDir, "debian", "patches")
	seriesFile := filepath.Join(patchesDir, "series")
	if _, err := os.Stat(patchesDir); os.IsNotExist(err) {
		if err := os.MkdirAll(patchesDir, 0o755); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create debian/patches").
				WithCause(err)
		}
		if err := os.WriteFile(seriesFile, nil, 0o644); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create series file").
				WithCause(err)
		}
	}

	content, err := os.ReadFile(patchPath)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("patch file not found: %s", patchPath)).
			WithCause(err)
	}
	if err := os.WriteFile(filepath.Join(patchesDir, name), content, 0o644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to copy patch %s", name)).
			WithCause(err)
	}

	series, err := os.OpenFile(seriesFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open series file").
			WithCause(err)
	}
	defer series.Close()
	if _, err := series.WriteString(name + "\n"); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to append to series file").
			WithCause(err)
	}
	return nil
}

package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"debforge/internal/core"
	"debforge/internal/ports"
	"debforge/internal/shared"
	"debforge/internal/types"
)

// MetaFileAdapter loads a package's meta_data.yaml, validates it once,
// and normalizes the declared paths, so the pipelines never re-check
// the document piecemeal.
type MetaFileAdapter struct{}

func NewMetaFileAdapter() MetaFileAdapter {
	return MetaFileAdapter{}
}

func (a MetaFileAdapter) Load(path string) (types.PackageMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.PackageMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("metadata file not found: %s", path)).
			WithCause(err)
	}
	var meta types.PackageMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return types.PackageMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to parse metadata yaml: %s", path)).
			WithCause(err)
	}

	// Declared paths are relative to the package directory holding the
	// debian folder the metadata lives in.
	pkgDir := filepath.Dir(filepath.Dir(path))
	if meta.SourcePath != "" {
		meta.SourcePath = shared.ExpandPath(meta.SourcePath, pkgDir)
		if _, err := os.Stat(meta.SourcePath); err != nil {
			return types.PackageMetadata{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("%s: no such directory", meta.SourcePath)).
				WithCause(err)
		}
	}
	for i, file := range meta.FileList {
		resolved := shared.ExpandPath(file, pkgDir)
		if _, err := os.Stat(resolved); err != nil {
			return types.PackageMetadata{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("no such file: %s", resolved)).
				WithCause(err)
		}
		meta.FileList[i] = resolved
	}
	for i, file := range meta.ExtraFiles {
		resolved := shared.ExpandPath(file, pkgDir)
		if _, err := os.Stat(resolved); err != nil {
			return types.PackageMetadata{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("no such file: %s", resolved)).
				WithCause(err)
		}
		meta.ExtraFiles[i] = resolved
	}

	if err := core.ValidateMetadata(context.Background(), meta); err != nil {
		return types.PackageMetadata{}, err
	}
	return meta, nil
}

var _ ports.MetadataLoader = MetaFileAdapter{}

package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"debforge/internal/ports"
	"debforge/internal/shared"
)

// ArtifactMirrorAdapter resolves built .deb artifacts from a local
// mirror directory, matching them to package names by the debian
// name_version convention.
type ArtifactMirrorAdapter struct {
	MirrorDir string
}

func NewArtifactMirrorAdapter(mirrorDir string) (ArtifactMirrorAdapter, error) {
	if mirrorDir == "" {
		return ArtifactMirrorAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("artifact mirror directory is not configured")
	}
	return ArtifactMirrorAdapter{MirrorDir: mirrorDir}, nil
}

func (a ArtifactMirrorAdapter) FetchArtifacts(ctx context.Context, packages []string, destDir string) ([]string, error) {
	entries, err := os.ReadDir(a.MirrorDir)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("cannot read artifact mirror %s", a.MirrorDir)).
			WithCause(err)
	}

	var fetched []string
	for _, pkg := range packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches := matchArtifacts(entries, pkg)
		if len(matches) == 0 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("no artifacts found for package %s in %s", pkg, a.MirrorDir))
		}
		for _, name := range matches {
			src := filepath.Join(a.MirrorDir, name)
			dst := filepath.Join(destDir, name)
			if err := shared.CopyFile(src, dst); err != nil {
				return nil, errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg(fmt.Sprintf("failed to stage artifact %s", name)).
					WithCause(err)
			}
			log.Debug().Str("package", pkg).Str("artifact", name).Msg("staged artifact")
			fetched = append(fetched, name)
		}
	}
	sort.Strings(fetched)
	return fetched, nil
}

func matchArtifacts(entries []os.DirEntry, pkg string) []string {
	var matches []string
	prefix := pkg + "_"
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".deb") && strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}
	return matches
}

var _ ports.ArtifactFetcher = ArtifactMirrorAdapter{}

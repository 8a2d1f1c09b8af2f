package core

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"debforge/internal/ports"
	"debforge/internal/types"
)

// RevisionCounter turns the metadata revision rules plus the current
// git state into a revision suffix string, e.g. ".7" or "bullseye.3".
// The result is deterministic for identical git state and metadata;
// uncommitted changes under any counted path bump the number, so dirty
// work always changes the identity of a build.
type RevisionCounter struct {
	Git ports.Git
}

func NewRevisionCounter(git ports.Git) RevisionCounter {
	return RevisionCounter{Git: git}
}

// Suffix computes the revision suffix for the package. debDir is the
// package's canonical debian folder (not the build-type overlay copy,
// whose rewrite would otherwise count as dirt). An empty string is
// returned when no revision rules are declared.
func (c RevisionCounter) Suffix(ctx context.Context, meta types.PackageMetadata, debDir string) (string, error) {
	if meta.Revision == nil {
		return "", nil
	}
	rules := *meta.Revision
	dist := os.ExpandEnv(rules.Dist)
	revision := 0

	if rules.PackageRevCount {
		count, err := c.countTree(ctx, debDir, rules.PackageBaseRev)
		if err != nil {
			return "", err
		}
		revision += count
	}

	if rules.SourceRevCount != nil {
		if meta.SourcePath == "" {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("src_gitrevcount is set, but metadata declares no source_path")
		}
		count, err := c.countTree(ctx, meta.SourcePath, rules.SourceRevCount.BaseRev)
		if err != nil {
			return "", err
		}
		revision += count
	}

	if rules.TreeRevCount != nil {
		if rules.TreeRevCount.SrcDir == "" {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("gitrevcount is set without src_dir")
		}
		if rules.TreeRevCount.BaseRev == "" {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("gitrevcount is set without base_srcrev")
		}
		srcDir := os.ExpandEnv(rules.TreeRevCount.SrcDir)
		count, err := c.countTree(ctx, srcDir, rules.TreeRevCount.BaseRev)
		if err != nil {
			return "", err
		}
		revision += count
	}

	if rules.DistPatch != nil {
		if *rules.DistPatch < 0 {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("dist_patch must not be negative: %d", *rules.DistPatch))
		}
		revision += *rules.DistPatch
	}

	return dist + "." + strconv.Itoa(revision), nil
}

func (c RevisionCounter) countTree(ctx context.Context, dir string, baseRev string) (int, error) {
	commits, err := c.Git.CommitCount(ctx, dir, baseRev)
	if err != nil {
		return 0, err
	}
	dirty, err := c.Git.DirtyCount(ctx, dir)
	if err != nil {
		return 0, err
	}
	return commits + dirty, nil
}

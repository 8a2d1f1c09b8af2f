package adapters

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"debforge/internal/ports"
)

// GitCLIAdapter answers version-control queries by driving the git CLI
// through the command runner. Counts are scoped to the directory the
// query runs in via a "." pathspec, matching how revision rules bind a
// contribution to a path.
type GitCLIAdapter struct {
	Runner ports.CommandRunner
}

func NewGitCLIAdapter(runner ports.CommandRunner) GitCLIAdapter {
	return GitCLIAdapter{Runner: runner}
}

func (a GitCLIAdapter) IsRepo(dir string) bool {
	_, err := a.Runner.Run(context.Background(), dir, "git", "rev-parse", "--git-dir")
	return err == nil
}

func (a GitCLIAdapter) CommitCount(ctx context.Context, dir string, baseRev string) (int, error) {
	revRange := "HEAD"
	if baseRev != "" {
		revRange = baseRev + "..HEAD"
	}
	out, err := a.Runner.Run(ctx, dir, "git", "rev-list", "--count", revRange, ".")
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("unexpected rev-list output in %s: %q", dir, out)).
			WithCause(err)
	}
	return count, nil
}

func (a GitCLIAdapter) DirtyCount(ctx context.Context, dir string) (int, error) {
	out, err := a.Runner.Run(ctx, dir, "git", "status", "--porcelain", ".")
	if err != nil {
		return 0, err
	}
	count := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count, nil
}

func (a GitCLIAdapter) ExportUpstream(ctx context.Context, dir string) error {
	_, err := a.Runner.Run(ctx, dir, "gbp", "export-orig", "--upstream-tree=HEAD")
	return err
}

var _ ports.Git = GitCLIAdapter{}

package adapters

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"debforge/internal/ports"
	"debforge/internal/shared"
)

// CommandRunnerAdapter drives external tools via os/exec. The working
// directory is set per invocation on the command itself; the process
// working directory is never changed, so a failing step cannot corrupt
// the steps after it.
type CommandRunnerAdapter struct{}

func NewCommandRunnerAdapter() CommandRunnerAdapter {
	return CommandRunnerAdapter{}
}

func (a CommandRunnerAdapter) Run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	return a.run(ctx, dir, nil, name, args...)
}

func (a CommandRunnerAdapter) RunStdin(ctx context.Context, dir string, stdinPath string, name string, args ...string) (string, error) {
	stdin, err := os.Open(stdinPath)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("cannot open %s", stdinPath)).
			WithCause(err)
	}
	defer stdin.Close()
	return a.run(ctx, dir, stdin, name, args...)
}

func (a CommandRunnerAdapter) run(ctx context.Context, dir string, stdin *os.File, name string, args ...string) (string, error) {
	log.Debug().Str("cmd", name).Strs("args", args).Str("dir", dir).Msg("running command")
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("%s %s failed", name, strings.Join(args, " "))).
			WithCause(shared.CommandError(stderr.Bytes(), err))
	}
	return strings.TrimSpace(stdout.String()), nil
}

var _ ports.CommandRunner = CommandRunnerAdapter{}

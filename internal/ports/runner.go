package ports

import "context"

// CommandRunner executes an external command and returns its captured
// stdout. A nonzero exit is returned as an error carrying the command
// output. The working directory is an explicit parameter on every call;
// nothing in this codebase changes the process-wide working directory.
type CommandRunner interface {
	// Run executes name with args in dir ("" for the caller's cwd).
	Run(ctx context.Context, dir string, name string, args ...string) (string, error)

	// RunStdin is Run with the named file connected to stdin, the shape
	// patch application needs ("patch -p1 < file").
	RunStdin(ctx context.Context, dir string, stdinPath string, name string, args ...string) (string, error)
}

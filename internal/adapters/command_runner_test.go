package adapters

import (
	"testing"

	"github.com/stretchr/testify/require"

	"debforge/tests/testutil"
)

func TestRunCapturesStdout(t *testing.T) {
	runner := NewCommandRunnerAdapter()
	out, err := runner.Run(t.Context(), "", "echo", "hello")
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestRunHonorsWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	runner := NewCommandRunnerAdapter()
	out, err := runner.Run(t.Context(), dir, "pwd")
	require.NoError(t, err)
	require.Equal(t, dir, out)
}

func TestRunFailureCarriesStderr(t *testing.T) {
	runner := NewCommandRunnerAdapter()
	_, err := runner.Run(t.Context(), "", "ls", "/definitely/not/a/path")
	require.Error(t, err)
}

func TestRunStdin(t *testing.T) {
	input := testutil.WriteFile(t, t.TempDir(), "input", "stdin content")
	runner := NewCommandRunnerAdapter()
	out, err := runner.RunStdin(t.Context(), "", input, "cat")
	require.NoError(t, err)
	require.Equal(t, "stdin content", out)
}

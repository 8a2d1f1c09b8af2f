package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"debforge/internal/types"
	"debforge/tests/testutil"
)

type recordedCall struct {
	Dir   string
	Stdin string
	Name  string
	Args  []string
}

type fakeRunner struct {
	output string
	calls  []recordedCall
}

func (f *fakeRunner) Run(_ context.Context, dir string, name string, args ...string) (string, error) {
	f.calls = append(f.calls, recordedCall{Dir: dir, Name: name, Args: args})
	return f.output, nil
}

func (f *fakeRunner) RunStdin(_ context.Context, dir string, stdinPath string, name string, args ...string) (string, error) {
	f.calls = append(f.calls, recordedCall{Dir: dir, Stdin: stdinPath, Name: name, Args: args})
	return f.output, nil
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		reported string
		want     types.SourceFormat
	}{
		{"1.0", types.SourceFormatLegacy},
		{"1.0 (native)", types.SourceFormatLegacy},
		{"3.0 (native)", types.SourceFormatNative},
		{"3.0 (quilt)", types.SourceFormatQuilt},
	}
	for _, tc := range cases {
		runner := &fakeRunner{output: tc.reported}
		applier := NewPatchApplier(runner)
		got, err := applier.DetectFormat(t.Context(), "/src")
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
}

func TestDetectFormatUnknown(t *testing.T) {
	runner := &fakeRunner{output: "2.0"}
	applier := NewPatchApplier(runner)
	_, err := applier.DetectFormat(t.Context(), "/src")
	require.ErrorContains(t, err, "unrecognized source format")
}

func TestReadSeries(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "series", "# comment\np1.patch\n\n  p2.patch  \n#p3.patch\n")

	patches, err := ReadSeries(path)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"p1.patch", "p2.patch"}, patches); diff != "" {
		t.Fatalf("unexpected series (-want +got):\n%s", diff)
	}
}

func TestReadSeriesMissingFile(t *testing.T) {
	patches, err := ReadSeries(filepath.Join(t.TempDir(), "series"))
	require.NoError(t, err)
	require.Empty(t, patches)
}

func TestApplySeriesDirect(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "p1.patch", "--- a\n+++ b\n")
	testutil.WriteFile(t, dir, "p2.patch", "--- a\n+++ b\n")
	series := testutil.WriteFile(t, dir, "series", "p1.patch\np2.patch\n")

	runner := &fakeRunner{}
	applier := NewPatchApplier(runner)
	srcDir := t.TempDir()
	require.NoError(t, applier.ApplySeries(t.Context(), srcDir, series, types.SourceFormatNative))

	require.Len(t, runner.calls, 2)
	require.Equal(t, "patch", runner.calls[0].Name)
	require.Equal(t, []string{"-p1"}, runner.calls[0].Args)
	require.Equal(t, srcDir, runner.calls[0].Dir)
	require.Equal(t, filepath.Join(dir, "p1.patch"), runner.calls[0].Stdin)
	require.Equal(t, filepath.Join(dir, "p2.patch"), runner.calls[1].Stdin)
}

func TestApplySeriesQuiltRegisters(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "p1.patch", "patch one\n")
	testutil.WriteFile(t, dir, "p2.patch", "patch two\n")
	series := testutil.WriteFile(t, dir, "series", "p1.patch\np2.patch\n")

	runner := &fakeRunner{}
	applier := NewPatchApplier(runner)
	srcDir := t.TempDir()
	require.NoError(t, applier.ApplySeries(t.Context(), srcDir, series, types.SourceFormatQuilt))

	// Nothing is applied to the working files.
	require.Empty(t, runner.calls)

	treeSeries := testutil.ReadFile(t, filepath.Join(srcDir, "debian", "patches", "series"))
	require.Equal(t, "p1.patch\np2.patch\n", treeSeries)
	require.Equal(t, "patch one\n", testutil.ReadFile(t, filepath.Join(srcDir, "debian", "patches", "p1.patch")))
}

func TestApplySeriesQuiltAppendsExistingSeries(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "extra.patch", "extra\n")
	series := testutil.WriteFile(t, dir, "series", "extra.patch\n")

	srcDir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(srcDir, "debian", "patches"), "series", "existing.patch\n")

	applier := NewPatchApplier(&fakeRunner{})
	require.NoError(t, applier.ApplySeries(t.Context(), srcDir, series, types.SourceFormatQuilt))

	treeSeries := testutil.ReadFile(t, filepath.Join(srcDir, "debian", "patches", "series"))
	require.Equal(t, "existing.patch\nextra.patch\n", treeSeries)
}

func TestApplySeriesEmptySeries(t *testing.T) {
	runner := &fakeRunner{}
	applier := NewPatchApplier(runner)
	require.NoError(t, applier.ApplySeries(t.Context(), t.TempDir(), filepath.Join(t.TempDir(), "series"), types.SourceFormatNative))
	require.Empty(t, runner.calls)
}

func TestApplySeriesMissingQuiltPatch(t *testing.T) {
	dir := t.TempDir()
	series := testutil.WriteFile(t, dir, "series", "absent.patch\n")

	applier := NewPatchApplier(&fakeRunner{})
	err := applier.ApplySeries(t.Context(), t.TempDir(), series, types.SourceFormatQuilt)
	require.ErrorContains(t, err, "absent.patch")
}

func TestApplySeriesUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "p1.patch", "patch\n")
	series := testutil.WriteFile(t, dir, "series", "p1.patch\n")

	applier := NewPatchApplier(&fakeRunner{})
	err := applier.ApplySeries(t.Context(), t.TempDir(), series, types.SourceFormat("2.0"))
	require.ErrorContains(t, err, "unrecognized source format")
}

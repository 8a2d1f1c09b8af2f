package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"debforge/internal/types"
)

func TestParseVersion(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  types.Version
	}{
		{
			name:  "epoch upstream and revision",
			input: "2:1.4-3",
			want:  types.Version{Epoch: "2", Upstream: "1.4", Revision: "3", Full: "2:1.4-3"},
		},
		{
			name:  "upstream only",
			input: "1.0.2",
			want:  types.Version{Upstream: "1.0.2", Full: "1.0.2"},
		},
		{
			name:  "hyphenated upstream",
			input: "1.4-rc1-2",
			want:  types.Version{Upstream: "1.4-rc1", Revision: "2", Full: "1.4-rc1-2"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseVersion(tc.input)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("unexpected version (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseVersionInvalid(t *testing.T) {
	_, err := ParseVersion("")
	require.Error(t, err)

	_, err = ParseVersion("not a version!")
	require.Error(t, err)
}

func TestVersionNoEpoch(t *testing.T) {
	v, err := ParseVersion("2:1.4-3")
	require.NoError(t, err)
	require.Equal(t, "1.4-3", v.NoEpoch())

	v, err = ParseVersion("1.4-3")
	require.NoError(t, err)
	require.Equal(t, "1.4-3", v.NoEpoch())
}

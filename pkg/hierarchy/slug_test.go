package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHierarchy_Slug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "Yosemite", want: "yosemite", wantOK: true},
		{in: "El Capitan", want: "el_capitan", wantOK: true},
		{in: "  Redgarden -- Wall!! ", want: "redgarden_wall", wantOK: true},
		{in: "100 Foot Wall", want: "n100_foot_wall", wantOK: true},
		{in: "9", want: "n9", wantOK: true},
		{in: "Café Crack", want: "caf_crack", wantOK: true},
		{in: "A/B_C", want: "a_b_c", wantOK: true},
		{in: "", wantOK: false},
		{in: "!!!", wantOK: false},
		{in: "___", wantOK: false},
		{in: "日本", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := Slug(tt.in)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)

			again, againOK := Slug(tt.in)
			require.Equal(t, got, again)
			require.Equal(t, ok, againOK)
		})
	}
}

func TestHierarchy_MaterializedPath(t *testing.T) {
	t.Parallel()

	path, unnamed := MaterializedPath([]string{"USA", "California", "Yosemite Valley"})
	require.Equal(t, "usa.california.yosemite_valley", path)
	require.Empty(t, unnamed)

	path, unnamed = MaterializedPath([]string{"Japan", "日本", "1st Wall"})
	require.Equal(t, "japan.unnamed.n1st_wall", path)
	require.Equal(t, []string{"日本"}, unnamed)
}

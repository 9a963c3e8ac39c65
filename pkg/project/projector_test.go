package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	text  map[string]string
	float map[string]float64
	ints  map[string]int64
	bools map[string]bool
}

func (r fakeRow) Text(c string) (string, bool) {
	v, ok := r.text[c]
	return v, ok
}

func (r fakeRow) Float(c string) (float64, bool) {
	v, ok := r.float[c]
	return v, ok
}

func (r fakeRow) Int(c string) (int64, bool) {
	v, ok := r.ints[c]
	return v, ok
}

func (r fakeRow) Bool(c string) (bool, bool) {
	v, ok := r.bools[c]
	return v, ok
}

func testColumns() []Column {
	return []Column{
		{Name: "id", Source: "climb_id", Kind: KindRouteID},
		{Name: "area_id", Kind: KindAreaID},
		{Name: "name", Source: "climb_name", Kind: KindText},
		{Name: "is_trad", Source: "is_trad", Kind: KindFlag},
		{Name: "length_meters", Source: "length_meters", Kind: KindPositiveInt},
		{Name: "safety", Source: "safety", Kind: KindSafety, Cast: "safety_rating"},
		{Name: "lat", Source: "latitude", Kind: KindNumber},
		{Name: "pitch_count", Kind: KindConst, Const: 1},
	}
}

func TestProject_Projector_Project(t *testing.T) {
	t.Parallel()

	area := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	tests := []struct {
		name string
		row  fakeRow
		want []any
	}{
		{
			name: "all fields present",
			row: fakeRow{
				text:  map[string]string{"climb_id": " c1 ", "climb_name": "Snake Dike", "safety": "R"},
				float: map[string]float64{"latitude": 37.7},
				ints:  map[string]int64{"length_meters": 240},
				bools: map[string]bool{"is_trad": true},
			},
			want: []any{"c1", area, "Snake Dike", true, int64(240), "R", 37.7, 1},
		},
		{
			name: "missing optionals",
			row:  fakeRow{text: map[string]string{"climb_id": "c2"}},
			want: []any{"c2", area, nil, false, nil, DefaultSafetyUnspecified, nil, 1},
		},
		{
			name: "none safety and zero length",
			row: fakeRow{
				text: map[string]string{"climb_id": "c3", "safety": "None"},
				ints: map[string]int64{"length_meters": 0},
			},
			want: []any{"c3", area, nil, false, nil, DefaultSafetyUnspecified, nil, 1},
		},
		{
			name: "negative count",
			row: fakeRow{
				text: map[string]string{"climb_id": "c4"},
				ints: map[string]int64{"length_meters": -3},
			},
			want: []any{"c4", area, nil, false, nil, DefaultSafetyUnspecified, nil, 1},
		},
	}

	p, err := New(testColumns(), DefaultPolicy())
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := p.Project(tt.row, area)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestProject_Projector_MissingRouteID(t *testing.T) {
	t.Parallel()

	p, err := New(testColumns(), DefaultPolicy())
	require.NoError(t, err)

	_, err = p.Project(fakeRow{}, uuid.New())
	require.ErrorIs(t, err, ErrMissingRouteID)

	_, err = p.Project(fakeRow{text: map[string]string{"climb_id": "   "}}, uuid.New())
	require.ErrorIs(t, err, ErrMissingRouteID)
}

func TestProject_Projector_MissingMarkers(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()
	policy.MissingMarkers = []string{"nan", "N/A"}
	p, err := New(testColumns(), policy)
	require.NoError(t, err)

	got, err := p.Project(fakeRow{text: map[string]string{"climb_id": "c1", "climb_name": "n/a", "safety": "NaN"}}, uuid.Nil)
	require.NoError(t, err)
	require.Nil(t, got[2])
	require.Equal(t, DefaultSafetyUnspecified, got[5])

	_, err = p.Project(fakeRow{text: map[string]string{"climb_id": "NAN"}}, uuid.Nil)
	require.ErrorIs(t, err, ErrMissingRouteID)
}

func TestProject_New_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		columns []Column
	}{
		{name: "empty", columns: nil},
		{name: "no route id", columns: []Column{{Name: "area_id", Kind: KindAreaID}}},
		{name: "no area id", columns: []Column{{Name: "id", Source: "climb_id", Kind: KindRouteID}}},
		{name: "duplicate", columns: []Column{
			{Name: "id", Source: "climb_id", Kind: KindRouteID},
			{Name: "area_id", Kind: KindAreaID},
			{Name: "id", Source: "climb_id", Kind: KindText},
		}},
		{name: "missing source", columns: []Column{
			{Name: "id", Source: "climb_id", Kind: KindRouteID},
			{Name: "area_id", Kind: KindAreaID},
			{Name: "name", Kind: KindText},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.columns, DefaultPolicy())
			require.Error(t, err)
		})
	}

	_, err := New(testColumns(), Policy{})
	require.Error(t, err)
}

func TestProject_LoadPolicy(t *testing.T) {
	t.Parallel()

	t.Run("overrides", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
missing_markers: ["nan", ""]
safety_none_markers: ["None", "unknown"]
safety_unspecified: NOT_RATED
`), 0o644))

		p, err := LoadPolicy(path)
		require.NoError(t, err)
		require.Equal(t, []string{"nan", ""}, p.MissingMarkers)
		require.Equal(t, []string{"None", "unknown"}, p.SafetyNoneMarkers)
		require.Equal(t, "NOT_RATED", p.SafetyUnspecified)
	})

	t.Run("partial keeps defaults", func(t *testing.T) {
		t.Parallel()
		p, err := parsePolicy([]byte("missing_markers: [nan]\n"))
		require.NoError(t, err)
		require.Equal(t, []string{"nan"}, p.MissingMarkers)
		require.Equal(t, []string{DefaultSafetyNone}, p.SafetyNoneMarkers)
		require.Equal(t, DefaultSafetyUnspecified, p.SafetyUnspecified)
	})

	t.Run("blank unspecified rejected", func(t *testing.T) {
		t.Parallel()
		_, err := parsePolicy([]byte("safety_unspecified: \"\"\n"))
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		t.Parallel()
		_, err := parsePolicy([]byte("missing_markers: {"))
		require.Error(t, err)
	})
}

func TestProject_Projector_HasRouteID(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()
	policy.MissingMarkers = []string{"nan"}
	p, err := New(testColumns(), policy)
	require.NoError(t, err)

	require.True(t, p.HasRouteID(fakeRow{text: map[string]string{"climb_id": "c1"}}))
	require.False(t, p.HasRouteID(fakeRow{}))
	require.False(t, p.HasRouteID(fakeRow{text: map[string]string{"climb_id": " "}}))
	require.False(t, p.HasRouteID(fakeRow{text: map[string]string{"climb_id": "NaN"}}))
}

package source

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// writeFixture materializes a small climbs table at path using DuckDB COPY.
func writeFixture(t *testing.T, path, format string) {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE climbs AS SELECT * FROM (VALUES
		('c2', 'The Nose', 'USA', 'California', 'Sierra', 'Yosemite', 'El Capitan', 37.73::DOUBLE, -119.63::DOUBLE, '5.9 C2', true, false, 900),
		('c1', 'Bastille Crack', 'USA', 'Colorado', NULL, NULL, NULL, 39.93, -105.28, '5.7', true, false, 100),
		('c3', 'Blank', '', NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL)
	) AS t(climb_id, climb_name, country, state_province, region, area, crag, latitude, longitude, grade_yds, is_trad, is_sport, length_meters)`)
	require.NoError(t, err)

	_, err = db.Exec("COPY climbs TO " + quoteLiteral(path) + " (FORMAT " + format + ")")
	require.NoError(t, err)
}

func TestSource_Reader_Validate(t *testing.T) {
	t.Parallel()

	_, err := NewReader(context.Background(), Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "logger is required")
}

func TestSource_Reader_ReadAll_Parquet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "climbs.parquet")
	writeFixture(t, path, "parquet")

	r, err := NewReader(ctx, Config{Logger: testLogger(), SortColumn: "climb_id"})
	require.NoError(t, err)
	defer r.Close()

	rows, err := r.ReadAll(ctx, "file://"+path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	id, ok := rows[0].Text("climb_id")
	require.True(t, ok)
	require.Equal(t, "c1", id)

	_, ok = rows[0].Text("region")
	require.False(t, ok)

	lat, ok := rows[1].Float("latitude")
	require.True(t, ok)
	require.InDelta(t, 37.73, lat, 1e-9)

	trad, ok := rows[1].Bool("is_trad")
	require.True(t, ok)
	require.True(t, trad)

	length, ok := rows[1].Int("length_meters")
	require.True(t, ok)
	require.Equal(t, int64(900), length)

	_, ok = rows[2].Bool("is_sport")
	require.False(t, ok)
}

func TestSource_Reader_ReadAll_CSV(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "climbs.csv")
	writeFixture(t, path, "csv")

	r, err := NewReader(ctx, Config{Logger: testLogger()})
	require.NoError(t, err)
	defer r.Close()

	rows, err := r.ReadAll(ctx, path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	name, ok := rows[0].Text("climb_name")
	require.True(t, ok)
	require.Equal(t, "The Nose", name)
}

func TestSource_Reader_ReadAll_MissingFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r, err := NewReader(ctx, Config{Logger: testLogger()})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadAll(ctx, filepath.Join(t.TempDir(), "nope.parquet"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read")
}

func TestSource_Reader_ReadAll_S3WithoutConfig(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r, err := NewReader(ctx, Config{Logger: testLogger()})
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadAll(ctx, "s3://bucket/climbs.parquet")
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires S3 configuration")
}

func TestSource_SelectQuery(t *testing.T) {
	t.Parallel()

	q, err := selectQuery("/data/openbeta-climbs.parquet", "")
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM read_parquet('/data/openbeta-climbs.parquet')", q)

	q, err = selectQuery("file:///data/o'neil.CSV", "climb_id")
	require.NoError(t, err)
	require.Equal(t, `SELECT * FROM read_csv_auto('/data/o''neil.CSV') ORDER BY "climb_id"`, q)

	q, err = selectQuery("s3://bucket/climbs.parquet", "")
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM read_parquet('s3://bucket/climbs.parquet')", q)

	_, err = selectQuery("file://", "")
	require.Error(t, err)
}

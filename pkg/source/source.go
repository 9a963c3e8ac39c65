package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

const progressEvery = 50000

type Config struct {
	Logger *slog.Logger
	// S3 is required when reading s3:// inputs.
	S3 *S3Config
	// SortColumn, when set, orders rows by that column for reproducible
	// first-seen choices downstream.
	SortColumn string
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Reader reads a whole columnar file into memory through an in-process
// DuckDB instance.
type Reader struct {
	log *slog.Logger
	cfg Config
	db  *sql.DB

	s3Ready bool
}

func NewReader(ctx context.Context, cfg Config) (*Reader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}
	return &Reader{log: cfg.Logger, cfg: cfg, db: db}, nil
}

func (r *Reader) Close() error {
	return r.db.Close()
}

// ReadAll loads every row of the file at location. Supported locations are
// local paths, file:// URIs and s3:// URIs; files ending in .csv are read
// as CSV, everything else as parquet.
func (r *Reader) ReadAll(ctx context.Context, location string) ([]Row, error) {
	if IsS3URI(location) {
		if err := r.enableS3(ctx); err != nil {
			return nil, err
		}
	}
	query, err := selectQuery(location, r.cfg.SortColumn)
	if err != nil {
		return nil, err
	}

	r.log.Debug("source: reading", "location", location, "query", query)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", location, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var out []Row
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(out), err)
		}
		row := make(Row, len(columns))
		for i, c := range columns {
			row[c] = values[i]
		}
		out = append(out, row)
		if len(out)%progressEvery == 0 {
			r.log.Info("source: rows read", "count", len(out))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}

func (r *Reader) enableS3(ctx context.Context) error {
	if r.s3Ready {
		return nil
	}
	if r.cfg.S3 == nil {
		return errors.New("s3 input requires S3 configuration")
	}
	for _, ext := range []string{"httpfs", "aws"} {
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf("INSTALL '%s'", ext)); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf("LOAD '%s'", ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	if _, err := r.db.ExecContext(ctx, secretSQL(r.cfg.S3)); err != nil {
		return fmt.Errorf("failed to create S3 secret: %w", err)
	}
	r.log.Info("source: configured S3 access", "endpoint", r.cfg.S3.Endpoint, "region", r.cfg.S3.Region)
	r.s3Ready = true
	return nil
}

// selectQuery builds the table-function query for location.
func selectQuery(location, sortColumn string) (string, error) {
	path := strings.TrimPrefix(location, "file://")
	if strings.TrimSpace(path) == "" {
		return "", errors.New("input location is required")
	}
	fn := "read_parquet"
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		fn = "read_csv_auto"
	}
	query := fmt.Sprintf("SELECT * FROM %s(%s)", fn, quoteLiteral(path))
	if sortColumn != "" {
		query += " ORDER BY " + quoteIdent(sortColumn)
	}
	return query, nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

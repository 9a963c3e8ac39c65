package pg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/malbeclabs/cragtree/pkg/loader"
)

const defaultConnectTimeout = 10 * time.Second

type Config struct {
	Logger *slog.Logger
	DSN    string
	// ConnectTimeout bounds the initial connection; defaults to 10s.
	ConnectTimeout time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.DSN == "" {
		return errors.New("dsn is required")
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	return nil
}

// Store is a loader.Store over one Postgres connection held for the run.
type Store struct {
	log  *slog.Logger
	conn *pgx.Conn
}

var _ loader.Store = (*Store)(nil)

func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	connCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	cfg.Logger.Info("pg: connecting", "host", connCfg.Host, "port", connCfg.Port, "database", connCfg.Database, "user", connCfg.User)
	conn, err := pgx.ConnectConfig(cctx, connCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := conn.Ping(cctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Store{log: cfg.Logger, conn: conn}, nil
}

func (s *Store) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := s.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ExecBatch(ctx context.Context, stmts []loader.Statement) ([]int64, error) {
	affected := make([]int64, len(stmts))
	err := pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, st := range stmts {
			batch.Queue(st.SQL, st.Args...)
		}
		br := tx.SendBatch(ctx, batch)
		for i := range stmts {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return fmt.Errorf("statement %d of %d: %w", i+1, len(stmts), err)
			}
			affected[i] = tag.RowsAffected()
		}
		return br.Close()
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("pg: batch committed", "statements", len(stmts))
	return affected, nil
}

func (s *Store) QueryInt(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := s.conn.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

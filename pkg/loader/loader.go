package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/cragtree/pkg/hierarchy"
	"github.com/malbeclabs/cragtree/pkg/metrics"
)

const DefaultBatchSize = 10000

var areaColumns = []string{"id", "parent_id", "name", "path", "path_tokens", "lat", "lng", "is_leaf", "total_climbs"}
var areaCasts = []string{"", "", "", "ltree", "", "", "", "", ""}

type Config struct {
	Logger *slog.Logger
	Store  Store
	Schema Schema
	// BatchSize is the number of routes committed per transaction.
	BatchSize int
	Clock     clockwork.Clock
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if err := cfg.Schema.Validate(); err != nil {
		return err
	}
	if cfg.BatchSize < 0 {
		return fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// PhaseTiming is the wall time one load phase took.
type PhaseTiming struct {
	Phase    string
	Duration time.Duration
}

// RouteResult summarizes the route load.
type RouteResult struct {
	Attempted int
	Inserted  int
	// Conflicts are rows dropped by ON CONFLICT DO NOTHING.
	Conflicts int
	Batches   int
}

// Verification holds the post-load table counts.
type Verification struct {
	Areas  int64
	Climbs int64
	Leaves int64
}

// Loader drives the destination through a full rebuild. Each step may run
// only from the state the previous step leaves behind.
type Loader struct {
	log   *slog.Logger
	cfg   Config
	store Store
	clock clockwork.Clock

	state   State
	timings []PhaseTiming
}

func New(cfg Config) (*Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Loader{
		log:   cfg.Logger,
		cfg:   cfg,
		store: cfg.Store,
		clock: cfg.Clock,
		state: StateIdle,
	}, nil
}

func (l *Loader) State() State {
	return l.state
}

func (l *Loader) Timings() []PhaseTiming {
	return l.timings
}

// Clear truncates every schema table and disables the schema's triggers.
func (l *Loader) Clear(ctx context.Context) error {
	if err := checkTransition(l.state, StateCleared); err != nil {
		return err
	}
	err := l.timed("clear", func() error {
		l.log.Info("loader: clearing existing data", "tables", len(l.cfg.Schema.Truncate))
		if _, err := l.store.Exec(ctx, truncateSQL(l.cfg.Schema.Truncate)); err != nil {
			return fmt.Errorf("failed to truncate tables: %w", err)
		}
		if err := l.toggleTriggers(ctx, false); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	l.state = StateCleared
	return nil
}

// LoadAreas inserts every node, parents first, in a single transaction.
func (l *Loader) LoadAreas(ctx context.Context, tree hierarchy.Tree) (int, error) {
	if err := checkTransition(l.state, StateAreasLoaded); err != nil {
		return 0, err
	}
	var inserted int
	err := l.timed("areas", func() error {
		nodes := tree.ByDepth()
		rows := make([][]any, 0, len(nodes))
		for _, n := range nodes {
			rows = append(rows, areaRow(n))
		}
		l.log.Info("loader: inserting areas", "count", len(rows))
		stmts := insertStatements(areasTable, areaColumns, areaCasts, rows, "")
		if len(stmts) == 0 {
			return nil
		}
		affected, err := l.store.ExecBatch(ctx, stmts)
		if err != nil {
			return fmt.Errorf("failed to insert areas: %w", err)
		}
		inserted = int(sum(affected))
		metrics.RowsInserted.WithLabelValues(areasTable).Add(float64(inserted))
		l.log.Info("loader: inserted areas", "count", inserted, "statements", len(stmts))
		return nil
	})
	if err != nil {
		return 0, err
	}
	l.state = StateAreasLoaded
	return inserted, nil
}

// LoadRoutes inserts route tuples in BatchSize groups, committing each
// group. Tuples must follow the schema's climb column order.
func (l *Loader) LoadRoutes(ctx context.Context, tuples [][]any) (RouteResult, error) {
	var res RouteResult
	if err := checkTransition(l.state, StateRoutesLoaded); err != nil {
		return res, err
	}
	cols := l.cfg.Schema.Climbs
	names := make([]string, len(cols))
	casts := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
		casts[i] = c.Cast
	}

	res.Attempted = len(tuples)
	err := l.timed("routes", func() error {
		l.log.Info("loader: inserting routes", "count", len(tuples), "batchSize", l.cfg.BatchSize)
		for start := 0; start < len(tuples); start += l.cfg.BatchSize {
			end := min(start+l.cfg.BatchSize, len(tuples))
			batch := tuples[start:end]
			for i, t := range batch {
				if len(t) != len(cols) {
					return fmt.Errorf("route %d has %d values, want %d", start+i, len(t), len(cols))
				}
			}

			stmts := insertStatements(l.cfg.Schema.ClimbsTable, names, casts, batch, "ON CONFLICT (id) DO NOTHING")
			affected, err := l.store.ExecBatch(ctx, stmts)
			if err != nil {
				return fmt.Errorf("failed to insert routes %d-%d: %w", start, end, err)
			}
			n := int(sum(affected))
			res.Inserted += n
			res.Conflicts += len(batch) - n
			res.Batches++
			l.log.Info("loader: inserted routes", "inserted", res.Inserted, "processed", end, "total", len(tuples))
		}
		metrics.RowsInserted.WithLabelValues(l.cfg.Schema.ClimbsTable).Add(float64(res.Inserted))
		metrics.RouteConflicts.Add(float64(res.Conflicts))
		if res.Conflicts > 0 {
			l.log.Warn("loader: routes dropped on id conflict", "count", res.Conflicts)
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	l.state = StateRoutesLoaded
	return res, nil
}

// Rollup replaces total_climbs on every area with the number of routes in
// its subtree.
func (l *Loader) Rollup(ctx context.Context) (int64, error) {
	if err := checkTransition(l.state, StateRolledUp); err != nil {
		return 0, err
	}
	var updated int64
	err := l.timed("rollup", func() error {
		l.log.Info("loader: rolling up subtree totals")
		n, err := l.store.Exec(ctx, rollupSQL(l.cfg.Schema.ClimbsTable))
		if err != nil {
			return fmt.Errorf("failed to roll up total_climbs: %w", err)
		}
		updated = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	l.state = StateRolledUp
	return updated, nil
}

// Finish re-enables the schema's triggers.
func (l *Loader) Finish(ctx context.Context) error {
	if err := checkTransition(l.state, StateDone); err != nil {
		return err
	}
	err := l.timed("triggers", func() error {
		return l.toggleTriggers(ctx, true)
	})
	if err != nil {
		return err
	}
	l.state = StateDone
	return nil
}

// Verify reads back the table counts. It is only meaningful once done.
func (l *Loader) Verify(ctx context.Context) (Verification, error) {
	var v Verification
	if l.state != StateDone {
		return v, fmt.Errorf("%w: verify from %s", ErrInvalidTransition, l.state)
	}
	queries := []struct {
		sql string
		dst *int64
	}{
		{"SELECT COUNT(*) FROM " + areasTable, &v.Areas},
		{"SELECT COUNT(*) FROM " + l.cfg.Schema.ClimbsTable, &v.Climbs},
		{"SELECT COUNT(*) FROM " + areasTable + " WHERE is_leaf = true", &v.Leaves},
	}
	for _, q := range queries {
		n, err := l.store.QueryInt(ctx, q.sql)
		if err != nil {
			return v, fmt.Errorf("failed to verify counts: %w", err)
		}
		*q.dst = n
	}
	l.log.Info("loader: verified", "areas", v.Areas, "leaves", v.Leaves, "climbs", v.Climbs)
	return v, nil
}

func (l *Loader) toggleTriggers(ctx context.Context, enable bool) error {
	triggers := l.cfg.Schema.Triggers
	if len(triggers) == 0 {
		return nil
	}
	stmts := make([]Statement, 0, len(triggers))
	for _, t := range triggers {
		stmts = append(stmts, Statement{SQL: triggerSQL(t, enable)})
	}
	verb := "disabling"
	if enable {
		verb = "enabling"
	}
	l.log.Info("loader: "+verb+" triggers", "count", len(triggers))
	if _, err := l.store.ExecBatch(ctx, stmts); err != nil {
		return fmt.Errorf("failed %s triggers: %w", verb, err)
	}
	return nil
}

func (l *Loader) timed(phase string, fn func() error) error {
	start := l.clock.Now()
	err := fn()
	d := l.clock.Since(start)
	l.timings = append(l.timings, PhaseTiming{Phase: phase, Duration: d})
	metrics.PhaseDuration.WithLabelValues(phase).Set(d.Seconds())
	l.log.Debug("loader: phase finished", "phase", phase, "duration", d.String(), "error", err)
	return err
}

func areaRow(n *hierarchy.Node) []any {
	var lat, lng any
	if n.Lat != nil && n.Lng != nil {
		lat, lng = *n.Lat, *n.Lng
	}
	return []any{n.ID, n.ParentID, n.Name, n.Path, n.Tokens, lat, lng, n.IsLeaf, n.ClimbCount}
}

func sum(xs []int64) int64 {
	var total int64
	for _, x := range xs {
		total += x
	}
	return total
}

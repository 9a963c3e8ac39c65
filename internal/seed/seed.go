package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/malbeclabs/cragtree/pkg/hierarchy"
	"github.com/malbeclabs/cragtree/pkg/loader"
	"github.com/malbeclabs/cragtree/pkg/metrics"
	"github.com/malbeclabs/cragtree/pkg/project"
	"github.com/malbeclabs/cragtree/pkg/source"
)

type SkipReason string

const (
	SkipEmpty       SkipReason = "empty"
	SkipGapped      SkipReason = "gapped"
	SkipAreaMissing SkipReason = "area_missing"
	SkipMissingID   SkipReason = "id_missing"
)

var skipReasons = []SkipReason{SkipEmpty, SkipGapped, SkipAreaMissing, SkipMissingID}

type RowReader interface {
	ReadAll(ctx context.Context, location string) ([]source.Row, error)
}

// Store is a loader.Store the pipeline owns for the run.
type Store interface {
	loader.Store
	Close(ctx context.Context) error
}

type Config struct {
	Logger *slog.Logger
	Schema loader.Schema
	Input  string
	Reader RowReader
	// Objects, when set, is used to check s3:// inputs exist before reading.
	Objects source.HeadObjectAPI
	// Connect opens the destination. Unused on dry runs.
	Connect func(ctx context.Context) (Store, error)

	Policy    project.Policy
	GapPolicy hierarchy.GapPolicy
	BatchSize int
	Rollup    bool
	DryRun    bool

	Clock clockwork.Clock
	NewID func() uuid.UUID
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if err := cfg.Schema.Validate(); err != nil {
		return err
	}
	if cfg.Input == "" {
		return errors.New("input is required")
	}
	if cfg.Reader == nil {
		return errors.New("reader is required")
	}
	if !cfg.DryRun && cfg.Connect == nil {
		return errors.New("connect is required unless dry running")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Pipeline struct {
	log       *slog.Logger
	cfg       Config
	projector *project.Projector
}

func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	projector, err := project.New(cfg.Schema.Climbs, cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s projector: %w", cfg.Schema.Name, err)
	}
	return &Pipeline{log: cfg.Logger, cfg: cfg, projector: projector}, nil
}

// Run rebuilds the destination from the input, or only builds the
// hierarchy when dry running.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		Schema:  p.cfg.Schema.Name,
		Input:   p.cfg.Input,
		DryRun:  p.cfg.DryRun,
		Skipped: make(map[SkipReason]int),
	}

	rows, err := p.read(ctx, report)
	if err != nil {
		return nil, err
	}
	// Rows without a route id can never be loaded, so they do not count
	// towards any area either.
	kept := make([]source.Row, 0, len(rows))
	for _, row := range rows {
		if !p.projector.HasRouteID(row) {
			report.skip(SkipMissingID)
			continue
		}
		kept = append(kept, row)
	}
	rows = kept

	start := p.cfg.Clock.Now()
	builder := hierarchy.NewBuilder(hierarchy.Options{
		Logger:    p.log,
		GapPolicy: p.cfg.GapPolicy,
		NewID:     p.cfg.NewID,
		Total:     len(rows),
	})
	derivations := make([]hierarchy.Derivation, len(rows))
	for i, row := range rows {
		derivations[i] = builder.Add(row)
	}
	tree := builder.Tree()
	stats := builder.Stats()
	resolved := hierarchy.Resolve(tree)
	report.addTiming("build", p.cfg.Clock.Since(start))

	report.Areas = len(tree)
	report.Leaves = tree.LeafCount()
	report.Roots = resolved.Roots
	report.UnresolvedParents = resolved.Missing
	report.UnnamedTokens = stats.UnnamedTokens
	p.log.Info("seed: built area hierarchy", "areas", report.Areas, "leaves", report.Leaves, "roots", report.Roots)
	if resolved.Missing > 0 {
		p.log.Warn("seed: areas with unresolved parents", "count", resolved.Missing)
	}

	start = p.cfg.Clock.Now()
	tuples := p.project(rows, derivations, tree, report)
	report.addTiming("project", p.cfg.Clock.Since(start))

	if p.cfg.DryRun {
		report.Totals = rootTotals(tree)
		p.log.Info("seed: dry run, not touching the store")
		return report, nil
	}

	if err := p.load(ctx, tree, tuples, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (p *Pipeline) read(ctx context.Context, report *Report) ([]source.Row, error) {
	if source.IsS3URI(p.cfg.Input) && p.cfg.Objects != nil {
		size, err := source.CheckObject(ctx, p.cfg.Objects, p.cfg.Input)
		if err != nil {
			return nil, err
		}
		p.log.Info("seed: input object found", "input", p.cfg.Input, "bytes", size)
	}

	start := p.cfg.Clock.Now()
	p.log.Info("seed: loading rows", "input", p.cfg.Input)
	rows, err := p.cfg.Reader.ReadAll(ctx, p.cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to load rows: %w", err)
	}
	report.addTiming("read", p.cfg.Clock.Since(start))
	report.Rows = len(rows)
	metrics.RowsRead.Add(float64(len(rows)))
	p.log.Info("seed: loaded rows", "count", len(rows))
	return rows, nil
}

// project turns every routable row into a destination tuple and counts the
// rest by skip reason.
func (p *Pipeline) project(rows []source.Row, derivations []hierarchy.Derivation, tree hierarchy.Tree, report *Report) [][]any {
	tuples := make([][]any, 0, len(rows))
	for i, row := range rows {
		if i%50000 == 0 {
			p.log.Info("seed: building route data", "row", i, "total", len(rows))
		}
		d := derivations[i]
		var reason SkipReason
		switch {
		case len(d.Tokens) == 0:
			reason = SkipEmpty
		case !d.Terminal(p.cfg.GapPolicy):
			reason = SkipGapped
		}
		if reason == "" {
			node, ok := tree.Lookup(d.Tokens)
			if !ok {
				reason = SkipAreaMissing
			} else {
				tuple, err := p.projector.Project(row, node.ID)
				if err != nil {
					reason = SkipMissingID
				} else {
					tuples = append(tuples, tuple)
					continue
				}
			}
		}
		report.skip(reason)
	}
	report.Routes = len(tuples)

	attrs := []any{"routes", len(tuples)}
	for _, r := range skipReasons {
		if n := report.Skipped[r]; n > 0 {
			attrs = append(attrs, "skipped_"+string(r), n)
		}
	}
	p.log.Info("seed: built route data", attrs...)
	return tuples
}

func (p *Pipeline) load(ctx context.Context, tree hierarchy.Tree, tuples [][]any, report *Report) (err error) {
	store, err := p.cfg.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(ctx); cerr != nil {
			p.log.Error("seed: failed to close store", "error", cerr)
		}
	}()

	l, err := loader.New(loader.Config{
		Logger:    p.log,
		Store:     store,
		Schema:    p.cfg.Schema,
		BatchSize: p.cfg.BatchSize,
		Clock:     p.cfg.Clock,
	})
	if err != nil {
		return err
	}
	defer func() {
		report.Timings = append(report.Timings, l.Timings()...)
	}()

	if err := l.Clear(ctx); err != nil {
		return err
	}
	if report.AreasInserted, err = l.LoadAreas(ctx, tree); err != nil {
		return err
	}
	if report.RouteLoad, err = l.LoadRoutes(ctx, tuples); err != nil {
		return err
	}
	if p.cfg.Rollup {
		if report.RolledUp, err = l.Rollup(ctx); err != nil {
			return err
		}
	}
	if err := l.Finish(ctx); err != nil {
		return err
	}
	v, err := l.Verify(ctx)
	if err != nil {
		return err
	}
	report.Verification = &v
	return nil
}

func rootTotals(tree hierarchy.Tree) []RootTotal {
	totals := hierarchy.SubtreeTotals(tree)
	roots := tree.Roots()
	out := make([]RootTotal, 0, len(roots))
	for _, n := range roots {
		out = append(out, RootTotal{Name: n.Name, Path: n.Path, Climbs: totals[n.Key()]})
	}
	return out
}

func (r *Report) skip(reason SkipReason) {
	r.Skipped[reason]++
	metrics.RowsSkipped.WithLabelValues(string(reason)).Inc()
}

func (r *Report) addTiming(phase string, d time.Duration) {
	r.Timings = append(r.Timings, loader.PhaseTiming{Phase: phase, Duration: d})
}

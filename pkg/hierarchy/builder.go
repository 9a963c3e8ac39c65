package hierarchy

import (
	"log/slog"
	"math"

	"github.com/google/uuid"
)

const progressEvery = 50000

type Options struct {
	Logger    *slog.Logger
	Levels    []string
	GapPolicy GapPolicy
	// NewID mints node identities; uuid.New when nil.
	NewID func() uuid.UUID

	LatColumn string
	LngColumn string
	// Total is only used for progress logging.
	Total int
}

func (o *Options) setDefaults() {
	if len(o.Levels) == 0 {
		o.Levels = DefaultLevels
	}
	if o.GapPolicy == "" {
		o.GapPolicy = GapSkip
	}
	if o.NewID == nil {
		o.NewID = uuid.New
	}
	if o.LatColumn == "" {
		o.LatColumn = "latitude"
	}
	if o.LngColumn == "" {
		o.LngColumn = "longitude"
	}
}

// Stats counts what the builder saw.
type Stats struct {
	Rows          int
	Terminated    int
	SkippedEmpty  int
	SkippedGapped int
	// UnnamedTokens counts distinct tokens whose slug came out empty.
	UnnamedTokens int
}

type Builder struct {
	log   *slog.Logger
	opts  Options
	tree  Tree
	stats Stats

	unnamed map[string]struct{}
}

func NewBuilder(opts Options) *Builder {
	opts.setDefaults()
	return &Builder{
		log:     opts.Logger,
		opts:    opts,
		tree:    make(Tree),
		unnamed: make(map[string]struct{}),
	}
}

// Add folds one row into the tree and returns its derivation.
func (b *Builder) Add(row Row) Derivation {
	if b.log != nil && b.stats.Rows%progressEvery == 0 {
		b.log.Info("hierarchy: processing rows", "row", b.stats.Rows, "total", b.opts.Total)
	}
	b.stats.Rows++

	d := Derive(row, b.opts.Levels)
	if len(d.Tokens) == 0 {
		b.stats.SkippedEmpty++
		return d
	}
	terminal := d.Terminal(b.opts.GapPolicy)
	if !terminal {
		b.stats.SkippedGapped++
	}

	n := len(d.Tokens)
	for i := 1; i <= n; i++ {
		prefix := d.Tokens[:i]
		key := KeyOf(prefix)
		node, ok := b.tree[key]
		if !ok {
			node = b.newNode(prefix, terminal && i == n)
			b.tree[key] = node
		}
		if i == n && terminal {
			node.IsLeaf = true
			node.ClimbCount++
			if node.Lat == nil {
				if lat, lng, ok := coordinate(row, b.opts.LatColumn, b.opts.LngColumn); ok {
					node.Lat, node.Lng = &lat, &lng
				}
			}
		}
	}
	if terminal {
		b.stats.Terminated++
	}
	return d
}

func (b *Builder) newNode(prefix []string, leaf bool) *Node {
	tokens := make([]string, len(prefix))
	copy(tokens, prefix)

	path, unnamed := MaterializedPath(tokens)
	// Only the last token is new at this depth; ancestors were reported already.
	if len(unnamed) > 0 {
		last := tokens[len(tokens)-1]
		if _, ok := Slug(last); !ok {
			if _, seen := b.unnamed[last]; !seen {
				b.unnamed[last] = struct{}{}
				b.stats.UnnamedTokens++
				if b.log != nil {
					b.log.Warn("hierarchy: token has no slug characters, using placeholder label", "token", last, "path", path)
				}
			}
		}
	}

	return &Node{
		ID:     b.opts.NewID(),
		Name:   tokens[len(tokens)-1],
		Tokens: tokens,
		Path:   path,
		IsLeaf: leaf,
	}
}

func (b *Builder) Tree() Tree {
	return b.tree
}

func (b *Builder) Stats() Stats {
	return b.stats
}

// Build runs a fresh builder over rows.
func Build[R Row](rows []R, opts Options) (Tree, Stats) {
	if opts.Total == 0 {
		opts.Total = len(rows)
	}
	b := NewBuilder(opts)
	for _, row := range rows {
		b.Add(row)
	}
	return b.Tree(), b.Stats()
}

// coordinate returns the row's position when both axes are present, finite,
// in range and not the 0,0 placeholder.
func coordinate(row Row, latCol, lngCol string) (float64, float64, bool) {
	lat, ok := row.Float(latCol)
	if !ok {
		return 0, 0, false
	}
	lng, ok := row.Float(lngCol)
	if !ok {
		return 0, 0, false
	}
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	if lat == 0 && lng == 0 {
		return 0, 0, false
	}
	return lat, lng, true
}

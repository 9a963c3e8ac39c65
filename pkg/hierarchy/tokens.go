package hierarchy

import (
	"fmt"
	"strings"
)

// DefaultLevels is the location scan order, shallowest first.
var DefaultLevels = []string{"country", "state_province", "region", "area", "crag"}

// Row is the read side of one source record.
type Row interface {
	Text(column string) (string, bool)
	Float(column string) (float64, bool)
}

// GapPolicy decides what happens to a row whose location chain stops at a
// blank level while a deeper level is still populated.
type GapPolicy string

const (
	// GapSkip builds the contiguous prefix nodes but routes nothing.
	GapSkip GapPolicy = "skip"
	// GapTruncate attaches the row at the deepest contiguous node.
	GapTruncate GapPolicy = "truncate"
)

func ParseGapPolicy(s string) (GapPolicy, error) {
	switch GapPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", GapSkip:
		return GapSkip, nil
	case GapTruncate:
		return GapTruncate, nil
	default:
		return "", fmt.Errorf("invalid gap policy %q (want %q or %q)", s, GapSkip, GapTruncate)
	}
}

// Derivation is the token sequence derived from one row.
type Derivation struct {
	Tokens []string
	// Gapped is set when a level after the stopping point is non-blank.
	Gapped bool
}

// Terminal reports whether the row ends at a node under the given policy.
func (d Derivation) Terminal(policy GapPolicy) bool {
	if len(d.Tokens) == 0 {
		return false
	}
	return !d.Gapped || policy == GapTruncate
}

// Derive scans levels in order and stops at the first missing or blank one.
func Derive(row Row, levels []string) Derivation {
	var d Derivation
	for i, level := range levels {
		v, ok := levelValue(row, level)
		if !ok {
			for _, deeper := range levels[i+1:] {
				if _, ok := levelValue(row, deeper); ok {
					d.Gapped = true
					break
				}
			}
			break
		}
		d.Tokens = append(d.Tokens, v)
	}
	return d
}

func levelValue(row Row, level string) (string, bool) {
	v, ok := row.Text(level)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

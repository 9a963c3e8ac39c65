package project

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Row is the read side of a source record.
type Row interface {
	Text(column string) (string, bool)
	Float(column string) (float64, bool)
	Int(column string) (int64, bool)
	Bool(column string) (bool, bool)
}

type Kind int

const (
	// KindRouteID is the externally supplied route identity. Rows without
	// one are not projected.
	KindRouteID Kind = iota
	// KindAreaID is the resolved leaf area identity.
	KindAreaID
	KindText
	KindNumber
	// KindFlag defaults to false when missing.
	KindFlag
	// KindPositiveInt keeps only values greater than zero.
	KindPositiveInt
	// KindSafety falls back to the policy's unspecified category.
	KindSafety
	// KindConst always emits Column.Const.
	KindConst
)

func (k Kind) String() string {
	switch k {
	case KindRouteID:
		return "route_id"
	case KindAreaID:
		return "area_id"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindFlag:
		return "flag"
	case KindPositiveInt:
		return "positive_int"
	case KindSafety:
		return "safety"
	case KindConst:
		return "const"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column describes one destination column and how to fill it.
type Column struct {
	Name   string
	Source string
	Kind   Kind
	// Cast is appended to the placeholder as ::Cast when set.
	Cast  string
	Const any
}

var ErrMissingRouteID = errors.New("route id is missing")

type Projector struct {
	columns []Column
	policy  Policy
}

func New(columns []Column, policy Policy) (*Projector, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, errors.New("at least one column is required")
	}
	seen := make(map[string]bool, len(columns))
	var ids, areas int
	for _, c := range columns {
		if c.Name == "" {
			return nil, errors.New("column name is required")
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		switch c.Kind {
		case KindRouteID:
			ids++
		case KindAreaID:
			areas++
		}
		if c.Source == "" && c.Kind != KindAreaID && c.Kind != KindConst {
			return nil, fmt.Errorf("column %q (%s) needs a source column", c.Name, c.Kind)
		}
	}
	if ids != 1 || areas != 1 {
		return nil, fmt.Errorf("exactly one route id and one area id column are required (got %d and %d)", ids, areas)
	}
	return &Projector{columns: columns, policy: policy}, nil
}

func (p *Projector) Columns() []Column {
	return p.columns
}

// HasRouteID reports whether row carries a usable route identity.
func (p *Projector) HasRouteID(row Row) bool {
	for _, c := range p.columns {
		if c.Kind == KindRouteID {
			id, ok := p.text(row, c.Source)
			return ok && strings.TrimSpace(id) != ""
		}
	}
	return false
}

// Project maps row into the destination tuple, in column order.
func (p *Projector) Project(row Row, areaID uuid.UUID) ([]any, error) {
	out := make([]any, len(p.columns))
	for i, c := range p.columns {
		switch c.Kind {
		case KindRouteID:
			id, ok := p.text(row, c.Source)
			if !ok || strings.TrimSpace(id) == "" {
				return nil, ErrMissingRouteID
			}
			out[i] = strings.TrimSpace(id)
		case KindAreaID:
			out[i] = areaID
		case KindText:
			if v, ok := p.text(row, c.Source); ok {
				out[i] = v
			}
		case KindNumber:
			if v, ok := row.Float(c.Source); ok {
				out[i] = v
			}
		case KindFlag:
			v, ok := row.Bool(c.Source)
			out[i] = ok && v
		case KindPositiveInt:
			if v, ok := row.Int(c.Source); ok && v > 0 {
				out[i] = v
			}
		case KindSafety:
			v, ok := p.text(row, c.Source)
			if !ok || p.policy.isSafetyNone(v) {
				v = p.policy.SafetyUnspecified
			}
			out[i] = v
		case KindConst:
			out[i] = c.Const
		default:
			return nil, fmt.Errorf("column %q: unknown kind %s", c.Name, c.Kind)
		}
	}
	return out, nil
}

func (p *Projector) text(row Row, column string) (string, bool) {
	v, ok := row.Text(column)
	if !ok || p.policy.isMissing(v) {
		return "", false
	}
	return v, true
}

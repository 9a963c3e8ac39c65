package loader

import (
	"fmt"

	"github.com/malbeclabs/cragtree/pkg/project"
)

const (
	SchemaFull   = "full"
	SchemaSimple = "simple"

	areasTable = "areas"
)

// Trigger names a trigger the full schema fires on every write.
type Trigger struct {
	Table string
	Name  string
}

// Schema describes one destination database layout.
type Schema struct {
	Name string
	// Truncate is cleared with a single TRUNCATE ... CASCADE.
	Truncate []string
	// Triggers are disabled for the bulk load and re-enabled after it.
	Triggers    []Trigger
	ClimbsTable string
	Climbs      []project.Column
	// Rollup is the default for the subtree total_climbs rollup.
	Rollup bool
}

func (s Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	if len(s.Truncate) == 0 {
		return fmt.Errorf("schema %s: truncate list is required", s.Name)
	}
	if s.ClimbsTable == "" || len(s.Climbs) == 0 {
		return fmt.Errorf("schema %s: climbs table and columns are required", s.Name)
	}
	return nil
}

// Full is the production schema with history tracking triggers.
func Full() Schema {
	return Schema{
		Name:     SchemaFull,
		Truncate: []string{"climbs", "areas", "pitches", "ticks", "media", "entity_tags", "organizations", "organization_areas", "history"},
		Triggers: []Trigger{
			{Table: "areas", Name: "areas_history_trigger"},
			{Table: "climbs", Name: "climbs_history_trigger"},
			{Table: "climbs", Name: "climbs_stats_trigger"},
		},
		ClimbsTable: "climbs",
		Climbs: []project.Column{
			{Name: "id", Source: "climb_id", Kind: project.KindRouteID},
			{Name: "area_id", Kind: project.KindAreaID},
			{Name: "name", Source: "climb_name", Kind: project.KindText},
			{Name: "grade_yds", Source: "grade_yds", Kind: project.KindText},
			{Name: "grade_vscale", Source: "grade_vscale", Kind: project.KindText},
			{Name: "grade_french", Source: "grade_french", Kind: project.KindText},
			{Name: "is_trad", Source: "is_trad", Kind: project.KindFlag},
			{Name: "is_sport", Source: "is_sport", Kind: project.KindFlag},
			{Name: "is_boulder", Source: "is_boulder", Kind: project.KindFlag},
			{Name: "is_alpine", Source: "is_alpine", Kind: project.KindFlag},
			{Name: "is_tr", Source: "is_top_rope", Kind: project.KindFlag},
			{Name: "length_meters", Source: "length_meters", Kind: project.KindPositiveInt},
			{Name: "bolts_count", Source: "bolts_count", Kind: project.KindPositiveInt},
			{Name: "fa", Source: "first_ascent", Kind: project.KindText},
			{Name: "safety", Source: "safety", Kind: project.KindSafety, Cast: "safety_rating"},
			{Name: "lat", Source: "latitude", Kind: project.KindNumber},
			{Name: "lng", Source: "longitude", Kind: project.KindNumber},
			{Name: "description", Source: "description", Kind: project.KindText},
		},
	}
}

// Simple is the lightweight schema without triggers or safety ratings.
func Simple() Schema {
	return Schema{
		Name:        SchemaSimple,
		Truncate:    []string{"climbs", "areas", "ticks"},
		ClimbsTable: "climbs",
		Climbs: []project.Column{
			{Name: "id", Source: "climb_id", Kind: project.KindRouteID},
			{Name: "area_id", Kind: project.KindAreaID},
			{Name: "name", Source: "climb_name", Kind: project.KindText},
			{Name: "grade_yds", Source: "grade_yds", Kind: project.KindText},
			{Name: "grade_vscale", Source: "grade_vscale", Kind: project.KindText},
			{Name: "grade_french", Source: "grade_french", Kind: project.KindText},
			{Name: "grade_font", Source: "grade_font", Kind: project.KindText},
			{Name: "is_sport", Source: "is_sport", Kind: project.KindFlag},
			{Name: "is_trad", Source: "is_trad", Kind: project.KindFlag},
			{Name: "is_boulder", Source: "is_boulder", Kind: project.KindFlag},
			{Name: "length_meters", Source: "length_meters", Kind: project.KindPositiveInt},
			{Name: "pitch_count", Kind: project.KindConst, Const: 1},
			{Name: "fa", Source: "first_ascent", Kind: project.KindText},
			{Name: "description", Source: "description", Kind: project.KindText},
			{Name: "lat", Source: "latitude", Kind: project.KindNumber},
			{Name: "lng", Source: "longitude", Kind: project.KindNumber},
		},
		Rollup: true,
	}
}

func SchemaByName(name string) (Schema, error) {
	switch name {
	case SchemaFull:
		return Full(), nil
	case SchemaSimple:
		return Simple(), nil
	default:
		return Schema{}, fmt.Errorf("unknown schema %q", name)
	}
}

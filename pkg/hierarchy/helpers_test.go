package hierarchy

import (
	"fmt"

	"github.com/google/uuid"
)

type testRow map[string]any

func (r testRow) Text(column string) (string, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

func (r testRow) Float(column string) (float64, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// sequentialIDs returns deterministic identities for tests.
func sequentialIDs() func() uuid.UUID {
	var n uint32
	return func() uuid.UUID {
		n++
		var id uuid.UUID
		id[12] = byte(n >> 24)
		id[13] = byte(n >> 16)
		id[14] = byte(n >> 8)
		id[15] = byte(n)
		return id
	}
}

func route(country, state, region, area, crag string) testRow {
	r := testRow{}
	for k, v := range map[string]string{
		"country":        country,
		"state_province": state,
		"region":         region,
		"area":           area,
		"crag":           crag,
	} {
		if v != "" {
			r[k] = v
		}
	}
	return r
}

func (r testRow) at(lat, lng float64) testRow {
	r["latitude"] = lat
	r["longitude"] = lng
	return r
}

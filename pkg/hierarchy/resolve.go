package hierarchy

import "github.com/google/uuid"

type ResolveStats struct {
	Roots    int
	Resolved int
	// Missing counts non-root nodes whose parent is not in the tree.
	Missing int
}

// Resolve sets ParentID on every node from the same tree. A missing parent
// leaves ParentID null.
func Resolve(t Tree) ResolveStats {
	var stats ResolveStats
	for _, n := range t {
		pk, ok := n.ParentKey()
		if !ok {
			n.ParentID = uuid.NullUUID{}
			stats.Roots++
			continue
		}
		parent, ok := t[pk]
		if !ok {
			n.ParentID = uuid.NullUUID{}
			stats.Missing++
			continue
		}
		n.ParentID = uuid.NullUUID{UUID: parent.ID, Valid: true}
		stats.Resolved++
	}
	return stats
}

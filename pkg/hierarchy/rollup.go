package hierarchy

// SubtreeTotals returns, per node, the sum of ClimbCount over the node and
// all its descendants.
func SubtreeTotals(t Tree) map[Key]int {
	totals := make(map[Key]int, len(t))
	for _, n := range t {
		if n.ClimbCount == 0 {
			continue
		}
		for i := 1; i <= len(n.Tokens); i++ {
			totals[KeyOf(n.Tokens[:i])] += n.ClimbCount
		}
	}
	return totals
}

package hierarchy

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// keySep never appears in trimmed location names.
const keySep = "\x1f"

// Key identifies a node by its full token path.
type Key string

func KeyOf(tokens []string) Key {
	return Key(strings.Join(tokens, keySep))
}

// Node is one area in the location tree.
type Node struct {
	ID       uuid.UUID
	ParentID uuid.NullUUID

	// Name is the raw token for this node's level.
	Name string
	// Tokens is the raw path from the root to this node, inclusive.
	Tokens []string
	// Path is the dot-joined slug path used for subtree containment.
	Path string

	IsLeaf     bool
	ClimbCount int
	Lat        *float64
	Lng        *float64
}

func (n *Node) Depth() int {
	return len(n.Tokens)
}

func (n *Node) Key() Key {
	return KeyOf(n.Tokens)
}

// ParentKey returns the key of the parent node; ok is false for roots.
func (n *Node) ParentKey() (Key, bool) {
	if len(n.Tokens) <= 1 {
		return "", false
	}
	return KeyOf(n.Tokens[:len(n.Tokens)-1]), true
}

// Tree is the node set keyed by token path. It has a single owner: the
// builder fills it, the resolver annotates it, the loader reads it.
type Tree map[Key]*Node

func (t Tree) Lookup(tokens []string) (*Node, bool) {
	n, ok := t[KeyOf(tokens)]
	return n, ok
}

// ByDepth returns nodes shallowest first so every parent precedes its
// children. Ties are ordered by materialized path then key.
func (t Tree) ByDepth() []*Node {
	nodes := make([]*Node, 0, len(t))
	for _, n := range t {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Depth() != b.Depth() {
			return a.Depth() < b.Depth()
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Key() < b.Key()
	})
	return nodes
}

func (t Tree) LeafCount() int {
	var n int
	for _, node := range t {
		if node.IsLeaf {
			n++
		}
	}
	return n
}

// Roots returns depth-1 nodes ordered by name.
func (t Tree) Roots() []*Node {
	var roots []*Node
	for _, n := range t {
		if n.Depth() == 1 {
			roots = append(roots, n)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	return roots
}

package graph

import (
	"fmt"
	"sort"
)

// Edge is a directed foreign-key edge from child to parent.
type Edge struct {
	ChildTable   string
	ChildColumn  string
	ParentTable  string
	ParentColumn string
	SelfRef      bool
	// Reasons records the evidence that produced the edge.
	Reasons []string
}

func (e Edge) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", e.ChildTable, e.ChildColumn, e.ParentTable, e.ParentColumn)
}

// Graph is a directed graph of inferred foreign-key relationships. It has a
// single owner: edges enter only through Propose, which rejects any edge
// that would close a cycle, so the accepted edge set is always acyclic
// (self-references excepted).
type Graph struct {
	tables map[string]struct{}

	// Edges are accepted non-self-referential edges, in acceptance order.
	Edges []Edge

	// SelfRefs holds accepted self-referential edges, keyed by table.
	SelfRefs map[string][]Edge

	// Children maps parent -> child tables; Parents maps child -> parents.
	Children map[string][]string
	Parents  map[string][]string

	// adjacency for undirected connectivity
	adjacency map[string]map[string]bool
}

// New builds an empty graph over the given table names.
func New(tables []string) *Graph {
	g := &Graph{
		tables:    make(map[string]struct{}, len(tables)),
		SelfRefs:  make(map[string][]Edge),
		Children:  make(map[string][]string),
		Parents:   make(map[string][]string),
		adjacency: make(map[string]map[string]bool),
	}
	for _, t := range tables {
		g.tables[t] = struct{}{}
		g.adjacency[t] = make(map[string]bool)
	}
	return g
}

// AddTable registers a node added after construction, such as a table
// synthesized during decomposition.
func (g *Graph) AddTable(name string) {
	if _, ok := g.tables[name]; ok {
		return
	}
	g.tables[name] = struct{}{}
	g.adjacency[name] = make(map[string]bool)
}

// HasTable reports whether the table is a node of the graph.
func (g *Graph) HasTable(name string) bool {
	_, ok := g.tables[name]
	return ok
}

// Tables returns the node names in sorted order.
func (g *Graph) Tables() []string {
	out := make([]string, 0, len(g.tables))
	for t := range g.tables {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Propose offers an edge to the graph. Self-referential edges are always
// accepted. Other edges are accepted only when both endpoints are known and
// the edge does not create a cycle with the edges already accepted; a
// rejected edge leaves the graph unchanged.
func (g *Graph) Propose(e Edge) error {
	if e.ChildTable == e.ParentTable {
		e.SelfRef = true
		g.SelfRefs[e.ChildTable] = append(g.SelfRefs[e.ChildTable], e)
		return nil
	}
	if !g.HasTable(e.ChildTable) {
		return fmt.Errorf("propose %s: unknown child table %q", e, e.ChildTable)
	}
	if !g.HasTable(e.ParentTable) {
		return fmt.Errorf("propose %s: unknown parent table %q", e, e.ParentTable)
	}
	if g.reaches(e.ParentTable, e.ChildTable) {
		return fmt.Errorf("propose %s: would create a cycle", e)
	}

	g.Edges = append(g.Edges, e)
	g.Children[e.ParentTable] = append(g.Children[e.ParentTable], e.ChildTable)
	g.Parents[e.ChildTable] = append(g.Parents[e.ChildTable], e.ParentTable)
	g.adjacency[e.ChildTable][e.ParentTable] = true
	g.adjacency[e.ParentTable][e.ChildTable] = true
	return nil
}

// reaches reports whether following child->parent edges from start can
// arrive at goal. Iterative DFS with an explicit stack.
func (g *Graph) reaches(start, goal string) bool {
	if start == goal {
		return true
	}
	visited := map[string]bool{start: true}
	stack := []string{start}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, parent := range g.Parents[node] {
			if parent == goal {
				return true
			}
			if !visited[parent] {
				visited[parent] = true
				stack = append(stack, parent)
			}
		}
	}
	return false
}

// EdgesFrom returns the accepted non-self edges whose child is the given
// table, in acceptance order.
func (g *Graph) EdgesFrom(child string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.ChildTable == child {
			out = append(out, e)
		}
	}
	return out
}

// Roots returns tables with no parents, sorted.
func (g *Graph) Roots() []string {
	var roots []string
	for name := range g.tables {
		if len(g.Parents[name]) == 0 {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)
	return roots
}

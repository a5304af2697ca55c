package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteMermaid writes the graph in Mermaid format to w.
// Each connected component is a subgraph.
func WriteMermaid(w io.Writer, g *Graph) error {
	components := FindComponents(g)

	for i := range components {
		sort.Strings(components[i].Tables)
	}
	sort.Slice(components, func(i, j int) bool {
		if len(components[i].Tables) == 0 {
			return true
		}
		if len(components[j].Tables) == 0 {
			return false
		}
		return components[i].Tables[0] < components[j].Tables[0]
	})

	fmt.Fprintln(w, "graph TD")

	for i, comp := range components {
		fmt.Fprintf(w, "    subgraph component_%d\n", i+1)

		tableSet := make(map[string]bool, len(comp.Tables))
		for _, t := range comp.Tables {
			tableSet[t] = true
		}

		edgesWritten := make(map[string]bool)
		for _, edge := range g.Edges {
			if !tableSet[edge.ChildTable] {
				continue
			}
			edgeKey := fmt.Sprintf("%s-->%s:%s", edge.ChildTable, edge.ParentTable, edge.ChildColumn)
			if edgesWritten[edgeKey] {
				continue
			}
			edgesWritten[edgeKey] = true
			fmt.Fprintf(w, "        %s -->|%s| %s\n",
				edge.ChildTable, edge.ChildColumn, edge.ParentTable)
		}

		for _, t := range comp.Tables {
			for _, edge := range g.SelfRefs[t] {
				fmt.Fprintf(w, "        %s -->|%s| %s\n", t, edge.ChildColumn, t)
			}
		}

		// Standalone nodes still need to appear inside the subgraph.
		for _, t := range comp.Tables {
			if !hasEdge(g, t, tableSet) {
				fmt.Fprintf(w, "        %s\n", t)
			}
		}

		fmt.Fprintln(w, "    end")
		if i < len(components)-1 {
			fmt.Fprintln(w)
		}
	}

	return nil
}

// WriteText writes a text summary of the graph to w: counts, cycle and
// keyless-table warnings, then each component in topological order.
func WriteText(w io.Writer, g *Graph, keys map[string][]string) error {
	components := FindComponents(g)

	for i := range components {
		sort.Strings(components[i].Tables)
	}
	sort.Slice(components, func(i, j int) bool {
		if len(components[i].Tables) == 0 {
			return true
		}
		if len(components[j].Tables) == 0 {
			return false
		}
		return components[i].Tables[0] < components[j].Tables[0]
	})

	fmt.Fprintf(w, "Tables: %d\n", len(g.tables))
	fmt.Fprintf(w, "Foreign Keys: %d\n", len(g.Edges)+countSelfRefs(g))
	fmt.Fprintf(w, "Connected Components: %d\n\n", len(components))

	topoResult := TopoSortAll(g)
	if topoResult.HasCycle {
		fmt.Fprintf(w, "WARNING: Circular dependencies detected: %v\n\n", topoResult.CycleTables)
	}

	var noPKTables []string
	for _, name := range g.Tables() {
		if len(keys[name]) == 0 {
			noPKTables = append(noPKTables, name)
		}
	}
	if len(noPKTables) > 0 {
		fmt.Fprintf(w, "WARNING: Tables without primary key: %v\n\n", noPKTables)
	}

	if len(g.SelfRefs) > 0 {
		var selfRefTables []string
		for t := range g.SelfRefs {
			selfRefTables = append(selfRefTables, t)
		}
		sort.Strings(selfRefTables)
		fmt.Fprintf(w, "Self-referencing tables: %v\n\n", selfRefTables)
	}

	fmt.Fprintf(w, "Root tables (no FK parents): %v\n\n", g.Roots())

	for i, comp := range components {
		fmt.Fprintf(w, "=== Component %d (%d tables) ===\n", i+1, len(comp.Tables))

		topoComp := TopoSort(g, comp.Tables)
		if topoComp.HasCycle {
			fmt.Fprintf(w, "  Topological order (partial, has cycle):\n")
		} else {
			fmt.Fprintf(w, "  Topological order:\n")
		}
		for j, t := range topoComp.Order {
			pkInfo := "no PK"
			if pk := keys[t]; len(pk) > 0 {
				pkInfo = fmt.Sprintf("PK: %s", strings.Join(pk, ", "))
			}
			fmt.Fprintf(w, "    %d. %s (%s, %d FKs)\n",
				j+1, t, pkInfo, len(g.EdgesFrom(t)))
		}
		if topoComp.HasCycle {
			fmt.Fprintf(w, "  Cycle tables: %v\n", topoComp.CycleTables)
		}
		fmt.Fprintln(w)
	}

	return nil
}

func hasEdge(g *Graph, table string, componentTables map[string]bool) bool {
	for _, edge := range g.Edges {
		if edge.ChildTable == table && componentTables[edge.ParentTable] {
			return true
		}
		if edge.ParentTable == table && componentTables[edge.ChildTable] {
			return true
		}
	}
	if _, ok := g.SelfRefs[table]; ok {
		return true
	}
	return false
}

func countSelfRefs(g *Graph) int {
	count := 0
	for _, edges := range g.SelfRefs {
		count += len(edges)
	}
	return count
}

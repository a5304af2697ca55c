// Package relation infers foreign-key relationships between tables from
// column naming, value containment, and cardinality.
package relation

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"tabnorm/internal/findings"
	"tabnorm/internal/graph"
	"tabnorm/internal/infer"
	"tabnorm/internal/table"
)

// Resolver detects foreign keys across a set of tables and assembles them
// into an acyclic relationship graph.
type Resolver struct {
	logger *zap.Logger
	log    *findings.Log
}

func NewResolver(logger *zap.Logger, log *findings.Log) *Resolver {
	return &Resolver{logger: logger.Named("relation"), log: log}
}

// Resolve runs FK detection over every table and returns the relationship
// graph. keys maps each table to its primary key columns (empty for keyless
// tables). Tables and columns are visited in sorted order so repeated runs
// over the same input produce the same graph.
func (r *Resolver) Resolve(tables map[string]*table.Table, keys map[string][]string) *graph.Graph {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	g := graph.New(names)

	for _, childName := range names {
		child := tables[childName]
		childPK := keys[childName]

		for _, fkCol := range child.Columns {
			if contains(childPK, fkCol) {
				continue
			}

			candidates := r.findParents(child, fkCol, names, tables, keys)

			switch len(candidates) {
			case 0:
				continue
			case 1:
				r.propose(g, candidates[0])
			default:
				best, ok := resolveByName(fkCol, candidates)
				if !ok {
					var parents []string
					for _, c := range candidates {
						parents = append(parents, c.ParentTable)
					}
					r.log.Add(findings.AmbiguousRelationship, childName, fkCol,
						"could reference any of %s, skipped", strings.Join(parents, ", "))
					continue
				}
				best.Reasons = append(best.Reasons,
					fmt.Sprintf("ambiguity resolved by name match with %s", best.ParentTable))
				r.propose(g, best)
			}
		}
	}

	r.resolveSelfReferences(g, names, tables, keys)

	r.logger.Info("resolved relationships",
		zap.Int("tables", len(names)),
		zap.Int("foreign_keys", len(g.Edges)),
		zap.Int("self_references", len(g.SelfRefs)))
	return g
}

// findParents returns every table whose primary key the column could
// reference under the strict FK rules.
func (r *Resolver) findParents(child *table.Table, fkCol string, names []string, tables map[string]*table.Table, keys map[string][]string) []graph.Edge {
	var out []graph.Edge
	for _, parentName := range names {
		if parentName == child.Name {
			continue
		}
		parentPK := keys[parentName]
		if len(parentPK) == 0 {
			continue
		}
		for _, pkCol := range parentPK {
			edge, ok := validateForeignKey(child, fkCol, tables[parentName], pkCol, keys)
			if ok {
				out = append(out, edge)
			}
		}
	}
	return out
}

// validateForeignKey applies the strict per-pair rules: the referenced
// column is the parent's primary key, the FK column is not part of the
// child's key, it carries identifier naming, every non-null child value
// exists in the parent, and the parent has no more rows than the child.
// Cycle prevention is enforced later, when the edge is proposed.
func validateForeignKey(child *table.Table, fkCol string, parent *table.Table, pkCol string, keys map[string][]string) (graph.Edge, bool) {
	edge := graph.Edge{
		ChildTable:   child.Name,
		ChildColumn:  fkCol,
		ParentTable:  parent.Name,
		ParentColumn: pkCol,
	}

	if !contains(keys[parent.Name], pkCol) {
		return edge, false
	}
	if contains(keys[child.Name], fkCol) {
		return edge, false
	}
	if !infer.HasIdentifierName(fkCol) {
		return edge, false
	}

	fkValues := child.DistinctNonNull(fkCol)
	if len(fkValues) == 0 {
		return edge, false
	}
	pkValues := parent.DistinctNonNull(pkCol)
	for v := range fkValues {
		if _, ok := pkValues[v]; !ok {
			return edge, false
		}
	}

	if parent.RowCount() > child.RowCount() {
		return edge, false
	}

	edge.Reasons = []string{
		fmt.Sprintf("%d FK values subset of %d PK values", len(fkValues), len(pkValues)),
		fmt.Sprintf("parent rows (%d) <= child rows (%d)", parent.RowCount(), child.RowCount()),
		fmt.Sprintf("%s has identifier naming", fkCol),
	}
	return edge, true
}

// resolveByName breaks a multi-parent tie by matching the FK column's base
// name (identifier suffix stripped) against parent table names; the longest
// matching parent name wins.
func resolveByName(fkCol string, candidates []graph.Edge) (graph.Edge, bool) {
	base := infer.StripIdentifierSuffix(fkCol)

	var best graph.Edge
	bestScore := 0
	for _, c := range candidates {
		parentName := strings.ToLower(c.ParentTable)
		if base == parentName || strings.Contains(base, parentName) || strings.Contains(parentName, base) {
			if len(parentName) > bestScore {
				best = c
				bestScore = len(parentName)
			}
		}
	}
	return best, bestScore > 0
}

func (r *Resolver) propose(g *graph.Graph, e graph.Edge) {
	if err := g.Propose(e); err != nil {
		r.log.Add(findings.CyclicDependency, e.ChildTable, e.ChildColumn,
			"rejected FK to %s.%s: %v", e.ParentTable, e.ParentColumn, err)
		return
	}
	r.logger.Debug("accepted foreign key",
		zap.String("child", e.ChildTable+"."+e.ChildColumn),
		zap.String("parent", e.ParentTable+"."+e.ParentColumn))
}

func contains(cols []string, col string) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}

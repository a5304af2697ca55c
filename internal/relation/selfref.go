package relation

import (
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"tabnorm/internal/graph"
	"tabnorm/internal/infer"
	"tabnorm/internal/table"
)

// hierarchicalPatterns name columns that conventionally point back at the
// same table (org charts, category trees). The captured entity, with
// identifier suffixes stripped, must appear in the table name or its
// singular form for the pattern to count.
var hierarchicalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^parent_(.+)`),
	regexp.MustCompile(`^(.+)_parent`),
	regexp.MustCompile(`^manager_(.+)`),
	regexp.MustCompile(`^supervisor_(.+)`),
	regexp.MustCompile(`^chief_(.+)`),
	regexp.MustCompile(`^head_(.+)`),
}

// isHierarchicalColumn reports whether the column looks like a
// self-reference on the given table.
func isHierarchicalColumn(tableName, column string) bool {
	colLower := strings.ToLower(column)
	tableLower := strings.ToLower(tableName)
	singular := inflection.Singular(tableLower)
	for _, pat := range hierarchicalPatterns {
		m := pat.FindStringSubmatch(colLower)
		if m == nil {
			continue
		}
		entity := infer.StripIdentifierSuffix(m[1])
		if entity == "" {
			continue
		}
		if strings.Contains(tableLower, entity) || strings.Contains(singular, entity) {
			return true
		}
	}
	return false
}

// resolveSelfReferences runs a second pass that looks for hierarchical
// columns referencing the table's own single-column primary key. The
// row-count rule is skipped here: a table trivially has as many rows as
// itself, and the value subset plus naming evidence is enough.
func (r *Resolver) resolveSelfReferences(g *graph.Graph, names []string, tables map[string]*table.Table, keys map[string][]string) {
	for _, name := range names {
		pk := keys[name]
		if len(pk) != 1 {
			continue
		}
		pkCol := pk[0]
		t := tables[name]

		for _, col := range t.Columns {
			if col == pkCol || !isHierarchicalColumn(name, col) {
				continue
			}

			colValues := t.DistinctNonNull(col)
			if len(colValues) == 0 {
				continue
			}
			pkValues := t.DistinctNonNull(pkCol)
			subset := true
			for v := range colValues {
				if _, ok := pkValues[v]; !ok {
					subset = false
					break
				}
			}
			if !subset {
				continue
			}

			edge := graph.Edge{
				ChildTable:   name,
				ChildColumn:  col,
				ParentTable:  name,
				ParentColumn: pkCol,
				SelfRef:      true,
				Reasons:      []string{"hierarchical self-reference", col + " values subset of " + pkCol},
			}
			if err := g.Propose(edge); err != nil {
				continue
			}
			r.logger.Debug("accepted self-referencing foreign key",
				zap.String("table", name),
				zap.String("column", col))
		}
	}
}

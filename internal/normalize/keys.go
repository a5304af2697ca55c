package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"tabnorm/internal/findings"
	"tabnorm/internal/graph"
	"tabnorm/internal/infer"
	"tabnorm/internal/table"
)

// ensurePrimaryKey returns the table's primary key, synthesizing a
// surrogate when none has been assigned yet.
func (d *Decomposer) ensurePrimaryKey(r *run, name string) []string {
	if pk := r.keys[name]; len(pk) > 0 {
		return pk
	}
	return d.synthesizeSurrogate(r, name)
}

// assignKeys finalizes each table's primary key. A child table that already
// carries its own surrogate and a repeating FK keeps the surrogate; otherwise
// the best natural identity column wins, then a pre-assigned key that
// survived decomposition and is still unique, and as a last resort a
// surrogate is synthesized.
func (d *Decomposer) assignKeys(r *run, g *graph.Graph) {
	for _, name := range sortedNames(r.tables) {
		t := r.tables[name]

		surrogateCol := name + "_id"
		if t.HasColumn(surrogateCol) && d.hasRepeatingFK(r, g, name, t) {
			r.keys[name] = []string{surrogateCol}
			d.logger.Debug("using surrogate key for child table",
				zap.String("table", name),
				zap.String("key", surrogateCol))
			continue
		}

		if natural := d.bestNaturalKey(r, g, name, t); natural != "" {
			r.keys[name] = []string{natural}
			continue
		}

		if pk := r.keys[name]; len(pk) > 0 && columnsSurvive(t, pk) &&
			!d.anyFKColumn(r, g, name, pk) && uniqueKeyCols(t, pk) {
			continue
		}

		d.synthesizeSurrogate(r, name)
	}
}

func columnsSurvive(t *table.Table, cols []string) bool {
	for _, c := range cols {
		if !t.HasColumn(c) {
			return false
		}
	}
	return true
}

func (d *Decomposer) hasRepeatingFK(r *run, g *graph.Graph, name string, t *table.Table) bool {
	for _, col := range t.Columns {
		if d.isRepeatingFK(r, g, name, col, t) {
			return true
		}
	}
	return false
}

// isRepeatingFK reports whether the column is (or is named like) a foreign
// key and carries duplicate values, which disqualifies it as a primary key.
func (d *Decomposer) isRepeatingFK(r *run, g *graph.Graph, name, col string, t *table.Table) bool {
	isFK := d.isFKColumn(r, g, name, col)
	if !isFK {
		lower := strings.ToLower(col)
		if strings.HasSuffix(lower, "_id") && lower != strings.ToLower(name+"_id") {
			isFK = true
		}
	}
	if !isFK {
		return false
	}
	seen := make(map[string]struct{}, t.RowCount())
	for i := 0; i < t.RowCount(); i++ {
		v := t.Cell(i, col)
		if _, dup := seen[v]; dup {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}

func (d *Decomposer) isFKColumn(r *run, g *graph.Graph, name, col string) bool {
	for _, e := range g.EdgesFrom(name) {
		if e.ChildColumn == col {
			return true
		}
	}
	for _, e := range r.edges {
		if e.ChildTable == name && e.ChildColumn == col {
			return true
		}
	}
	return false
}

func (d *Decomposer) anyFKColumn(r *run, g *graph.Graph, name string, cols []string) bool {
	for _, c := range cols {
		if d.isFKColumn(r, g, name, c) {
			return true
		}
	}
	return false
}

// bestNaturalKey scores every unique non-null identity column and returns
// the winner, or "" when no column qualifies. Foreign keys never qualify.
func (d *Decomposer) bestNaturalKey(r *run, g *graph.Graph, name string, t *table.Table) string {
	best := ""
	bestScore := 0

	for _, col := range t.Columns {
		if d.isFKColumn(r, g, name, col) || d.isRepeatingFK(r, g, name, col, t) {
			continue
		}
		sig := infer.Classify(col)
		if !sig.Identity {
			continue
		}
		if sig.Confidence != infer.ConfidenceHigh && sig.Blacklisted {
			continue
		}
		if !uniqueNonNull(t, col) {
			continue
		}

		score := 100
		switch sig.Confidence {
		case infer.ConfidenceHigh:
			score += 20
		case infer.ConfidenceModerate:
			score += 10
		}
		if len(col) > 20 {
			score -= 5
		}
		score += infer.SuffixScore(col)

		if score > bestScore {
			best, bestScore = col, score
		}
	}
	return best
}

// uniqueKeyCols reports whether the projection of cols is unique with no
// null cells. A carried-over key can lose uniqueness when a tolerant
// dependency splits near-duplicate attribute combinations into one table.
func uniqueKeyCols(t *table.Table, cols []string) bool {
	seen := make(map[string]struct{}, t.RowCount())
	for i := 0; i < t.RowCount(); i++ {
		for _, c := range cols {
			if table.IsNull(t.Cell(i, c)) {
				return false
			}
		}
		key := t.Key(i, cols)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}

func uniqueNonNull(t *table.Table, col string) bool {
	seen := make(map[string]struct{}, t.RowCount())
	for i := 0; i < t.RowCount(); i++ {
		v := t.Cell(i, col)
		if table.IsNull(v) {
			return false
		}
		if _, dup := seen[v]; dup {
			return false
		}
		seen[v] = struct{}{}
	}
	return true
}

// synthesizeSurrogate inserts a dense integer key column as the table's
// first column and records it as the primary key.
func (d *Decomposer) synthesizeSurrogate(r *run, name string) []string {
	t := r.tables[name]

	col := name + "_id"
	for counter := 1; t.HasColumn(col); counter++ {
		col = fmt.Sprintf("%s_id_%d", name, counter)
	}
	values := make([]string, t.RowCount())
	for i := range values {
		values[i] = strconv.Itoa(i + 1)
	}
	_ = t.InsertColumn(0, col, values)
	r.keys[name] = []string{col}

	d.log.Add(findings.KeylessTable, name, col, "no natural identity key, synthesized surrogate")
	return r.keys[name]
}

// buildGraph assembles the final relationship graph: surviving edges from
// the source-table graph plus the edges produced by decomposition.
func (d *Decomposer) buildGraph(r *run, g *graph.Graph) *graph.Graph {
	final := graph.New(sortedNames(r.tables))

	carry := append(append([]graph.Edge(nil), g.Edges...), r.edges...)
	for _, edges := range g.SelfRefs {
		carry = append(carry, edges...)
	}

	for _, e := range carry {
		child, ok := r.tables[e.ChildTable]
		if !ok || !child.HasColumn(e.ChildColumn) {
			continue
		}
		parent, ok := r.tables[e.ParentTable]
		if !ok || !parent.HasColumn(e.ParentColumn) {
			continue
		}
		if err := final.Propose(e); err != nil {
			d.log.Add(findings.CyclicDependency, e.ChildTable, e.ChildColumn,
				"dropped FK to %s.%s: %v", e.ParentTable, e.ParentColumn, err)
		}
	}
	return final
}

// inferMissingFKs connects surviving <entity>_id columns to tables whose
// name matches the entity, singular or plural, when the values are a subset
// of that table's single-column primary key.
func (d *Decomposer) inferMissingFKs(r *run, final *graph.Graph) {
	singlePKs := make(map[string]string)
	for name, pk := range r.keys {
		if len(pk) == 1 {
			singlePKs[name] = pk[0]
		}
	}

	for _, childName := range sortedNames(r.tables) {
		child := r.tables[childName]
		childPK := r.keys[childName]

		for _, col := range child.Columns {
			lower := strings.ToLower(col)
			if !strings.HasSuffix(lower, "_id") || contains(childPK, col) {
				continue
			}
			if hasEdgeForColumn(final, childName, col) {
				continue
			}

			base := strings.TrimSuffix(lower, "_id")
			parentName := ""
			for _, candidate := range parentNameCandidates(base) {
				if _, ok := singlePKs[candidate]; ok && candidate != childName {
					parentName = candidate
					break
				}
			}
			if parentName == "" {
				continue
			}

			parent := r.tables[parentName]
			pkCol := singlePKs[parentName]
			colValues := child.DistinctNonNull(col)
			if len(colValues) == 0 {
				continue
			}
			pkValues := parent.DistinctNonNull(pkCol)
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

			e := graph.Edge{
				ChildTable:   childName,
				ChildColumn:  col,
				ParentTable:  parentName,
				ParentColumn: pkCol,
				Reasons:      []string{"inferred from identifier naming"},
			}
			if err := final.Propose(e); err != nil {
				continue
			}
			d.logger.Debug("inferred foreign key",
				zap.String("child", childName+"."+col),
				zap.String("parent", parentName+"."+pkCol))
		}
	}
}

// parentNameCandidates lists table names an <entity>_id column could point
// at, trying both naive and inflected plural forms.
func parentNameCandidates(base string) []string {
	candidates := []string{base, base + "s", base + "es"}
	if p := inflection.Plural(base); p != base {
		candidates = append(candidates, p)
	}
	if s := inflection.Singular(base); s != base {
		candidates = append(candidates, s)
	}
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if _, dup := seen[c]; !dup {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func hasEdgeForColumn(g *graph.Graph, child, col string) bool {
	for _, e := range g.EdgesFrom(child) {
		if e.ChildColumn == col {
			return true
		}
	}
	for _, e := range g.SelfRefs[child] {
		if e.ChildColumn == col {
			return true
		}
	}
	return false
}

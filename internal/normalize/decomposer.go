package normalize

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"tabnorm/internal/findings"
	"tabnorm/internal/graph"
	"tabnorm/internal/infer"
	"tabnorm/internal/profile"
	"tabnorm/internal/table"
)

// Decomposer rewrites flat tables into 3NF through staged decomposition:
// multivalued columns first, then partial dependencies, then transitive
// dependencies, followed by attribute migration and key assignment.
type Decomposer struct {
	cfg      infer.Config
	analyzer *infer.Analyzer
	logger   *zap.Logger
	log      *findings.Log
}

func NewDecomposer(cfg infer.Config, logger *zap.Logger, log *findings.Log) *Decomposer {
	return &Decomposer{
		cfg:      cfg,
		analyzer: infer.NewAnalyzer(cfg, logger, log),
		logger:   logger.Named("normalize"),
		log:      log,
	}
}

// run carries the mutable state of one decomposition.
type run struct {
	tables     map[string]*table.Table
	keys       map[string][]string
	provenance map[string]string
	// names lists tables in creation order, source tables first.
	names []string
	// edges are relationship proposals produced while decomposing, replayed
	// onto the final graph once all tables exist.
	edges []graph.Edge
}

func (r *run) add(t *table.Table, source string, pk []string) {
	r.tables[t.Name] = t
	r.provenance[t.Name] = source
	if len(pk) > 0 {
		r.keys[t.Name] = pk
	}
	r.names = append(r.names, t.Name)
}

// Decompose normalizes every table and returns the resulting schema. The
// relationship graph g describes FKs detected between the source tables;
// surviving edges are carried over and extended with edges created by the
// decomposition itself.
func (d *Decomposer) Decompose(tables map[string]*table.Table, profiles map[string]*profile.TableProfile, analyses map[string]*infer.Analysis, g *graph.Graph) (*Schema, error) {
	sourceNames := make([]string, 0, len(tables))
	for name := range tables {
		sourceNames = append(sourceNames, name)
	}
	sort.Strings(sourceNames)

	r := &run{
		tables:     make(map[string]*table.Table, len(tables)),
		keys:       make(map[string][]string),
		provenance: make(map[string]string),
	}
	for _, name := range sourceNames {
		pk := []string(nil)
		if an := analyses[name]; an != nil {
			pk = an.PrimaryKey
		}
		r.add(tables[name].Clone(name), name, pk)
	}

	for _, name := range sourceNames {
		d.enforceFirstNF(r, name, profiles[name])
	}
	for _, name := range sourceNames {
		d.enforceSecondNF(r, name, analyses[name])
	}
	for _, name := range sourceNames {
		d.enforceThirdNF(r, name, analyses[name])
	}

	d.migrateFKDependents(r, g)
	d.assignKeys(r, g)

	final := d.buildGraph(r, g)
	d.inferMissingFKs(r, final)

	for _, name := range sourceNames {
		d.verifyPreservation(r, name, tables[name])
	}

	order := graph.TopoSortAll(final)
	if err := graph.ValidateCycles(order); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	schema := &Schema{
		Tables:     r.tables,
		Keys:       r.keys,
		Graph:      final,
		Order:      order.Order,
		Provenance: r.provenance,
	}
	d.logger.Info("decomposition complete",
		zap.Int("source_tables", len(sourceNames)),
		zap.Int("final_tables", len(schema.Tables)),
		zap.Int("foreign_keys", len(final.Edges)))
	return schema, nil
}

// enforceFirstNF splits every multivalued column of the table into its own
// child table keyed by the parent's primary key, one row per atomic value.
func (d *Decomposer) enforceFirstNF(r *run, name string, prof *profile.TableProfile) {
	if prof == nil {
		return
	}
	t := r.tables[name]

	for _, cp := range prof.Columns {
		if !cp.Multivalued || !t.HasColumn(cp.Name) {
			continue
		}
		pk := d.ensurePrimaryKey(r, name)
		childName := name + "_" + cp.Name
		child := explodeColumn(t, cp.Name, cp.Delimiter, pk, childName)
		if child == nil || child.RowCount() == 0 {
			continue
		}
		r.add(child, name, nil)
		if len(pk) == 1 {
			r.edges = append(r.edges, graph.Edge{
				ChildTable:   childName,
				ChildColumn:  pk[0],
				ParentTable:  name,
				ParentColumn: pk[0],
				Reasons:      []string{"multivalued attribute split"},
			})
		}
		t.DropColumns(cp.Name)
		d.logger.Debug("split multivalued column",
			zap.String("table", name),
			zap.String("column", cp.Name),
			zap.String("into", childName))
	}
}

// explodeColumn turns one delimited column into (pk..., <col>_value) rows.
func explodeColumn(t *table.Table, column, delimiter string, pk []string, childName string) *table.Table {
	if delimiter == "" {
		return nil
	}
	cols := append(append([]string(nil), pk...), column+"_value")
	child := table.New(childName, cols)

	for i := 0; i < t.RowCount(); i++ {
		raw := t.Cell(i, column)
		if table.IsNull(raw) {
			continue
		}
		pkVals := make([]string, len(pk))
		for j, p := range pk {
			pkVals[j] = t.Cell(i, p)
		}
		for _, v := range strings.Split(raw, delimiter) {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			row := append(append([]string(nil), pkVals...), v)
			_ = child.AppendRow(row)
		}
	}
	return child
}

// enforceSecondNF splits each partial dependency of a composite-key table
// into a table keyed by the partial determinant.
func (d *Decomposer) enforceSecondNF(r *run, name string, an *infer.Analysis) {
	if an == nil || len(an.PrimaryKey) < 2 || len(an.PartialDeps) == 0 {
		return
	}
	t := r.tables[name]

	for _, pd := range an.PartialDeps {
		var deps []string
		for _, c := range pd.Dependents {
			if t.HasColumn(c) {
				deps = append(deps, c)
			}
		}
		if len(deps) == 0 {
			continue
		}
		childName := name + "_" + strings.Join(pd.Determinant, "_")
		cols := append(append([]string(nil), pd.Determinant...), deps...)
		child, err := t.Project(childName, cols...)
		if err != nil {
			continue
		}
		r.add(child, name, append([]string(nil), pd.Determinant...))
		if len(pd.Determinant) == 1 {
			r.edges = append(r.edges, graph.Edge{
				ChildTable:   name,
				ChildColumn:  pd.Determinant[0],
				ParentTable:  childName,
				ParentColumn: pd.Determinant[0],
				Reasons:      []string{"partial dependency split"},
			})
		}
		t.DropColumns(deps...)
		d.logger.Debug("resolved partial dependency",
			zap.String("table", name),
			zap.Strings("determinant", pd.Determinant),
			zap.String("into", childName))
	}
}

// enforceThirdNF extracts each verified transitive dependency. Genuine
// entities become dimension tables named after the intermediate; multi-row
// repetition patterns become child tables named after the pattern; everything
// else stays in place with a finding.
func (d *Decomposer) enforceThirdNF(r *run, name string, an *infer.Analysis) {
	if an == nil || len(an.TransitiveDeps) == 0 {
		return
	}
	t := r.tables[name]

	for _, td := range an.TransitiveDeps {
		if !t.HasColumn(td.Intermediate) {
			continue
		}
		if !infer.VerifyChain(t, td.PrimaryKey, td.Intermediate, td.Dependents) {
			continue
		}

		score := infer.ScoreEntity(t, td.Intermediate, td.Dependents)
		if score.Confidence >= d.cfg.EntityConfidence {
			dimName := entityTableName(td.Intermediate)
			d.extractRelated(r, name, dimName, td.Intermediate, td.Dependents)
			d.logger.Debug("extracted entity table",
				zap.String("table", name),
				zap.String("entity", dimName),
				zap.Float64("confidence", score.Confidence),
				zap.String("entity_type", score.EntityType))
			continue
		}

		if mr := infer.DetectMultiRowPattern(t, td.Intermediate); mr.IsMultiRow {
			childName := name + "_" + mr.Pattern
			d.extractRelated(r, name, childName, td.Intermediate, td.Dependents)
			d.logger.Debug("extracted multi-row child",
				zap.String("table", name),
				zap.String("pattern", mr.Pattern),
				zap.Strings("evidence", mr.Evidence))
			continue
		}

		d.log.Add(findings.LowConfidence, name, td.Intermediate,
			"kept in place: %s", strings.Join(score.Reasons, "; "))
	}
}

// entityTableName derives a dimension table name from the intermediate
// column by stripping its identifier suffix.
func entityTableName(intermediate string) string {
	if base := infer.StripIdentifierSuffix(intermediate); base != "" {
		return base
	}
	return intermediate
}

// extractRelated projects the intermediate plus its dependents into a new
// table and drops the dependents from the parent, keeping the intermediate
// as a foreign key.
func (d *Decomposer) extractRelated(r *run, parentName, childName, keyCol string, attrCols []string) {
	t := r.tables[parentName]

	var attrs []string
	for _, c := range attrCols {
		if t.HasColumn(c) {
			attrs = append(attrs, c)
		}
	}
	if len(attrs) == 0 {
		return
	}
	if _, exists := r.tables[childName]; exists {
		childName = parentName + "_" + childName
		if _, still := r.tables[childName]; still {
			return
		}
	}

	cols := append([]string{keyCol}, attrs...)
	child, err := t.Project(childName, cols...)
	if err != nil {
		return
	}
	r.add(child, parentName, []string{keyCol})
	r.edges = append(r.edges, graph.Edge{
		ChildTable:   parentName,
		ChildColumn:  keyCol,
		ParentTable:  childName,
		ParentColumn: keyCol,
		Reasons:      []string{"transitive dependency split"},
	})
	t.DropColumns(attrs...)
}

// migrateFKDependents applies the fact/dimension rule: a non-identity
// attribute that is constant per FK value, and also determined by the
// table's own key, belongs on the referenced table.
func (d *Decomposer) migrateFKDependents(r *run, g *graph.Graph) {
	for _, childName := range sortedNames(r.tables) {
		child := r.tables[childName]
		childPK := r.keys[childName]
		if len(childPK) == 0 {
			continue
		}
		for _, edge := range g.EdgesFrom(childName) {
			parent, ok := r.tables[edge.ParentTable]
			if !ok || !child.HasColumn(edge.ChildColumn) {
				continue
			}

			var toMove []string
			for _, col := range child.Columns {
				if col == edge.ChildColumn || contains(childPK, col) {
					continue
				}
				if infer.Classify(col).Identity {
					continue
				}
				if !infer.IsStrictFD(child, []string{edge.ChildColumn}, col) {
					continue
				}
				if !infer.IsStrictFD(child, childPK, col) {
					continue
				}
				toMove = append(toMove, col)
			}
			if len(toMove) == 0 {
				continue
			}

			for _, col := range toMove {
				if parent.HasColumn(col) {
					continue
				}
				values := lookupByKey(child, edge.ChildColumn, col, parent, edge.ParentColumn)
				_ = parent.InsertColumn(len(parent.Columns), col, values)
			}
			child.DropColumns(toMove...)
			d.logger.Debug("moved FK-dependent attributes",
				zap.String("from", childName),
				zap.String("to", edge.ParentTable),
				zap.Strings("columns", toMove))
		}
	}
}

// lookupByKey builds the parent-side values of a migrated column by mapping
// each parent key to the child's FK-determined value.
func lookupByKey(child *table.Table, fkCol, valCol string, parent *table.Table, parentKey string) []string {
	byFK := make(map[string]string)
	for i := 0; i < child.RowCount(); i++ {
		fk := child.Cell(i, fkCol)
		if _, ok := byFK[fk]; !ok {
			byFK[fk] = child.Cell(i, valCol)
		}
	}
	out := make([]string, parent.RowCount())
	for i := 0; i < parent.RowCount(); i++ {
		out[i] = byFK[parent.Cell(i, parentKey)]
	}
	return out
}

// verifyPreservation checks that every column of the source table survives
// somewhere in the tables derived from it.
func (d *Decomposer) verifyPreservation(r *run, source string, original *table.Table) {
	surviving := make(map[string]struct{})
	for name, t := range r.tables {
		if r.provenance[name] != source && !strings.HasPrefix(name, source) {
			continue
		}
		for _, c := range t.Columns {
			surviving[c] = struct{}{}
			// Exploded 1NF columns reappear with a _value suffix.
			surviving[strings.TrimSuffix(c, "_value")] = struct{}{}
		}
	}
	for _, col := range original.Columns {
		if _, ok := surviving[col]; !ok {
			d.log.Add(findings.AttributeLoss, source, col,
				"column missing from decomposed tables")
		}
	}
}

func sortedNames(tables map[string]*table.Table) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func contains(cols []string, col string) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}

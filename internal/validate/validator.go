// Package validate checks a normalized schema for structural errors before
// it is emitted: broken keys, dangling or cyclic foreign keys, and residual
// denormalization.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"tabnorm/internal/findings"
	"tabnorm/internal/graph"
	"tabnorm/internal/normalize"
	"tabnorm/internal/table"
)

// Report is the outcome of a validation run. Errors fail the schema;
// warnings are advisory. Validation never mutates the schema, so running it
// twice yields the same report.
type Report struct {
	Valid bool
	// Checks maps check name to pass/fail.
	Checks   map[string]bool
	Errors   []string
	Warnings []string
}

func (r *Report) Summary() string {
	var b strings.Builder
	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		status := "PASS"
		if !r.Checks[name] {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%-16s %s\n", name, status)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	return b.String()
}

// Validator runs the structural checks over a normalized schema.
type Validator struct {
	logger *zap.Logger
	log    *findings.Log
	// coverage is the minimum fraction of FK values that must resolve.
	coverage float64
}

func New(logger *zap.Logger, log *findings.Log, coverage float64) *Validator {
	if coverage <= 0 {
		coverage = 0.9
	}
	return &Validator{logger: logger.Named("validate"), log: log, coverage: coverage}
}

// Validate runs every check and assembles the report. Tables are visited in
// sorted order so the report is deterministic.
func (v *Validator) Validate(s *normalize.Schema) *Report {
	r := &Report{Checks: make(map[string]bool)}

	r.Checks["primary_keys"] = v.checkPrimaryKeys(s, r)
	r.Checks["foreign_keys"] = v.checkForeignKeys(s, r)
	r.Checks["lossless_join"] = v.checkLosslessJoin(s, r)
	r.Checks["3nf_compliance"] = v.checkThirdNF(s, r)

	r.Valid = true
	for _, ok := range r.Checks {
		r.Valid = r.Valid && ok
	}

	for _, e := range r.Errors {
		v.log.Add(findings.ValidationFailure, "", "", "%s", e)
	}
	v.logger.Info("validation finished",
		zap.Bool("valid", r.Valid),
		zap.Int("errors", len(r.Errors)),
		zap.Int("warnings", len(r.Warnings)))
	return r
}

// checkPrimaryKeys verifies that every assigned key exists, is unique and
// non-null, and is not simultaneously a foreign key.
func (v *Validator) checkPrimaryKeys(s *normalize.Schema, r *Report) bool {
	ok := true
	for _, name := range s.TableNames() {
		t := s.Tables[name]
		pk := s.Keys[name]
		if len(pk) == 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("table %s has no primary key", name))
			continue
		}

		missing := false
		for _, col := range pk {
			if !t.HasColumn(col) {
				r.Errors = append(r.Errors,
					fmt.Sprintf("table %s: PK column %s not found", name, col))
				ok = false
				missing = true
			}
		}
		if missing {
			continue
		}

		if !uniqueProjection(t, pk) {
			r.Errors = append(r.Errors,
				fmt.Sprintf("table %s: PK (%s) is not unique", name, strings.Join(pk, ", ")))
			ok = false
		}
		for _, col := range pk {
			if hasNulls(t, col) {
				r.Errors = append(r.Errors,
					fmt.Sprintf("table %s: PK column %s contains NULL values", name, col))
				ok = false
			}
		}
		for _, e := range s.Graph.EdgesFrom(name) {
			for _, col := range pk {
				if e.ChildColumn == col {
					r.Errors = append(r.Errors,
						fmt.Sprintf("table %s: PK column %s is also a FK", name, col))
					ok = false
				}
			}
		}
	}
	return ok
}

// checkForeignKeys verifies acyclicity and referential integrity. A small
// fraction of FK values may be missing from the parent before the check
// fails, which tolerates dirty source data without letting broken joins
// through.
func (v *Validator) checkForeignKeys(s *normalize.Schema, r *Report) bool {
	ok := true

	topo := graph.TopoSortAll(s.Graph)
	if topo.HasCycle {
		r.Errors = append(r.Errors,
			fmt.Sprintf("circular FK dependency involving tables: %s",
				strings.Join(topo.CycleTables, ", ")))
		ok = false
	}

	for _, e := range allEdges(s.Graph) {
		child, childOK := s.Tables[e.ChildTable]
		parent, parentOK := s.Tables[e.ParentTable]
		if !childOK || !parentOK {
			continue
		}
		if !child.HasColumn(e.ChildColumn) || !parent.HasColumn(e.ParentColumn) {
			r.Errors = append(r.Errors, fmt.Sprintf("FK %s: columns not found", e))
			ok = false
			continue
		}

		fkValues := child.DistinctNonNull(e.ChildColumn)
		if len(fkValues) == 0 {
			continue
		}
		missing := 0
		pkValues := parent.DistinctNonNull(e.ParentColumn)
		for val := range fkValues {
			if _, found := pkValues[val]; !found {
				missing++
			}
		}
		coverage := 1.0 - float64(missing)/float64(len(fkValues))
		if coverage < v.coverage {
			r.Errors = append(r.Errors,
				fmt.Sprintf("FK %s: %d values don't exist in referenced table", e, missing))
			ok = false
		}
	}
	return ok
}

// checkLosslessJoin verifies that every FK column still exists on its child
// table, so joining the decomposed tables can reconstruct the source rows.
func (v *Validator) checkLosslessJoin(s *normalize.Schema, r *Report) bool {
	ok := true
	for _, e := range allEdges(s.Graph) {
		child, exists := s.Tables[e.ChildTable]
		if !exists {
			continue
		}
		if !child.HasColumn(e.ChildColumn) {
			r.Errors = append(r.Errors,
				fmt.Sprintf("lossless join violated: FK column %s missing from %s",
					e.ChildColumn, e.ChildTable))
			ok = false
		}
	}
	return ok
}

// checkThirdNF is advisory: it flags address-like columns that still look
// concatenated. It never fails the schema.
func (v *Validator) checkThirdNF(s *normalize.Schema, r *Report) bool {
	for _, name := range s.TableNames() {
		t := s.Tables[name]
		for _, col := range t.Columns {
			if !strings.Contains(strings.ToLower(col), "address") {
				continue
			}
			sampled, withComma := 0, 0
			for i := 0; i < t.RowCount() && sampled < 10; i++ {
				val := t.Cell(i, col)
				if table.IsNull(val) {
					continue
				}
				sampled++
				if strings.Contains(val, ",") {
					withComma++
				}
			}
			if sampled > 0 && float64(withComma) > float64(sampled)*0.5 {
				r.Warnings = append(r.Warnings,
					fmt.Sprintf("table %s: column %s may contain concatenated address data", name, col))
			}
		}
	}
	return true
}

func allEdges(g *graph.Graph) []graph.Edge {
	edges := append([]graph.Edge(nil), g.Edges...)
	var selfTables []string
	for t := range g.SelfRefs {
		selfTables = append(selfTables, t)
	}
	sort.Strings(selfTables)
	for _, t := range selfTables {
		edges = append(edges, g.SelfRefs[t]...)
	}
	return edges
}

func uniqueProjection(t *table.Table, cols []string) bool {
	seen := make(map[string]struct{}, t.RowCount())
	for i := 0; i < t.RowCount(); i++ {
		key := t.Key(i, cols)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}

func hasNulls(t *table.Table, col string) bool {
	for i := 0; i < t.RowCount(); i++ {
		if table.IsNull(t.Cell(i, col)) {
			return true
		}
	}
	return false
}

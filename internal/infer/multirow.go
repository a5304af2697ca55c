package infer

import (
	"fmt"
	"strings"

	"tabnorm/internal/table"
)

// MultiRowPattern classifies why one identifier value appears on multiple
// rows: event history, status changes, line items, sequenced children, or a
// generic one-to-many child set.
type MultiRowPattern struct {
	IsMultiRow bool
	Pattern    string
	Evidence   []string
}

const (
	PatternEventHistory      = "event_history"
	PatternStatusHistory     = "status_history"
	PatternLineItems         = "line_items"
	PatternSequencedChildren = "sequenced_children"
	PatternChildRecords      = "child_records"
)

var temporalIndicators = []string{
	"date", "time", "timestamp", "created", "updated",
	"modified", "occurred", "logged", "recorded",
}

var statusIndicators = []string{
	"status", "state", "stage", "phase", "step", "condition",
}

var itemTableIndicators = []string{
	"item", "line", "detail", "entry", "component", "part",
}

var sequenceIndicators = []string{
	"seq", "sequence", "order", "position", "index", "number", "rank",
}

// DetectMultiRowPattern inspects a column that looked key-like but carries
// duplicates, and names the repetition pattern. Checks run in priority
// order; the first match wins.
func DetectMultiRowPattern(t *table.Table, column string) MultiRowPattern {
	result := MultiRowPattern{}
	if !t.HasColumn(column) {
		return result
	}

	duplicates := t.RowCount() - t.DistinctCount(column) - nullCount(t, column)
	if duplicates <= 0 {
		return result
	}
	result.IsMultiRow = true
	result.Evidence = append(result.Evidence,
		fmt.Sprintf("%d duplicate values in %s", duplicates, column))

	if cols := columnsContaining(t, temporalIndicators); len(cols) > 0 {
		result.Pattern = PatternEventHistory
		result.Evidence = append(result.Evidence,
			"temporal columns: "+strings.Join(cols, ", "))
		return result
	}

	for _, statusCol := range columnsContaining(t, statusIndicators) {
		if statusVariesWithinGroups(t, column, statusCol) {
			result.Pattern = PatternStatusHistory
			result.Evidence = append(result.Evidence, "status changes in "+statusCol)
			return result
		}
	}

	lowerName := strings.ToLower(t.Name)
	for _, ind := range itemTableIndicators {
		if strings.Contains(lowerName, ind) {
			result.Pattern = PatternLineItems
			result.Evidence = append(result.Evidence, "table name suggests line items")
			return result
		}
	}

	if cols := columnsContaining(t, sequenceIndicators); len(cols) > 0 {
		result.Pattern = PatternSequencedChildren
		result.Evidence = append(result.Evidence,
			"sequence columns: "+strings.Join(cols, ", "))
		return result
	}

	result.Pattern = PatternChildRecords
	result.Evidence = append(result.Evidence,
		"multiple rows per identifier (generic 1-to-many)")
	return result
}

func nullCount(t *table.Table, column string) int {
	n := 0
	for r := 0; r < t.RowCount(); r++ {
		if table.IsNull(t.Cell(r, column)) {
			n++
		}
	}
	if n > 0 {
		// Distinct counting treats the null as one value, so the first
		// null row is already accounted for; only the surplus beyond it
		// inflates the duplicate estimate.
		n--
	}
	return n
}

func columnsContaining(t *table.Table, indicators []string) []string {
	var out []string
	for _, col := range t.Columns {
		lower := strings.ToLower(col)
		for _, ind := range indicators {
			if strings.Contains(lower, ind) {
				out = append(out, col)
				break
			}
		}
	}
	return out
}

func statusVariesWithinGroups(t *table.Table, groupCol, statusCol string) bool {
	perGroup := make(map[string]map[string]struct{})
	for r := 0; r < t.RowCount(); r++ {
		g := t.Cell(r, groupCol)
		set, ok := perGroup[g]
		if !ok {
			set = make(map[string]struct{}, 1)
			perGroup[g] = set
		}
		set[t.Cell(r, statusCol)] = struct{}{}
	}
	for _, set := range perGroup {
		if len(set) > 1 {
			return true
		}
	}
	return false
}

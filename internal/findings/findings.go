package findings

import (
	"fmt"
	"sync"
)

// Kind classifies a recoverable decision or skip made during analysis.
type Kind string

const (
	// DataInsufficiency marks a table with too few rows to analyze.
	DataInsufficiency Kind = "data_insufficiency"
	// AmbiguousRelationship marks an FK candidate with multiple valid
	// parents and no name-similarity winner.
	AmbiguousRelationship Kind = "ambiguous_relationship"
	// CyclicDependency marks an FK candidate rejected because it would
	// close a cycle in the child->parent graph.
	CyclicDependency Kind = "cyclic_dependency"
	// KeylessTable marks a table for which no natural candidate key was
	// found and a surrogate key was synthesized.
	KeylessTable Kind = "keyless_table"
	// AttributeLoss marks an original column missing from every
	// descendant table after decomposition.
	AttributeLoss Kind = "attribute_loss"
	// ValidationFailure marks a hard violation reported by the schema
	// validator.
	ValidationFailure Kind = "validation_failure"
	// LowConfidence marks a transitive dependency whose intermediate did
	// not clear the semantic-entity threshold and was left in place.
	LowConfidence Kind = "low_confidence"
)

// Finding is one structured, auditable decision record.
type Finding struct {
	Kind   Kind
	Table  string
	Column string
	Detail string
}

func (f Finding) String() string {
	if f.Column != "" {
		return fmt.Sprintf("[%s] %s.%s: %s", f.Kind, f.Table, f.Column, f.Detail)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Kind, f.Table, f.Detail)
}

// Log accumulates findings across pipeline stages. Safe for concurrent use;
// per-table profiling runs in parallel.
type Log struct {
	mu    sync.Mutex
	items []Finding
}

func NewLog() *Log {
	return &Log{}
}

// Add records a finding.
func (l *Log) Add(kind Kind, table, column, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, Finding{
		Kind:   kind,
		Table:  table,
		Column: column,
		Detail: fmt.Sprintf(format, args...),
	})
}

// Items returns a copy of all recorded findings in insertion order.
func (l *Log) Items() []Finding {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Finding, len(l.items))
	copy(out, l.items)
	return out
}

// ByKind returns the findings of one kind, in insertion order.
func (l *Log) ByKind(kind Kind) []Finding {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Finding
	for _, f := range l.items {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

package profile

// ValueType is the inferred logical scalar type of a column. Dialect-specific
// datatype mapping happens in the DDL renderer.
type ValueType string

const (
	TypeText      ValueType = "text"
	TypeInteger   ValueType = "integer"
	TypeBigInt    ValueType = "bigint"
	TypeDecimal   ValueType = "decimal"
	TypeBoolean   ValueType = "boolean"
	TypeDate      ValueType = "date"
	TypeTimestamp ValueType = "timestamp"
)

// StructureKind classifies a structured-subfield hint.
type StructureKind string

const (
	StructureAddress  StructureKind = "address"
	StructureJSON     StructureKind = "json"
	StructureFullName StructureKind = "full_name"
)

// StructureHint records evidence that a column packs multiple logical fields
// into one value.
type StructureHint struct {
	Kind       StructureKind
	Components []string
}

// ColumnProfile holds per-column statistics for one input table.
type ColumnProfile struct {
	Name          string
	Type          ValueType
	MaxLength     int
	NullCount     int
	NullRatio     float64
	DistinctCount int
	DistinctRatio float64
	Multivalued   bool
	Delimiter     string
	Structured    *StructureHint
	Samples       []string
}

// TableProfile holds the column statistics of one input table. Immutable
// once built; owned by the pipeline run.
type TableProfile struct {
	Table    string
	RowCount int
	Columns  []ColumnProfile

	byName map[string]int
}

// Column returns the profile of one column, or nil if absent.
func (p *TableProfile) Column(name string) *ColumnProfile {
	if i, ok := p.byName[name]; ok {
		return &p.Columns[i]
	}
	return nil
}

// MultivaluedColumns returns the names of columns flagged multivalued, in
// column order.
func (p *TableProfile) MultivaluedColumns() []string {
	var out []string
	for _, c := range p.Columns {
		if c.Multivalued {
			out = append(out, c.Name)
		}
	}
	return out
}

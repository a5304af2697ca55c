package profile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabnorm/internal/table"
)

func buildTable(t *testing.T, columns []string, rows [][]string) *table.Table {
	t.Helper()
	tab := table.New("t", columns)
	for _, r := range rows {
		require.NoError(t, tab.AppendRow(r))
	}
	return tab
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   ValueType
	}{
		{"empty column is text", nil, TypeText},
		{"integers", []string{"1", "42", "-7"}, TypeInteger},
		{"big integers", []string{"1", "9876543210"}, TypeBigInt},
		{"decimals", []string{"1.5", "2", "-0.25"}, TypeDecimal},
		{"dates", []string{"2024-01-15", "2024-02-01"}, TypeDate},
		{"slash dates", []string{"2024/01/15", "2024/02/01"}, TypeDate},
		{"timestamps", []string{"2024-01-15 10:30:00", "2024-02-01 00:00:00"}, TypeTimestamp},
		{"rfc3339", []string{"2024-01-15T10:30:00Z"}, TypeTimestamp},
		{"booleans", []string{"true", "False", "yes", "N"}, TypeBoolean},
		{"mixed falls back to text", []string{"1", "abc"}, TypeText},
		{"padded integers", []string{" 1 ", "2"}, TypeInteger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferType(tt.values))
		})
	}
}

func TestBuildStatistics(t *testing.T) {
	tab := buildTable(t, []string{"id", "city"}, [][]string{
		{"1", "tokyo"},
		{"2", "tokyo"},
		{"3", ""},
		{"4", "osaka"},
	})

	p := Build(tab)
	assert.Equal(t, "t", p.Table)
	assert.Equal(t, 4, p.RowCount)

	id := p.Column("id")
	require.NotNil(t, id)
	assert.Equal(t, TypeInteger, id.Type)
	assert.Equal(t, 4, id.DistinctCount)
	assert.Equal(t, 0.0, id.NullRatio)
	assert.Equal(t, 1.0, id.DistinctRatio)

	city := p.Column("city")
	require.NotNil(t, city)
	assert.Equal(t, 2, city.DistinctCount)
	assert.Equal(t, 1, city.NullCount)
	assert.InDelta(t, 0.25, city.NullRatio, 1e-9)
	assert.Equal(t, 5, city.MaxLength)

	assert.Nil(t, p.Column("missing"))
}

func TestMultivaluedDetection(t *testing.T) {
	rows := [][]string{
		{"1", "red, green, blue"},
		{"2", "red"},
		{"3", "green, blue"},
		{"4", "blue, red"},
	}
	tab := buildTable(t, []string{"id", "tags"}, rows)

	p := Build(tab)
	tags := p.Column("tags")
	require.NotNil(t, tags)
	assert.True(t, tags.Multivalued)
	assert.Equal(t, ",", tags.Delimiter)
	assert.Equal(t, []string{"tags"}, p.MultivaluedColumns())
}

func TestBuildSampledBoundsProbing(t *testing.T) {
	rows := [][]string{
		{"1", "red, green"},
		{"2", "blue, red"},
	}
	for i := 3; i <= 10; i++ {
		rows = append(rows, []string{fmt.Sprintf("%d", i), "plain"})
	}
	tab := buildTable(t, []string{"id", "tags"}, rows)

	// over the full column the two packed values stay under the ratio
	assert.False(t, Build(tab).Column("tags").Multivalued)

	// a tight sample cap only sees the packed values
	assert.True(t, BuildSampled(tab, 2).Column("tags").Multivalued)

	// a non-positive cap falls back to the default
	assert.False(t, BuildSampled(tab, 0).Column("tags").Multivalued)
}

func TestNumericColumnsNeverMultivalued(t *testing.T) {
	rows := [][]string{
		{"1.5"}, {"2.25"}, {"3.75"},
	}
	tab := buildTable(t, []string{"price"}, rows)

	p := Build(tab)
	price := p.Column("price")
	assert.Equal(t, TypeDecimal, price.Type)
	assert.False(t, price.Multivalued)
}

func TestTimestampsNotMultivalued(t *testing.T) {
	rows := [][]string{
		{"2024-01-15 10:30:00"},
		{"2024-02-01 08:00:00"},
	}
	tab := buildTable(t, []string{"created_at"}, rows)

	created := Build(tab).Column("created_at")
	assert.Equal(t, TypeTimestamp, created.Type)
	assert.False(t, created.Multivalued)
}

func TestDominantDelimiter(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"no delimiter", []string{"a", "b", "c"}, ""},
		{"comma", []string{"a,b", "c,d", "e"}, ","},
		{"pipe beats comma", []string{"a|b", "c|d", "e|f", "g,h"}, "|"},
		{"below threshold", []string{"a,b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}, ""},
		{"array literals", []string{"[1,2]", "[3]", "{4,5}"}, ","},
		{"empty input", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dominantDelimiter(tt.values))
		})
	}
}

func TestDetectAddress(t *testing.T) {
	values := []string{
		"123 Main St, Springfield, IL 62701",
		"456 Oak Ave, Portland, OR 97201",
		"789 Pine Rd, Austin, TX 73301",
	}
	hint := detectStructured("shipping_address", values)
	require.NotNil(t, hint)
	assert.Equal(t, StructureAddress, hint.Kind)
	assert.Contains(t, hint.Components, "street")
	assert.Contains(t, hint.Components, "zip_code")

	// Same values under a non-address name still parse as JSON-free text.
	assert.Nil(t, detectStructured("notes", []string{"plain text", "more text"}))
}

func TestDetectJSON(t *testing.T) {
	values := []string{
		`{"size": "L", "color": "red"}`,
		`{"size": "M", "color": "blue"}`,
	}
	hint := detectStructured("attributes", values)
	require.NotNil(t, hint)
	assert.Equal(t, StructureJSON, hint.Kind)
	assert.Len(t, hint.Components, 2)
}

func TestDetectFullName(t *testing.T) {
	values := []string{"Jane Doe", "John Smith", "Ada Lovelace"}
	hint := detectStructured("customer_name", values)
	require.NotNil(t, hint)
	assert.Equal(t, StructureFullName, hint.Kind)
	assert.Equal(t, []string{"first_name", "last_name"}, hint.Components)

	// Single-word values carry no name structure.
	assert.Nil(t, detectStructured("customer_name", []string{"Jane", "John"}))
}

func TestSamplesCapped(t *testing.T) {
	var rows [][]string
	for i := 0; i < 20; i++ {
		rows = append(rows, []string{fmt.Sprintf("v%d", i)})
	}
	tab := buildTable(t, []string{"c"}, rows)

	c := Build(tab).Column("c")
	assert.Len(t, c.Samples, maxSampleValues)
}

package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tab := New("orders", []string{"order_id", "customer", "status"})
	rows := [][]string{
		{"1", "acme", "open"},
		{"2", "acme", "open"},
		{"3", "globex", ""},
	}
	for _, r := range rows {
		require.NoError(t, tab.AppendRow(r))
	}
	return tab
}

func TestAppendRowLengthMismatch(t *testing.T) {
	tab := New("t", []string{"a", "b"})
	err := tab.AppendRow([]string{"1"})
	require.Error(t, err)
	assert.Equal(t, 0, tab.RowCount())
}

func TestCellAndColumn(t *testing.T) {
	tab := sampleTable(t)
	assert.Equal(t, "acme", tab.Cell(0, "customer"))
	assert.Equal(t, []string{"open", "open", ""}, tab.Column("status"))
	assert.Nil(t, tab.Column("missing"))
	assert.Panics(t, func() { tab.Cell(0, "missing") })
}

func TestDistinctCounts(t *testing.T) {
	tab := sampleTable(t)
	// Null counts as one distinct value.
	assert.Equal(t, 2, tab.DistinctCount("status"))
	assert.Len(t, tab.DistinctNonNull("status"), 1)
	assert.Equal(t, 3, tab.DistinctCount("order_id"))
}

func TestKey(t *testing.T) {
	tab := sampleTable(t)
	assert.Equal(t, "1\x1facme", tab.Key(0, []string{"order_id", "customer"}))
}

func TestProject(t *testing.T) {
	tab := sampleTable(t)

	out, err := tab.Project("customers", "customer", "status")
	require.NoError(t, err)
	assert.Equal(t, "customers", out.Name)
	assert.Equal(t, []string{"customer", "status"}, out.Columns)
	// Duplicate (acme, open) collapses; first-seen order is preserved.
	require.Equal(t, 2, out.RowCount())
	assert.Equal(t, "acme", out.Cell(0, "customer"))
	assert.Equal(t, "globex", out.Cell(1, "customer"))

	_, err = tab.Project("bad", "nope")
	assert.Error(t, err)
}

func TestDropColumns(t *testing.T) {
	tab := sampleTable(t)
	tab.DropColumns("status", "not_there")
	assert.Equal(t, []string{"order_id", "customer"}, tab.Columns)
	assert.Equal(t, "globex", tab.Cell(2, "customer"))
	assert.False(t, tab.HasColumn("status"))
}

func TestInsertColumn(t *testing.T) {
	tab := sampleTable(t)

	require.NoError(t, tab.InsertColumn(0, "row_id", []string{"a", "b", "c"}))
	assert.Equal(t, []string{"row_id", "order_id", "customer", "status"}, tab.Columns)
	assert.Equal(t, "b", tab.Cell(1, "row_id"))
	assert.Equal(t, "acme", tab.Cell(1, "customer"))

	assert.Error(t, tab.InsertColumn(0, "row_id", []string{"x", "y", "z"}))
	assert.Error(t, tab.InsertColumn(0, "other", []string{"too", "few"}))
	assert.Error(t, tab.InsertColumn(99, "pos", []string{"a", "b", "c"}))
}

func TestRenameColumn(t *testing.T) {
	tab := sampleTable(t)
	require.NoError(t, tab.RenameColumn("customer", "customer_name"))
	assert.Equal(t, "acme", tab.Cell(0, "customer_name"))
	assert.Error(t, tab.RenameColumn("missing", "x"))
	assert.Error(t, tab.RenameColumn("status", "customer_name"))
}

func TestCloneIsDeep(t *testing.T) {
	tab := sampleTable(t)
	cp := tab.Clone("copy")
	cp.Rows[0][0] = "mutated"
	assert.Equal(t, "1", tab.Cell(0, "order_id"))
	assert.Equal(t, "copy", cp.Name)

	same := tab.Clone("")
	assert.Equal(t, "orders", same.Name)
}

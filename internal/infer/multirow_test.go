package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabnorm/internal/table"
)

func multirowTable(t *testing.T, name string, columns []string, rows [][]string) *table.Table {
	t.Helper()
	tab := table.New(name, columns)
	for _, r := range rows {
		require.NoError(t, tab.AppendRow(r))
	}
	return tab
}

func TestDetectMultiRowPatternNoDuplicates(t *testing.T) {
	tab := multirowTable(t, "t", []string{"id", "v"}, [][]string{
		{"1", "a"}, {"2", "b"},
	})
	got := DetectMultiRowPattern(tab, "id")
	assert.False(t, got.IsMultiRow)
	assert.Empty(t, got.Pattern)
}

func TestDetectMultiRowPatternUnknownColumn(t *testing.T) {
	tab := multirowTable(t, "t", []string{"id"}, [][]string{{"1"}})
	assert.False(t, DetectMultiRowPattern(tab, "nope").IsMultiRow)
}

func TestDetectEventHistory(t *testing.T) {
	tab := multirowTable(t, "audit", []string{"ticket_id", "occurred_at", "actor"}, [][]string{
		{"t1", "2024-01-01", "ann"},
		{"t1", "2024-01-02", "bob"},
		{"t2", "2024-01-03", "ann"},
	})
	got := DetectMultiRowPattern(tab, "ticket_id")
	require.True(t, got.IsMultiRow)
	assert.Equal(t, PatternEventHistory, got.Pattern)
	assert.NotEmpty(t, got.Evidence)
}

func TestDetectStatusHistory(t *testing.T) {
	tab := multirowTable(t, "tracking", []string{"shipment_id", "status", "hub"}, [][]string{
		{"s1", "picked", "east"},
		{"s1", "delivered", "east"},
		{"s2", "picked", "west"},
	})
	got := DetectMultiRowPattern(tab, "shipment_id")
	require.True(t, got.IsMultiRow)
	assert.Equal(t, PatternStatusHistory, got.Pattern)
}

func TestStatusConstantWithinGroupsIsNotHistory(t *testing.T) {
	tab := multirowTable(t, "rows", []string{"group_id", "status"}, [][]string{
		{"g1", "active"},
		{"g1", "active"},
		{"g2", "closed"},
	})
	got := DetectMultiRowPattern(tab, "group_id")
	require.True(t, got.IsMultiRow)
	assert.Equal(t, PatternChildRecords, got.Pattern)
}

func TestDetectLineItems(t *testing.T) {
	tab := multirowTable(t, "invoice_items", []string{"invoice_id", "product", "qty"}, [][]string{
		{"i1", "widget", "2"},
		{"i1", "gadget", "1"},
		{"i2", "widget", "5"},
	})
	got := DetectMultiRowPattern(tab, "invoice_id")
	require.True(t, got.IsMultiRow)
	assert.Equal(t, PatternLineItems, got.Pattern)
}

func TestDetectSequencedChildren(t *testing.T) {
	tab := multirowTable(t, "steps", []string{"flow_id", "seq", "action"}, [][]string{
		{"f1", "1", "start"},
		{"f1", "2", "finish"},
		{"f2", "1", "start"},
	})
	got := DetectMultiRowPattern(tab, "flow_id")
	require.True(t, got.IsMultiRow)
	assert.Equal(t, PatternSequencedChildren, got.Pattern)
}

func TestDetectChildRecordsFallback(t *testing.T) {
	tab := multirowTable(t, "assignments", []string{"project_id", "assignee"}, [][]string{
		{"p1", "ann"},
		{"p1", "bob"},
		{"p2", "cid"},
	})
	got := DetectMultiRowPattern(tab, "project_id")
	require.True(t, got.IsMultiRow)
	assert.Equal(t, PatternChildRecords, got.Pattern)
}

func TestNullsDoNotInflateDuplicates(t *testing.T) {
	tab := multirowTable(t, "t", []string{"ref", "v"}, [][]string{
		{"a", "1"},
		{"b", "2"},
		{"", "3"},
		{"", "4"},
	})
	// Distinct non-null values a and b, two null rows: no real duplicates.
	assert.False(t, DetectMultiRowPattern(tab, "ref").IsMultiRow)
}

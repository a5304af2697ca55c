package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tabnorm/internal/table"
)

func TestWriteTable(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, zap.NewNop())

	tbl := table.New("customers", []string{"customer_id", "name", "notes"})
	require.NoError(t, tbl.AppendRow([]string{"c1", "Acme", "fast payer"}))
	require.NoError(t, tbl.AppendRow([]string{"c2", "Globex, Inc", ""}))

	require.NoError(t, w.WriteTable(tbl))

	csvData, err := os.ReadFile(filepath.Join(dir, "customers.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"customer_id,name,notes\nc1,Acme,fast payer\nc2,\"Globex, Inc\",\n",
		string(csvData))

	jsonData, err := os.ReadFile(filepath.Join(dir, "customers.json"))
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(jsonData, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "c1", records[0]["customer_id"])
	assert.Equal(t, "Globex, Inc", records[1]["name"])
	assert.Nil(t, records[1]["notes"], "null cells render as JSON null")
}

func TestWriteTableCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := NewWriter(dir, zap.NewNop())

	tbl := table.New("t", []string{"id"})
	require.NoError(t, tbl.AppendRow([]string{"1"}))
	require.NoError(t, w.WriteTable(tbl))

	_, err := os.Stat(filepath.Join(dir, "t.csv"))
	assert.NoError(t, err)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, zap.NewNop())

	require.NoError(t, w.WriteFile("report.md", "# Report\n"))

	data, err := os.ReadFile(filepath.Join(dir, "report.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Report\n", string(data))
}

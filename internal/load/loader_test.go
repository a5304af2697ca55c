package load

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.csv", "order_id, customer ,status\n1,acme,open\n2,globex,\n")

	l := New(zap.NewNop())
	tab, err := l.LoadFile(filepath.Join(dir, "orders.csv"))
	require.NoError(t, err)

	assert.Equal(t, "orders", tab.Name)
	assert.Equal(t, []string{"order_id", "customer", "status"}, tab.Columns)
	require.Equal(t, 2, tab.RowCount())
	assert.Equal(t, "globex", tab.Cell(1, "customer"))
	assert.Equal(t, "", tab.Cell(1, "status"))
}

func TestLoadCSVStripsBOM(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t.csv", "\ufeffid,name\n1,a\n")

	tab, err := New(zap.NewNop()).LoadFile(filepath.Join(dir, "t.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, tab.Columns)
}

func TestLoadCSVEmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.csv", "")

	_, err := New(zap.NewNop()).LoadFile(filepath.Join(dir, "empty.csv"))
	assert.Error(t, err)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "users.json", `[
		{"id": 1, "name": "alice", "score": 1.5},
		{"id": 2, "name": null, "active": true}
	]`)

	tab, err := New(zap.NewNop()).LoadFile(filepath.Join(dir, "users.json"))
	require.NoError(t, err)

	assert.Equal(t, "users", tab.Name)
	assert.Equal(t, []string{"id", "name", "score", "active"}, tab.Columns)
	require.Equal(t, 2, tab.RowCount())
	assert.Equal(t, "1", tab.Cell(0, "id"))
	assert.Equal(t, "1.5", tab.Cell(0, "score"))
	assert.Equal(t, "", tab.Cell(1, "name"))
	assert.Equal(t, "true", tab.Cell(1, "active"))
	assert.Equal(t, "", tab.Cell(0, "active"))
}

func TestLoadJSONNestedValue(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t.json", `[{"id": 1, "meta": {"k": "v"}}]`)

	tab, err := New(zap.NewNop()).LoadFile(filepath.Join(dir, "t.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"k":"v"}`, tab.Cell(0, "meta"))
}

func TestLoadJSONNotAnArray(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t.json", `{"id": 1}`)

	_, err := New(zap.NewNop()).LoadFile(filepath.Join(dir, "t.json"))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "id\n1\n")
	writeFile(t, dir, "b.json", `[{"id": 1}]`)
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	tables, err := New(zap.NewNop()).LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, tables, 2)
	assert.Contains(t, tables, "a")
	assert.Contains(t, tables, "b")
}

func TestLoadDirDuplicateStem(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "id\n1\n")
	writeFile(t, dir, "a.json", `[{"id": 1}]`)

	_, err := New(zap.NewNop()).LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate table name")
}

func TestLoadDirEmpty(t *testing.T) {
	_, err := New(zap.NewNop()).LoadDir(t.TempDir())
	assert.Error(t, err)
}

// Package output writes the normalized tables and reports to disk.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"tabnorm/internal/table"
)

// Writer exports tables into a target directory, one CSV and one JSON file
// per table.
type Writer struct {
	dir    string
	logger *zap.Logger
}

func NewWriter(dir string, logger *zap.Logger) *Writer {
	return &Writer{dir: dir, logger: logger.Named("output")}
}

// WriteTable writes <name>.csv and <name>.json for one table.
func (w *Writer) WriteTable(t *table.Table) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := w.writeCSV(t); err != nil {
		return err
	}
	if err := w.writeJSON(t); err != nil {
		return err
	}
	w.logger.Debug("exported table",
		zap.String("table", t.Name),
		zap.Int("rows", t.RowCount()))
	return nil
}

func (w *Writer) writeCSV(t *table.Table) error {
	path := filepath.Join(w.dir, t.Name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for i := 0; i < t.RowCount(); i++ {
		if err := cw.Write(t.Rows[i]); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func (w *Writer) writeJSON(t *table.Table) error {
	path := filepath.Join(w.dir, t.Name+".json")

	records := make([]map[string]any, 0, t.RowCount())
	for i := 0; i < t.RowCount(); i++ {
		rec := make(map[string]any, len(t.Columns))
		for _, col := range t.Columns {
			v := t.Cell(i, col)
			if table.IsNull(v) {
				rec[col] = nil
			} else {
				rec[col] = v
			}
		}
		records = append(records, rec)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteFile writes an arbitrary report file into the output directory.
func (w *Writer) WriteFile(name, content string) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

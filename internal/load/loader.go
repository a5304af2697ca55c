package load

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"tabnorm/internal/table"
)

// Loader reads flat tabular files (CSV, JSON arrays of flat objects) into
// Table values. Table names come from file stems.
type Loader struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Loader {
	return &Loader{logger: logger.Named("load")}
}

// LoadDir loads every *.csv and *.json file under dir. The result is keyed
// by table name; duplicate stems across extensions are an error.
func (l *Loader) LoadDir(dir string) (map[string]*table.Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".json":
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("no CSV or JSON files found in %s", dir)
	}

	tables := make(map[string]*table.Table, len(files))
	for _, name := range files {
		path := filepath.Join(dir, name)
		t, err := l.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}
		if _, dup := tables[t.Name]; dup {
			return nil, fmt.Errorf("duplicate table name %q from %s", t.Name, name)
		}
		tables[t.Name] = t
		l.logger.Info("loaded table",
			zap.String("table", t.Name),
			zap.Int("rows", t.RowCount()),
			zap.Int("columns", len(t.Columns)))
	}
	return tables, nil
}

// LoadFile loads a single CSV or JSON file. The table name is the file stem.
func (l *Loader) LoadFile(path string) (*table.Table, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(name, path)
	case ".json":
		return loadJSON(name, path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

func loadCSV(name, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	t := table.New(name, header)
	for _, rec := range records[1:] {
		if err := t.AppendRow(rec); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// loadJSON accepts an array of flat objects. Column order is the key order of
// the first object's sorted keys, extended by keys seen later.
func loadJSON(name, path string) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var objects []map[string]any
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("parsing JSON: expected an array of objects: %w", err)
	}

	var columns []string
	seen := make(map[string]struct{})
	for _, obj := range objects {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}

	t := table.New(name, columns)
	for _, obj := range objects {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = scalarString(obj[c])
		}
		if err := t.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// scalarString renders a JSON scalar as its tabular string form. Nested
// structures are re-encoded as JSON text so structured-field detection can
// still see them.
func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case json.Number:
		return x.String()
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}

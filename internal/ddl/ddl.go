package ddl

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"tabnorm/internal/graph"
	"tabnorm/internal/normalize"
	"tabnorm/internal/profile"
)

// Generator renders a normalized schema as DDL in a chosen dialect:
// CREATE TABLE with inline primary keys, ALTER TABLE constraints for the
// foreign keys, and one index per FK column.
type Generator struct {
	dialect Dialect
	logger  *zap.Logger

	sanitized map[string]string
}

func NewGenerator(dialect Dialect, logger *zap.Logger) *Generator {
	return &Generator{
		dialect:   dialect,
		logger:    logger.Named("ddl"),
		sanitized: make(map[string]string),
	}
}

// Script is the generated DDL with the executable statements kept separate
// from the rendered text, so a verifier can run them one by one.
type Script struct {
	Text       string
	Statements []string
}

// Generate renders the whole schema. Tables are created parents-first using
// the schema's topological order, so the script runs cleanly even when FK
// constraints are created inline.
func (g *Generator) Generate(s *normalize.Schema) *Script {
	var b strings.Builder
	var stmts []string

	b.WriteString("-- 3NF normalized database schema\n")
	fmt.Fprintf(&b, "-- Dialect: %s\n\n", g.dialect.Name())

	b.WriteString("-- Drop existing tables (children first)\n")
	for i := len(s.Order) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "-- %s;\n", g.dialect.DropStatement(g.identifier(s.Order[i])))
	}
	b.WriteString("\n")

	inlineFK := make(map[string][]graph.Edge)
	if !g.dialect.SupportsAlterConstraint() {
		for _, e := range s.Graph.Edges {
			if contains(s.Keys[e.ParentTable], e.ParentColumn) {
				inlineFK[e.ChildTable] = append(inlineFK[e.ChildTable], e)
			}
		}
	}

	for _, name := range s.Order {
		t := s.Tables[name]
		prof := profile.Build(t)
		stmt := g.createTable(name, prof, s.Keys[name], inlineFK[name])
		fmt.Fprintf(&b, "-- Table: %s (%d rows)\n%s;\n\n", name, t.RowCount(), stmt)
		stmts = append(stmts, stmt)
	}

	if g.dialect.SupportsAlterConstraint() {
		counter := 1
		for _, e := range s.Graph.Edges {
			if !contains(s.Keys[e.ParentTable], e.ParentColumn) {
				g.logger.Debug("skipping FK constraint, target is not the parent key",
					zap.String("edge", e.String()))
				continue
			}
			stmt := g.foreignKey(e.ChildTable, e.ChildColumn, e.ParentTable, e.ParentColumn, counter)
			fmt.Fprintf(&b, "%s;\n\n", stmt)
			stmts = append(stmts, stmt)
			counter++
		}
	}

	counter := 1
	for _, e := range s.Graph.Edges {
		stmt := g.index(e.ChildTable, e.ChildColumn, counter)
		fmt.Fprintf(&b, "%s;\n", stmt)
		stmts = append(stmts, stmt)
		counter++
	}

	if g.dialect.Name() == "oracle" {
		b.WriteString("\nCOMMIT;\n")
	}

	return &Script{Text: b.String(), Statements: stmts}
}

func (g *Generator) createTable(name string, prof *profile.TableProfile, pk []string, fks []graph.Edge) string {
	var defs []string

	for _, cp := range prof.Columns {
		col := g.identifier(cp.Name)
		typ := g.dialect.ColumnType(&cp)
		notNull := ""
		if contains(pk, cp.Name) || cp.NullRatio < 0.05 {
			notNull = " NOT NULL"
		}
		defs = append(defs, fmt.Sprintf("    %s %s%s", col, typ, notNull))
	}

	if len(pk) > 0 {
		cols := make([]string, len(pk))
		for i, c := range pk {
			cols[i] = g.identifier(c)
		}
		constraint := g.constraintName("pk_" + g.identifier(name))
		defs = append(defs, fmt.Sprintf("    CONSTRAINT %s PRIMARY KEY (%s)",
			constraint, strings.Join(cols, ", ")))
	}

	for _, e := range fks {
		defs = append(defs, fmt.Sprintf("    FOREIGN KEY (%s) REFERENCES %s(%s)",
			g.identifier(e.ChildColumn), g.identifier(e.ParentTable), g.identifier(e.ParentColumn)))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", g.identifier(name), strings.Join(defs, ",\n"))
}

func (g *Generator) foreignKey(childTable, childCol, parentTable, parentCol string, n int) string {
	name := g.constraintName(fmt.Sprintf("fk_%s_%d", g.identifier(childTable), n))
	return fmt.Sprintf("ALTER TABLE %s\n    ADD CONSTRAINT %s\n    FOREIGN KEY (%s)\n    REFERENCES %s(%s)",
		g.identifier(childTable), name, g.identifier(childCol),
		g.identifier(parentTable), g.identifier(parentCol))
}

func (g *Generator) index(childTable, childCol string, n int) string {
	name := g.constraintName(fmt.Sprintf("idx_%s_%d", g.identifier(childTable), n))
	return fmt.Sprintf("CREATE INDEX %s ON %s(%s)",
		name, g.identifier(childTable), g.identifier(childCol))
}

var invalidIdentChars = regexp.MustCompile(`[^A-Za-z0-9_]`)
var repeatedUnderscores = regexp.MustCompile(`_+`)

// identifier sanitizes a name for the target dialect: invalid characters
// become underscores, reserved words get a suffix, and overlong names are
// truncated with a short hash to stay unique.
func (g *Generator) identifier(name string) string {
	if cached, ok := g.sanitized[name]; ok {
		return cached
	}

	s := invalidIdentChars.ReplaceAllString(name, "_")
	s = repeatedUnderscores.ReplaceAllString(s, "_")
	if s == "" || !unicode.IsLetter(rune(s[0])) {
		s = "col_" + s
	}
	if g.dialect.IsReservedWord(strings.ToUpper(s)) {
		s += "_col"
	}
	if max := g.dialect.MaxIdentifierLen(); max > 0 && len(s) > max {
		s = s[:max-5] + "_" + hashSuffix(name)
	}

	g.sanitized[name] = s
	return s
}

func (g *Generator) constraintName(name string) string {
	max := g.dialect.MaxIdentifierLen()
	if max == 0 || len(name) <= max {
		return name
	}
	return name[:max-5] + "_" + hashSuffix(name)
}

func hashSuffix(name string) string {
	sum := md5.Sum([]byte(name))
	return hex.EncodeToString(sum[:])[:4]
}

func contains(cols []string, col string) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}

// Package ddl renders a normalized schema as SQL DDL scripts and can verify
// the generated statements against an in-memory database.
package ddl

import (
	"fmt"

	"tabnorm/internal/profile"
)

// Dialect abstracts the SQL flavor the generator emits.
type Dialect interface {
	Name() string
	// MaxIdentifierLen is the identifier length limit, 0 for unlimited.
	MaxIdentifierLen() int
	IsReservedWord(word string) bool
	// ColumnType maps a profiled column to the dialect's type name.
	ColumnType(cp *profile.ColumnProfile) string
	DropStatement(table string) string
	// SupportsAlterConstraint reports whether foreign keys can be added
	// with ALTER TABLE after creation. When false they are inlined into
	// the CREATE TABLE statement.
	SupportsAlterConstraint() bool
}

// ForName returns the dialect for a config value.
func ForName(name string) (Dialect, error) {
	switch name {
	case "oracle":
		return Oracle{}, nil
	case "sqlite":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unknown SQL dialect %q", name)
	}
}

// Oracle targets Oracle 11g-era restrictions: 30-character identifiers and
// a large reserved word list.
type Oracle struct{}

func (Oracle) Name() string                  { return "oracle" }
func (Oracle) MaxIdentifierLen() int         { return 30 }
func (Oracle) SupportsAlterConstraint() bool { return true }

func (Oracle) IsReservedWord(word string) bool {
	_, ok := oracleReserved[word]
	return ok
}

func (Oracle) ColumnType(cp *profile.ColumnProfile) string {
	switch cp.Type {
	case profile.TypeInteger:
		return "NUMBER(10)"
	case profile.TypeBigInt:
		return "NUMBER(19)"
	case profile.TypeDecimal:
		return "NUMBER(15,2)"
	case profile.TypeBoolean:
		return "CHAR(1)"
	case profile.TypeDate:
		return "DATE"
	case profile.TypeTimestamp:
		return "TIMESTAMP"
	default:
		length := cp.MaxLength + cp.MaxLength/2
		if length < 1 {
			length = 255
		}
		if length > 4000 {
			length = 4000
		}
		return fmt.Sprintf("VARCHAR2(%d)", length)
	}
}

func (Oracle) DropStatement(table string) string {
	return fmt.Sprintf("DROP TABLE %s CASCADE CONSTRAINTS", table)
}

// SQLite targets the storage classes of SQLite; identifiers are unlimited
// and the reserved list is short.
type SQLite struct{}

func (SQLite) Name() string                  { return "sqlite" }
func (SQLite) MaxIdentifierLen() int         { return 0 }
func (SQLite) SupportsAlterConstraint() bool { return false }

func (SQLite) IsReservedWord(word string) bool {
	_, ok := sqliteReserved[word]
	return ok
}

func (SQLite) ColumnType(cp *profile.ColumnProfile) string {
	switch cp.Type {
	case profile.TypeInteger, profile.TypeBigInt, profile.TypeBoolean:
		return "INTEGER"
	case profile.TypeDecimal:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (SQLite) DropStatement(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

var oracleReserved = wordSet(
	"ACCESS", "ADD", "ALL", "ALTER", "AND", "ANY", "AS", "ASC", "AUDIT", "BETWEEN",
	"BY", "CHAR", "CHECK", "CLUSTER", "COLUMN", "COMMENT", "COMPRESS", "CONNECT",
	"CREATE", "CURRENT", "DATE", "DECIMAL", "DEFAULT", "DELETE", "DESC", "DISTINCT",
	"DROP", "ELSE", "EXCLUSIVE", "EXISTS", "FILE", "FLOAT", "FOR", "FROM", "GRANT",
	"GROUP", "HAVING", "IDENTIFIED", "IMMEDIATE", "IN", "INCREMENT", "INDEX", "INITIAL",
	"INSERT", "INTEGER", "INTERSECT", "INTO", "IS", "LEVEL", "LIKE", "LOCK", "LONG",
	"MAXEXTENTS", "MINUS", "MLSLABEL", "MODE", "MODIFY", "NOAUDIT", "NOCOMPRESS",
	"NOT", "NOWAIT", "NULL", "NUMBER", "OF", "OFFLINE", "ON", "ONLINE", "OPTION",
	"OR", "ORDER", "PCTFREE", "PRIOR", "PRIVILEGES", "PUBLIC", "RAW", "RENAME",
	"RESOURCE", "REVOKE", "ROW", "ROWID", "ROWNUM", "ROWS", "SELECT", "SESSION",
	"SET", "SHARE", "SIZE", "SMALLINT", "START", "SUCCESSFUL", "SYNONYM", "SYSDATE",
	"TABLE", "THEN", "TO", "TRIGGER", "UID", "UNION", "UNIQUE", "UPDATE", "USER",
	"VALIDATE", "VALUES", "VARCHAR", "VARCHAR2", "VIEW", "WHENEVER", "WHERE", "WITH",
	"TIMESTAMP", "INTERVAL", "YEAR", "MONTH", "DAY", "HOUR", "MINUTE", "SECOND",
	"TIMEZONE", "PARTITION", "SUBPARTITION", "ENABLE", "DISABLE", "SEQUENCE",
	"TYPE", "BODY", "PACKAGE", "PROCEDURE", "FUNCTION", "CURSOR", "EXCEPTION",
)

var sqliteReserved = wordSet(
	"ABORT", "ACTION", "ADD", "ALL", "ALTER", "AND", "AS", "ASC", "BETWEEN", "BY",
	"CASE", "CHECK", "COLLATE", "COLUMN", "COMMIT", "CONSTRAINT", "CREATE", "CROSS",
	"DEFAULT", "DELETE", "DESC", "DISTINCT", "DROP", "ELSE", "EXISTS", "FOREIGN",
	"FROM", "GROUP", "HAVING", "IN", "INDEX", "INSERT", "INTO", "IS", "JOIN", "KEY",
	"LIKE", "LIMIT", "NOT", "NULL", "ON", "OR", "ORDER", "PRIMARY", "REFERENCES",
	"SELECT", "SET", "TABLE", "THEN", "TO", "TRANSACTION", "UNION", "UNIQUE",
	"UPDATE", "VALUES", "WHEN", "WHERE",
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

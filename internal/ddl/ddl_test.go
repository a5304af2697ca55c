package ddl

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tabnorm/internal/graph"
	"tabnorm/internal/normalize"
	"tabnorm/internal/table"
)

func demoSchema(t *testing.T) *normalize.Schema {
	t.Helper()

	customers := table.New("customers", []string{"customer_id", "customer_name", "notes"})
	require.NoError(t, customers.AppendRow([]string{"c1", "Acme", "fast payer"}))
	require.NoError(t, customers.AppendRow([]string{"c2", "Globex", ""}))

	orders := table.New("orders", []string{"order_id", "customer_id", "amount", "order_date", "active", "big_ref"})
	require.NoError(t, orders.AppendRow([]string{"1", "c1", "10.50", "2024-01-05", "true", "9876543210"}))
	require.NoError(t, orders.AppendRow([]string{"2", "c1", "20.00", "2024-01-06", "false", "9876543211"}))
	require.NoError(t, orders.AppendRow([]string{"3", "c2", "7.25", "2024-01-07", "true", "9876543212"}))

	g := graph.New([]string{"customers", "orders"})
	require.NoError(t, g.Propose(graph.Edge{
		ChildTable: "orders", ChildColumn: "customer_id",
		ParentTable: "customers", ParentColumn: "customer_id",
	}))

	return &normalize.Schema{
		Tables: map[string]*table.Table{"customers": customers, "orders": orders},
		Keys: map[string][]string{
			"customers": {"customer_id"},
			"orders":    {"order_id"},
		},
		Graph:      g,
		Order:      []string{"customers", "orders"},
		Provenance: map[string]string{"customers": "customers", "orders": "orders"},
	}
}

func TestGenerateOracle(t *testing.T) {
	gen := NewGenerator(Oracle{}, zap.NewNop())
	script := gen.Generate(demoSchema(t))

	assert.Contains(t, script.Text, "-- Dialect: oracle")

	dropOrders := strings.Index(script.Text, "-- DROP TABLE orders CASCADE CONSTRAINTS;")
	dropCustomers := strings.Index(script.Text, "-- DROP TABLE customers CASCADE CONSTRAINTS;")
	require.GreaterOrEqual(t, dropOrders, 0)
	require.GreaterOrEqual(t, dropCustomers, 0)
	assert.Less(t, dropOrders, dropCustomers, "children dropped before parents")

	// two creates, one FK constraint, one index
	assert.Len(t, script.Statements, 4)

	assert.Contains(t, script.Text, "CONSTRAINT pk_customers PRIMARY KEY (customer_id)")
	assert.Contains(t, script.Text, "order_id NUMBER(10) NOT NULL")
	assert.Contains(t, script.Text, "big_ref NUMBER(19) NOT NULL")
	assert.Contains(t, script.Text, "amount NUMBER(15,2) NOT NULL")
	assert.Contains(t, script.Text, "order_date DATE NOT NULL")
	assert.Contains(t, script.Text, "active CHAR(1) NOT NULL")

	// notes has a null, so it stays nullable
	assert.Contains(t, script.Text, "notes VARCHAR2(15)")
	assert.NotContains(t, script.Text, "notes VARCHAR2(15) NOT NULL")

	assert.Contains(t, script.Text, "ALTER TABLE orders")
	assert.Contains(t, script.Text, "ADD CONSTRAINT fk_orders_1")
	assert.Contains(t, script.Text, "REFERENCES customers(customer_id)")
	assert.Contains(t, script.Text, "CREATE INDEX idx_orders_1 ON orders(customer_id)")
	assert.True(t, strings.HasSuffix(script.Text, "COMMIT;\n"))
}

func TestGenerateSQLite(t *testing.T) {
	gen := NewGenerator(SQLite{}, zap.NewNop())
	script := gen.Generate(demoSchema(t))

	assert.Contains(t, script.Text, "-- Dialect: sqlite")
	assert.Contains(t, script.Text, "-- DROP TABLE IF EXISTS orders;")

	// two creates and one index; the FK is inlined into CREATE TABLE
	assert.Len(t, script.Statements, 3)
	assert.Contains(t, script.Text, "FOREIGN KEY (customer_id) REFERENCES customers(customer_id)")
	assert.NotContains(t, script.Text, "ALTER TABLE")
	assert.NotContains(t, script.Text, "COMMIT")

	assert.Contains(t, script.Text, "order_id INTEGER NOT NULL")
	assert.Contains(t, script.Text, "amount REAL NOT NULL")
	assert.Contains(t, script.Text, "customer_name TEXT NOT NULL")
}

func TestGenerateSkipsFKWhenTargetNotParentKey(t *testing.T) {
	s := demoSchema(t)
	s.Keys["customers"] = []string{"customer_name"}

	gen := NewGenerator(Oracle{}, zap.NewNop())
	script := gen.Generate(s)

	// the FK constraint is dropped but the index on the child column stays
	assert.Len(t, script.Statements, 3)
	assert.NotContains(t, script.Text, "ADD CONSTRAINT fk_")
	assert.Contains(t, script.Text, "CREATE INDEX idx_orders_1 ON orders(customer_id)")
}

func TestIdentifierSanitization(t *testing.T) {
	gen := NewGenerator(Oracle{}, zap.NewNop())

	tests := []struct {
		in   string
		want string
	}{
		{"customer_id", "customer_id"},
		{"order", "order_col"},
		{"weird col!", "weird_col_"},
		{"9lives", "col_9lives"},
		{"", "col_"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, gen.identifier(tc.in), "identifier(%q)", tc.in)
	}

	long := strings.Repeat("a", 40)
	got := gen.identifier(long)
	assert.Len(t, got, 30)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 25)+"_"))
	assert.Equal(t, got, gen.identifier(long))
}

func TestIdentifierUnlimitedForSQLite(t *testing.T) {
	gen := NewGenerator(SQLite{}, zap.NewNop())
	long := strings.Repeat("b", 80)
	assert.Equal(t, long, gen.identifier(long))
}

func TestConstraintNameTruncation(t *testing.T) {
	gen := NewGenerator(Oracle{}, zap.NewNop())
	name := "fk_" + strings.Repeat("x", 35)
	got := gen.constraintName(name)
	assert.Len(t, got, 30)
	assert.True(t, strings.HasPrefix(got, name[:25]+"_"))

	short := "pk_orders"
	assert.Equal(t, short, gen.constraintName(short))
}

func TestVerifySQLiteScript(t *testing.T) {
	gen := NewGenerator(SQLite{}, zap.NewNop())
	script := gen.Generate(demoSchema(t))

	require.NoError(t, Verify(context.Background(), script))
}

func TestVerifyReportsFailingStatement(t *testing.T) {
	script := &Script{Statements: []string{"CREATE TABLE broken ("}}
	err := Verify(context.Background(), script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute")
}

package infer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabnorm/internal/table"
)

// supplierTable repeats each of 12 suppliers across 3 rows with constant
// contact attributes.
func supplierTable(t *testing.T) *table.Table {
	t.Helper()
	columns := []string{"row_id", "supplier_id", "supplier_city", "supplier_phone", "status"}
	var rows [][]string
	for i := 0; i < 36; i++ {
		s := fmt.Sprintf("s%02d", i%12)
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			s,
			"city_" + s,
			"555-" + s,
			fmt.Sprintf("st%d", i%2),
		})
	}
	tab := table.New("purchases", columns)
	for _, r := range rows {
		require.NoError(t, tab.AppendRow(r))
	}
	return tab
}

func TestScoreEntityAccumulatesFactors(t *testing.T) {
	tab := supplierTable(t)

	s := ScoreEntity(tab, "supplier_id", []string{"supplier_city", "supplier_phone"})
	assert.Equal(t, []string{"supplier_city", "supplier_phone"}, s.DiverseAttrs)
	// Two diverse attrs (0.3) + moderate uniqueness (0.2) + shared semantic
	// token (0.2) + contact attribute (0.3).
	assert.InDelta(t, 1.0, s.Confidence, 1e-9)
	assert.Equal(t, EntityReference, s.EntityType)
	assert.NotEmpty(t, s.Reasons)
}

func TestScoreEntityLowCardinality(t *testing.T) {
	tab := supplierTable(t)

	// Two status values across 36 rows reads as a category, not an entity.
	s := ScoreEntity(tab, "status", []string{"supplier_city"})
	assert.Zero(t, s.Confidence)
	assert.Equal(t, EntityLookup, s.EntityType)
	require.NotEmpty(t, s.Reasons)
	assert.Contains(t, s.Reasons[0], "low cardinality")
}

func TestScoreEntityNoDependents(t *testing.T) {
	tab := supplierTable(t)
	s := ScoreEntity(tab, "supplier_id", nil)
	assert.Zero(t, s.Confidence)
}

func TestScoreEntityNoStableDependencies(t *testing.T) {
	tab := supplierTable(t)
	// row_id varies within every supplier group.
	s := ScoreEntity(tab, "supplier_id", []string{"row_id"})
	assert.Zero(t, s.Confidence)
	assert.Contains(t, s.Reasons[0], "no stable functional dependencies")
}

func TestScoreEntityMasterType(t *testing.T) {
	columns := []string{"row_id", "account_id", "account_tier"}
	tab := table.New("accounts", columns)
	// 20 accounts over 30 rows: uniqueness ratio 0.67, no contact
	// attributes.
	for i := 0; i < 30; i++ {
		a := fmt.Sprintf("a%02d", i%20)
		require.NoError(t, tab.AppendRow([]string{fmt.Sprintf("%d", i+1), a, "tier_" + a}))
	}
	s := ScoreEntity(tab, "account_id", []string{"account_tier"})
	assert.Equal(t, EntityMaster, s.EntityType)
	assert.Positive(t, s.Confidence)
}

func TestRepresentsGenuineEntity(t *testing.T) {
	tab := supplierTable(t)

	assert.True(t, representsGenuineEntity(tab, "supplier_id", []string{"supplier_city", "supplier_phone"}))

	// Low cardinality columns never qualify.
	assert.False(t, representsGenuineEntity(tab, "status", []string{"supplier_city", "supplier_phone", "row_id"}))
}

func TestRepresentsGenuineEntityRejectsSelfDescribingPair(t *testing.T) {
	columns := []string{"order_id", "dept_id", "dept_name"}
	tab := table.New("t", columns)
	for i := 0; i < 40; i++ {
		d := fmt.Sprintf("d%02d", i%15)
		require.NoError(t, tab.AppendRow([]string{fmt.Sprintf("%d", i+1), d, "dept " + d + " name"}))
	}
	// dept_id -> dept_name alone is a code/label pair, not an entity.
	assert.False(t, representsGenuineEntity(tab, "dept_id", []string{"dept_name"}))
}

func TestRepresentsGenuineEntityCategoricalName(t *testing.T) {
	columns := []string{"row_id", "shipment_state", "a", "b", "c"}
	tab := table.New("t", columns)
	for i := 0; i < 40; i++ {
		s := fmt.Sprintf("state%02d", i%20)
		require.NoError(t, tab.AppendRow([]string{
			fmt.Sprintf("%d", i+1), s, "a" + s, "b" + s, "c" + s,
		}))
	}
	// Plenty of unique values and dependents, but the name marks it
	// categorical.
	assert.False(t, representsGenuineEntity(tab, "shipment_state", []string{"a", "b", "c"}))
}

func TestSemanticTokensSkipsGenericWords(t *testing.T) {
	tokens := semanticTokens("customer_id", []string{"customer_name", "customer_email"})
	assert.Contains(t, tokens, "customer")
	assert.Contains(t, tokens, "email")
	assert.NotContains(t, tokens, "id")
	assert.NotContains(t, tokens, "name")
}

package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		column      string
		identity    bool
		confidence  Confidence
		blacklisted bool
	}{
		{"customer_id", true, ConfidenceHigh, false},
		{"ORDER_ID", true, ConfidenceHigh, false},
		{"product_code", true, ConfidenceHigh, false},
		{"sys_id", true, ConfidenceHigh, false},
		{"uuid", true, ConfidenceHigh, false},
		{"id", true, ConfidenceModerate, false},
		{"key", true, ConfidenceModerate, false},
		{"idempotency", true, ConfidenceModerate, false},
		{"email", false, ConfidenceNone, true},
		{"customer_name", false, ConfidenceNone, true},
		{"unit_price", false, ConfidenceNone, true},
		{"order_date", false, ConfidenceNone, true},
		{"city", false, ConfidenceNone, true},
		{"region", false, ConfidenceNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			sig := Classify(tt.column)
			assert.Equal(t, tt.identity, sig.Identity, "identity")
			assert.Equal(t, tt.confidence, sig.Confidence, "confidence")
			assert.Equal(t, tt.blacklisted, sig.Blacklisted, "blacklisted")
			assert.NotEmpty(t, sig.Reason)
		})
	}
}

func TestHighConfidenceOverridesBlacklist(t *testing.T) {
	// "supplier" alone is a blacklisted attribute; "supplier_id" is an
	// identifier and must stay key-eligible.
	assert.False(t, KeyEligible("supplier"))
	assert.True(t, KeyEligible("supplier_id"))
	assert.True(t, KeyEligible("product_code"))
	assert.False(t, KeyEligible("email"))
}

func TestHasIdentifierName(t *testing.T) {
	assert.True(t, HasIdentifierName("customer_id"))
	assert.True(t, HasIdentifierName("orderid"))
	assert.True(t, HasIdentifierName("dept_code"))
	assert.False(t, HasIdentifierName("customer_name"))
	assert.False(t, HasIdentifierName("total"))
}

func TestStripIdentifierSuffix(t *testing.T) {
	assert.Equal(t, "customer", StripIdentifierSuffix("customer_id"))
	assert.Equal(t, "dept", StripIdentifierSuffix("dept_code"))
	assert.Equal(t, "warehouse", StripIdentifierSuffix("Warehouse_Ref"))
	assert.Equal(t, "plain", StripIdentifierSuffix("plain"))
}

func TestSuffixScore(t *testing.T) {
	assert.Equal(t, 15, SuffixScore("customer_id"))
	assert.Equal(t, 10, SuffixScore("api_key"))
	assert.Equal(t, 10, SuffixScore("dept_code"))
	assert.Equal(t, 0, SuffixScore("customer"))
}

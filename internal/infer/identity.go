package infer

import "strings"

// Identity classification is driven by declarative pattern tables rather
// than inline conditionals so the scoring is testable in isolation.

// strongIdentityPatterns match anywhere in a column name and mark the column
// as an unambiguous identifier regardless of prefix.
var strongIdentityPatterns = []string{
	"_id", "_key", "_code", "_ref", "_number", "sys_id", "uuid", "guid",
}

// moderateIdentityWords mark identifier semantics when they appear as whole
// underscore-separated words or at the start/end of the name.
var moderateIdentityWords = []string{"id", "key", "code", "ref", "number"}

// businessBlacklist lists attribute name patterns that must never become
// keys, no matter how unique their values are.
var businessBlacklist = []string{
	// contact
	"email", "phone", "mobile", "fax", "contact",
	// monetary / transactional
	"price", "amount", "cost", "total", "subtotal", "tax", "discount",
	"quantity", "qty", "count", "balance", "payment", "salary", "wage",
	// temporal
	"date", "time", "timestamp", "created", "updated", "modified",
	// descriptive
	"name", "description", "desc", "title", "label", "comment", "note",
	// categorical
	"status", "state", "type", "category", "class", "level", "priority",
	// location
	"address", "street", "city", "zip", "postal", "country",
	// product / item
	"product", "item", "sku", "barcode", "isbn",
	// other non-unique
	"supplier", "vendor", "manufacturer", "brand", "model",
}

// identitySuffixWeights feed the primary-key scoring in key assignment.
var identitySuffixWeights = []struct {
	Suffix string
	Weight int
}{
	{"_id", 15},
	{"_key", 10},
	{"_code", 10},
}

// Confidence grades how unambiguous a column's identity semantics are.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceModerate
	ConfidenceHigh
)

// Signature is the derived key-eligibility classification of a column name.
type Signature struct {
	Identity    bool
	Confidence  Confidence
	Blacklisted bool
	Reason      string
}

// Classify derives the key signature of a column name. High-confidence
// identity patterns override the business blacklist ("product" alone is
// blacklisted, "product_code" is an identifier).
func Classify(column string) Signature {
	lower := strings.ToLower(column)

	sig := Signature{}
	for _, p := range strongIdentityPatterns {
		if strings.Contains(lower, p) {
			sig.Identity = true
			sig.Confidence = ConfidenceHigh
			sig.Reason = "contains identity pattern " + p
			break
		}
	}
	if !sig.Identity {
		parts := strings.Split(lower, "_")
		for _, w := range moderateIdentityWords {
			if containsWord(parts, w) || strings.HasPrefix(lower, w) || strings.HasSuffix(lower, w) {
				sig.Identity = true
				sig.Confidence = ConfidenceModerate
				sig.Reason = "identity word " + w
				break
			}
		}
	}

	if sig.Confidence != ConfidenceHigh {
		for _, p := range businessBlacklist {
			if strings.Contains(lower, p) {
				sig.Blacklisted = true
				if sig.Reason != "" {
					sig.Reason += "; "
				}
				sig.Reason += "blacklisted attribute pattern " + p
				break
			}
		}
	}

	if !sig.Identity && sig.Reason == "" {
		sig.Reason = "no identity semantics"
	}
	return sig
}

// KeyEligible reports whether the column may participate in a candidate key:
// identity semantics present and no blacklist hit.
func KeyEligible(column string) bool {
	sig := Classify(column)
	return sig.Identity && !sig.Blacklisted
}

// HasIdentifierName reports whether a column is named like a reference
// (*_id, *id, *_key, *_code, *_ref), which gates FK candidacy.
func HasIdentifierName(column string) bool {
	lower := strings.ToLower(column)
	return strings.Contains(lower, "_id") || strings.HasSuffix(lower, "id") ||
		strings.Contains(lower, "_key") || strings.Contains(lower, "_code") ||
		strings.Contains(lower, "_ref")
}

// StripIdentifierSuffix removes a trailing identifier suffix from a column
// name, leaving the entity base ("customer_id" -> "customer").
func StripIdentifierSuffix(column string) string {
	lower := strings.ToLower(column)
	for _, s := range []string{"_id", "_key", "_code", "_ref", "_number"} {
		lower = strings.ReplaceAll(lower, s, "")
	}
	return lower
}

// SuffixScore returns the key-assignment weight of a column's identifier
// suffix.
func SuffixScore(column string) int {
	lower := strings.ToLower(column)
	for _, sw := range identitySuffixWeights {
		if strings.HasSuffix(lower, sw.Suffix) {
			return sw.Weight
		}
	}
	return 0
}

func containsWord(parts []string, w string) bool {
	for _, p := range parts {
		if p == w {
			return true
		}
	}
	return false
}

package infer

import (
	"fmt"
	"regexp"
	"strings"

	"tabnorm/internal/table"
)

// EntityScore grades how plausibly an intermediate column names a real-world
// entity worth its own table, rather than a categorical attribute.
type EntityScore struct {
	Confidence   float64
	DiverseAttrs []string
	Reasons      []string
	// EntityType is master, reference, or lookup depending on cardinality
	// and attribute shape.
	EntityType string
}

const (
	EntityMaster    = "master"
	EntityReference = "reference"
	EntityLookup    = "lookup"
)

var entityNameTokens = []string{
	"customer", "client", "user", "person", "employee", "staff",
	"product", "item", "sku", "vendor", "supplier", "partner",
	"account", "company", "organization", "department", "location",
	"warehouse", "store", "branch", "region", "territory",
}

var categoricalNameTokens = []string{
	"status", "state", "type", "category", "flag", "level",
	"priority", "grade", "tier", "stage", "phase", "mode",
}

var contactTokens = []string{
	"email", "phone", "address", "mobile", "fax", "contact",
}

var structuralTokens = []string{
	"email", "phone", "address", "street", "city", "state", "zip",
	"postal", "country", "website", "url", "contact", "fax",
}

var descriptiveTokens = []string{
	"name", "title", "description", "label",
}

// genericNameWords are column-name tokens too common to count as semantic
// evidence of a cohesive entity.
var genericNameWords = map[string]struct{}{
	"id": {}, "code": {}, "name": {}, "desc": {}, "description": {},
	"number": {}, "num": {}, "value": {}, "text": {}, "data": {},
	"info": {}, "type": {}, "status": {},
}

var wordRe = regexp.MustCompile(`[a-z]+`)

// ScoreEntity rates the intermediate column against its dependent columns.
// The score accumulates independent evidence factors; the caller compares it
// against the configured threshold.
func ScoreEntity(t *table.Table, intermediate string, dependents []string) EntityScore {
	s := EntityScore{EntityType: EntityLookup}

	rows := t.RowCount()
	if rows == 0 || len(dependents) == 0 {
		s.Reasons = append(s.Reasons, "no dependent attributes")
		return s
	}
	unique := t.DistinctCount(intermediate)
	ratio := float64(unique) / float64(rows)

	minUnique := rows / 100
	if minUnique < 10 {
		minUnique = 10
	}
	if unique < minUnique || ratio < 0.02 {
		s.Reasons = append(s.Reasons,
			fmt.Sprintf("low cardinality: %d unique (%.1f%%)", unique, ratio*100))
		return s
	}

	// Diverse attributes are those the intermediate strictly determines.
	for _, dep := range dependents {
		if !t.HasColumn(dep) {
			continue
		}
		if IsStrictFD(t, []string{intermediate}, dep) {
			s.DiverseAttrs = append(s.DiverseAttrs, dep)
		}
	}
	if len(s.DiverseAttrs) == 0 {
		s.Reasons = append(s.Reasons, "no stable functional dependencies found")
		return s
	}

	switch {
	case len(s.DiverseAttrs) >= 3:
		s.Confidence += 0.5
	case len(s.DiverseAttrs) == 2:
		s.Confidence += 0.3
	default:
		s.Confidence += 0.1
	}

	// Moderate uniqueness reads as an entity; extremes read as a category
	// or a per-row transaction value.
	if ratio >= 0.05 && ratio <= 0.7 {
		s.Confidence += 0.2
	} else if ratio >= 0.02 && ratio <= 0.9 {
		s.Confidence += 0.1
	}

	if len(semanticTokens(intermediate, s.DiverseAttrs)) >= 1 {
		s.Confidence += 0.2
	}

	hasStructural := containsAnyToken(s.DiverseAttrs, structuralTokens)
	if hasStructural {
		s.Confidence += 0.3
		s.Reasons = append(s.Reasons, "has contact/address attributes")
	}

	s.Reasons = append(s.Reasons,
		fmt.Sprintf("%d diverse attributes", len(s.DiverseAttrs)),
		fmt.Sprintf("cardinality: %d unique (%.1f%%)", unique, ratio*100))

	switch {
	case ratio > 0.5:
		s.EntityType = EntityMaster
	case hasStructural:
		s.EntityType = EntityReference
	default:
		s.EntityType = EntityLookup
	}
	return s
}

// semanticTokens extracts the name words shared by the intermediate and its
// attributes, minus generic filler words.
func semanticTokens(intermediate string, attrs []string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, col := range append([]string{intermediate}, attrs...) {
		for _, w := range wordRe.FindAllString(strings.ToLower(col), -1) {
			if _, generic := genericNameWords[w]; !generic {
				tokens[w] = struct{}{}
			}
		}
	}
	return tokens
}

// representsGenuineEntity is the cheap pre-check applied while scanning for
// transitive chains, before the full score is computed. It rejects
// self-describing pairs (order_id -> order_name), low-cardinality columns,
// and plain categorical attributes.
func representsGenuineEntity(t *table.Table, intermediate string, dependents []string) bool {
	lower := strings.ToLower(intermediate)
	base := StripIdentifierSuffix(intermediate)

	if len(dependents) == 1 && base != "" {
		dep := strings.ToLower(dependents[0])
		for _, tok := range descriptiveTokens {
			if strings.Contains(dep, tok) && strings.Contains(dep, base) {
				return false
			}
		}
	}

	rows := t.RowCount()
	if rows == 0 {
		return false
	}
	unique := t.DistinctCount(intermediate)
	if unique < 10 || float64(unique)/float64(rows) < 0.05 {
		return false
	}

	entityLike := false
	for _, tok := range entityNameTokens {
		if strings.Contains(lower, tok) {
			entityLike = true
			break
		}
	}
	for _, tok := range categoricalNameTokens {
		if strings.Contains(lower, tok) && !entityLike {
			return false
		}
	}

	if entityLike && len(dependents) >= 2 {
		return true
	}
	if containsAnyToken(dependents, contactTokens) {
		return true
	}
	return len(dependents) >= 3
}

func containsAnyToken(columns []string, tokens []string) bool {
	for _, col := range columns {
		lower := strings.ToLower(col)
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				return true
			}
		}
	}
	return false
}

package profile

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tabnorm/internal/table"
)

const (
	defaultSampleCap  = 100
	maxSampleValues   = 5
	multivaluedRatio  = 0.3
	structuredSamples = 50
)

// delimiters ordered by how commonly they separate packed values.
var delimiters = []string{",", ";", "|", "/", ":"}

var (
	arrayLikeRe  = regexp.MustCompile(`^[\[{].*[\]}]$`)
	streetRe     = regexp.MustCompile(`\d+\s+[A-Za-z]+`)
	cityRe       = regexp.MustCompile(`,\s*[A-Z][a-z]+`)
	stateCodeRe  = regexp.MustCompile(`\b[A-Z]{2}\b`)
	zipRe        = regexp.MustCompile(`\b\d{5}(-\d{4})?\b`)
	boolLiterals = map[string]struct{}{
		"true": {}, "false": {}, "0": {}, "1": {}, "t": {}, "f": {},
		"yes": {}, "no": {}, "y": {}, "n": {},
	}
)

var dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006", "02-Jan-2006"}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
}

// Build computes the TableProfile for one table with the default sampling
// bound. Pure and read-only over its input, so profiling different tables
// may run concurrently.
func Build(t *table.Table) *TableProfile {
	return BuildSampled(t, defaultSampleCap)
}

// BuildSampled is Build with an explicit cap on the values probed per
// column for delimiter and structured-field detection.
func BuildSampled(t *table.Table, sampleCap int) *TableProfile {
	if sampleCap <= 0 {
		sampleCap = defaultSampleCap
	}
	p := &TableProfile{
		Table:    t.Name,
		RowCount: t.RowCount(),
		Columns:  make([]ColumnProfile, len(t.Columns)),
		byName:   make(map[string]int, len(t.Columns)),
	}

	for i, name := range t.Columns {
		values := t.Column(name)
		p.Columns[i] = profileColumn(name, values, t.RowCount(), sampleCap)
		p.byName[name] = i
	}
	return p
}

func profileColumn(name string, values []string, rowCount, sampleCap int) ColumnProfile {
	c := ColumnProfile{Name: name}

	distinct := make(map[string]struct{})
	var nonNull []string
	for _, v := range values {
		if table.IsNull(v) {
			c.NullCount++
			continue
		}
		distinct[v] = struct{}{}
		nonNull = append(nonNull, v)
		if len(v) > c.MaxLength {
			c.MaxLength = len(v)
		}
		if len(c.Samples) < maxSampleValues {
			c.Samples = append(c.Samples, v)
		}
	}

	c.DistinctCount = len(distinct)
	if rowCount > 0 {
		c.NullRatio = float64(c.NullCount) / float64(rowCount)
		c.DistinctRatio = float64(c.DistinctCount) / float64(rowCount)
	}

	c.Type = inferType(nonNull)

	// Only text columns can pack multiple values; timestamps and decimals
	// contain delimiter characters as part of a single scalar.
	if c.Type == TypeText {
		c.Delimiter = dominantDelimiter(sample(nonNull, sampleCap))
		c.Multivalued = c.Delimiter != ""
		structCap := structuredSamples
		if sampleCap < structCap {
			structCap = sampleCap
		}
		c.Structured = detectStructured(name, sample(nonNull, structCap))
	}

	return c
}

func sample(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

// inferType picks the narrowest logical type covering every non-null value.
func inferType(values []string) ValueType {
	if len(values) == 0 {
		return TypeText
	}

	allInt, allFloat := true, true
	var maxAbs int64
	for _, v := range values {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			if n < 0 {
				n = -n
			}
			if n > maxAbs {
				maxAbs = n
			}
			continue
		}
		allInt = false
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
			allFloat = false
			break
		}
	}
	if allInt {
		if maxAbs > 2147483647 {
			return TypeBigInt
		}
		return TypeInteger
	}
	if allFloat {
		return TypeDecimal
	}

	if matchesLayouts(values, timestampLayouts) {
		return TypeTimestamp
	}
	if matchesLayouts(values, dateLayouts) {
		return TypeDate
	}

	allBool := true
	for _, v := range values {
		if _, ok := boolLiterals[strings.ToLower(strings.TrimSpace(v))]; !ok {
			allBool = false
			break
		}
	}
	if allBool {
		return TypeBoolean
	}

	return TypeText
}

func matchesLayouts(values []string, layouts []string) bool {
	probe := values
	if len(probe) > defaultSampleCap {
		probe = probe[:defaultSampleCap]
	}
	for _, v := range probe {
		ok := false
		for _, layout := range layouts {
			if _, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// dominantDelimiter returns the delimiter splitting the largest share of
// sampled values, or "" when no delimiter clears the multivalued threshold.
// Array-like values ({...}, [...]) count toward the comma delimiter.
func dominantDelimiter(values []string) string {
	if len(values) == 0 {
		return ""
	}
	threshold := int(float64(len(values)) * multivaluedRatio)

	best, bestCount := "", 0
	for _, d := range delimiters {
		count := 0
		for _, v := range values {
			if strings.Contains(v, d) {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = d, count
		}
	}

	arrayCount := 0
	for _, v := range values {
		if arrayLikeRe.MatchString(strings.TrimSpace(v)) {
			arrayCount++
		}
	}
	if arrayCount > bestCount {
		best, bestCount = ",", arrayCount
	}

	if bestCount <= threshold {
		return ""
	}
	return best
}

func detectStructured(name string, values []string) *StructureHint {
	if len(values) == 0 {
		return nil
	}
	lower := strings.ToLower(name)

	if containsAny(lower, "address", "addr", "location", "street") {
		if hint := detectAddress(values); hint != nil {
			return hint
		}
	}

	if hint := detectJSON(values); hint != nil {
		return hint
	}

	if containsAny(lower, "name", "fullname", "full_name") {
		if hint := detectFullName(values); hint != nil {
			return hint
		}
	}
	return nil
}

func detectAddress(values []string) *StructureHint {
	n := float64(len(values))
	street := float64(countMatching(values, streetRe))
	city := float64(countMatching(values, cityRe))
	state := float64(countMatching(values, stateCodeRe))
	zip := float64(countMatching(values, zipRe))

	hasStreet := street > n*0.5
	hasCity := city > n*0.3
	hasState := state > n*0.3
	hasZip := zip > n*0.3

	if !hasStreet && !(hasCity && (hasState || hasZip)) {
		return nil
	}
	var components []string
	if hasStreet {
		components = append(components, "street")
	}
	if hasCity {
		components = append(components, "city")
	}
	if hasState {
		components = append(components, "state")
	}
	if hasZip {
		components = append(components, "zip_code")
	}
	return &StructureHint{Kind: StructureAddress, Components: components}
}

func detectJSON(values []string) *StructureHint {
	probe := sample(values, 10)
	parsed := 0
	var components []string
	for _, v := range probe {
		var obj map[string]any
		if err := json.Unmarshal([]byte(v), &obj); err == nil {
			parsed++
			if components == nil {
				for k := range obj {
					components = append(components, k)
				}
			}
		}
	}
	if float64(parsed) <= float64(len(probe))*0.7 {
		return nil
	}
	return &StructureHint{Kind: StructureJSON, Components: components}
}

func detectFullName(values []string) *StructureHint {
	total := 0
	for _, v := range values {
		total += strings.Count(strings.TrimSpace(v), " ")
	}
	mean := float64(total) / float64(len(values))
	if mean < 1 || mean > 3 {
		return nil
	}
	components := []string{"first_name", "last_name"}
	if mean > 1.5 {
		components = []string{"first_name", "middle_name", "last_name"}
	}
	return &StructureHint{Kind: StructureFullName, Components: components}
}

func countMatching(values []string, re *regexp.Regexp) int {
	n := 0
	for _, v := range values {
		if re.MatchString(v) {
			n++
		}
	}
	return n
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package infer

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"tabnorm/internal/findings"
	"tabnorm/internal/table"
)

// Config holds the tunable analysis thresholds. The defaults mirror
// heuristics fitted on sampled data; they are parameters, not invariants.
type Config struct {
	// FDTolerance is the minimum fraction of determinant groups with
	// exactly one dependent value for a functional dependency to hold.
	FDTolerance float64
	// MaxKeyArity bounds candidate-key and determinant subset search.
	MaxKeyArity int
	// EntityConfidence is the minimum semantic-entity score at which a
	// transitive dependency's intermediate is materialized as its own table.
	EntityConfidence float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		FDTolerance:      0.99,
		MaxKeyArity:      3,
		EntityConfidence: 0.4,
	}
}

// FD is a discovered functional dependency: Determinant -> Dependent. It
// holds only with respect to the sampled dataset.
type FD struct {
	Determinant []string
	Dependent   string
}

// PartialDependency is an FD whose determinant is a strict subset of a
// composite primary key (a 2NF violation).
type PartialDependency struct {
	Determinant []string
	Dependents  []string
}

// TransitiveDependency is a verified chain PK -> Intermediate -> Dependents
// where the intermediate is non-key (a 3NF violation candidate).
type TransitiveDependency struct {
	PrimaryKey   []string
	Intermediate string
	Dependents   []string
	// Confidence is the semantic-entity score of the intermediate in [0,1].
	Confidence float64
}

// Analysis is the dependency profile of one table.
type Analysis struct {
	Table          string
	RowCount       int
	CandidateKeys  [][]string
	PrimaryKey     []string
	FDs            []FD
	PartialDeps    []PartialDependency
	TransitiveDeps []TransitiveDependency
}

// Analyzer discovers functional dependencies, candidate keys, and 2NF/3NF
// violations within a single table.
type Analyzer struct {
	cfg    Config
	logger *zap.Logger
	log    *findings.Log
}

func NewAnalyzer(cfg Config, logger *zap.Logger, log *findings.Log) *Analyzer {
	return &Analyzer{cfg: cfg, logger: logger.Named("infer"), log: log}
}

// Analyze profiles one table. Read-only over the table, so analyses of
// different tables may run concurrently.
func (a *Analyzer) Analyze(t *table.Table) *Analysis {
	an := &Analysis{Table: t.Name, RowCount: t.RowCount()}

	if t.RowCount() < 2 {
		a.log.Add(findings.DataInsufficiency, t.Name, "",
			"%d rows, need at least 2 for dependency analysis", t.RowCount())
		return an
	}

	an.CandidateKeys = a.findCandidateKeys(t)
	an.PrimaryKey = pickPrimaryKey(an.CandidateKeys)
	an.FDs = a.findFunctionalDependencies(t)

	if len(an.PrimaryKey) > 1 {
		an.PartialDeps = a.findPartialDependencies(t, an.PrimaryKey)
	}
	if len(an.PrimaryKey) > 0 {
		an.TransitiveDeps = a.findTransitiveDependencies(t, an.PrimaryKey)
	}

	a.logger.Debug("analyzed table",
		zap.String("table", t.Name),
		zap.Int("candidate_keys", len(an.CandidateKeys)),
		zap.Strings("primary_key", an.PrimaryKey),
		zap.Int("fds", len(an.FDs)),
		zap.Int("partial_deps", len(an.PartialDeps)),
		zap.Int("transitive_deps", len(an.TransitiveDeps)))

	return an
}

// IsFD tests Determinant -> Dependent with the configured group tolerance:
// grouping rows by the determinant, the dependent must have exactly one
// distinct value in at least FDTolerance of the groups.
func (a *Analyzer) IsFD(t *table.Table, determinant []string, dependent string) bool {
	if t.RowCount() < 2 {
		return false
	}
	groups, constant := groupConstancy(t, determinant, dependent)
	if groups == 0 {
		return false
	}
	return float64(constant)/float64(groups) >= a.cfg.FDTolerance
}

// IsStrictFD tests the dependency with no tolerance: every determinant group
// must have exactly one distinct dependent value.
func IsStrictFD(t *table.Table, determinant []string, dependent string) bool {
	if t.RowCount() < 2 {
		return true
	}
	groups, constant := groupConstancy(t, determinant, dependent)
	return groups == constant
}

// groupConstancy groups rows by the determinant columns and counts how many
// groups have exactly one distinct dependent value.
func groupConstancy(t *table.Table, determinant []string, dependent string) (groups, constant int) {
	byGroup := make(map[string]map[string]struct{})
	for r := 0; r < t.RowCount(); r++ {
		key := t.Key(r, determinant)
		set, ok := byGroup[key]
		if !ok {
			set = make(map[string]struct{}, 1)
			byGroup[key] = set
		}
		set[t.Cell(r, dependent)] = struct{}{}
	}
	for _, set := range byGroup {
		groups++
		if len(set) == 1 {
			constant++
		}
	}
	return groups, constant
}

// findCandidateKeys returns minimal unique identifier column sets, smallest
// arity first. Single identity-gated columns are tried first; composites are
// searched only when no single-column key exists, and the search stops at the
// first arity that yields keys.
func (a *Analyzer) findCandidateKeys(t *table.Table) [][]string {
	var keys [][]string

	for _, col := range t.Columns {
		if !KeyEligible(col) {
			continue
		}
		if isUniqueNonNull(t, col) {
			keys = append(keys, []string{col})
		}
	}
	if len(keys) > 0 {
		return keys
	}

	maxArity := a.cfg.MaxKeyArity
	if maxArity > len(t.Columns) {
		maxArity = len(t.Columns)
	}
	for size := 2; size <= maxArity; size++ {
		for _, combo := range combinations(t.Columns, size) {
			if !hasHighConfidenceIdentity(combo) {
				continue
			}
			if isUniqueProjection(t, combo) {
				keys = append(keys, combo)
				if len(keys) >= 3 {
					break
				}
			}
		}
		if len(keys) > 0 {
			break
		}
	}
	return keys
}

func hasHighConfidenceIdentity(columns []string) bool {
	for _, c := range columns {
		if Classify(c).Confidence == ConfidenceHigh {
			return true
		}
	}
	return false
}

func isUniqueNonNull(t *table.Table, column string) bool {
	seen := make(map[string]struct{}, t.RowCount())
	for r := 0; r < t.RowCount(); r++ {
		v := t.Cell(r, column)
		if table.IsNull(v) {
			return false
		}
		if _, dup := seen[v]; dup {
			return false
		}
		seen[v] = struct{}{}
	}
	return true
}

func isUniqueProjection(t *table.Table, columns []string) bool {
	seen := make(map[string]struct{}, t.RowCount())
	for r := 0; r < t.RowCount(); r++ {
		key := t.Key(r, columns)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
	}
	return true
}

// pickPrimaryKey selects the smallest candidate key, breaking arity ties by
// identity-confidence and suffix score.
func pickPrimaryKey(keys [][]string) []string {
	if len(keys) == 0 {
		return nil
	}
	best := keys[0]
	bestScore := keyScore(best)
	for _, k := range keys[1:] {
		s := keyScore(k)
		if len(k) < len(best) || (len(k) == len(best) && s > bestScore) {
			best, bestScore = k, s
		}
	}
	return best
}

func keyScore(key []string) int {
	score := 0
	for _, c := range key {
		switch Classify(c).Confidence {
		case ConfidenceHigh:
			score += 20
		case ConfidenceModerate:
			score += 10
		}
		score += SuffixScore(c)
	}
	return score
}

// findFunctionalDependencies discovers single-column FDs between every
// ordered column pair, plus composite determinants that uniquely identify
// rows (candidate-key-shaped FDs) up to the arity bound.
func (a *Analyzer) findFunctionalDependencies(t *table.Table) []FD {
	var fds []FD

	for _, det := range t.Columns {
		for _, dep := range t.Columns {
			if det == dep {
				continue
			}
			if a.IsFD(t, []string{det}, dep) {
				fds = append(fds, FD{Determinant: []string{det}, Dependent: dep})
			}
		}
	}

	if t.RowCount() > 1 && len(t.Columns) > 2 {
		maxArity := a.cfg.MaxKeyArity
		if maxArity > len(t.Columns)-1 {
			maxArity = len(t.Columns) - 1
		}
		for size := 2; size <= maxArity; size++ {
			for _, combo := range combinations(t.Columns, size) {
				if !isUniqueProjection(t, combo) {
					continue
				}
				inCombo := make(map[string]struct{}, len(combo))
				for _, c := range combo {
					inCombo[c] = struct{}{}
				}
				for _, dep := range t.Columns {
					if _, ok := inCombo[dep]; ok {
						continue
					}
					fds = append(fds, FD{Determinant: combo, Dependent: dep})
				}
			}
		}
	}
	return fds
}

// findPartialDependencies tests every strict subset of the composite primary
// key against every non-key column.
func (a *Analyzer) findPartialDependencies(t *table.Table, pk []string) []PartialDependency {
	inPK := make(map[string]struct{}, len(pk))
	for _, c := range pk {
		inPK[c] = struct{}{}
	}
	var nonKey []string
	for _, c := range t.Columns {
		if _, ok := inPK[c]; !ok {
			nonKey = append(nonKey, c)
		}
	}

	byDeterminant := make(map[string]*PartialDependency)
	var order []string
	for size := 1; size < len(pk); size++ {
		for _, subset := range combinations(pk, size) {
			key := joinCols(subset)
			for _, col := range nonKey {
				if !a.IsFD(t, subset, col) {
					continue
				}
				pd, ok := byDeterminant[key]
				if !ok {
					pd = &PartialDependency{Determinant: subset}
					byDeterminant[key] = pd
					order = append(order, key)
				}
				pd.Dependents = append(pd.Dependents, col)
			}
		}
	}

	out := make([]PartialDependency, 0, len(order))
	for _, key := range order {
		out = append(out, *byDeterminant[key])
	}
	return out
}

// findTransitiveDependencies discovers chains PK -> intermediate -> targets
// where the intermediate is a non-key column judged to represent a genuine
// entity. One dependency is recorded per intermediate.
func (a *Analyzer) findTransitiveDependencies(t *table.Table, pk []string) []TransitiveDependency {
	inPK := make(map[string]struct{}, len(pk))
	for _, c := range pk {
		inPK[c] = struct{}{}
	}
	var nonKey []string
	for _, c := range t.Columns {
		if _, ok := inPK[c]; !ok {
			nonKey = append(nonKey, c)
		}
	}

	var pkDependent []string
	for _, col := range nonKey {
		if a.IsFD(t, pk, col) {
			pkDependent = append(pkDependent, col)
		}
	}

	var deps []TransitiveDependency
	for _, intermediate := range pkDependent {
		if !intermediateReused(t, pk, intermediate) {
			// 1:1 with the key on this data; treating it as an entity
			// would split every row into its own dimension row.
			continue
		}

		var dependents []string
		for _, target := range nonKey {
			if target == intermediate {
				continue
			}
			if a.IsFD(t, []string{intermediate}, target) {
				dependents = append(dependents, target)
			}
		}
		if len(dependents) == 0 {
			continue
		}
		if !representsGenuineEntity(t, intermediate, dependents) {
			score := ScoreEntity(t, intermediate, dependents)
			a.log.Add(findings.LowConfidence, t.Name, intermediate,
				"kept in place: %s", strings.Join(score.Reasons, "; "))
			continue
		}

		score := ScoreEntity(t, intermediate, dependents)
		deps = append(deps, TransitiveDependency{
			PrimaryKey:   append([]string(nil), pk...),
			Intermediate: intermediate,
			Dependents:   dependents,
			Confidence:   score.Confidence,
		})
	}
	return deps
}

// intermediateReused reports whether the intermediate column's values repeat
// across distinct key values, or have materially lower cardinality than the
// key. Either is evidence of a reusable entity rather than a per-row value.
func intermediateReused(t *table.Table, pk []string, intermediate string) bool {
	if maxKeysPerValue(t, intermediate, pk) > 1 {
		return true
	}
	return float64(t.DistinctCount(intermediate)) < float64(distinctProjection(t, pk))*0.9
}

// VerifyChain confirms a true transitive chain on the data: the key strictly
// determines the intermediate, the intermediate strictly determines at least
// one target, and either the intermediate value is reused across distinct
// key values or its cardinality is materially lower than the key's.
func VerifyChain(t *table.Table, pk []string, intermediate string, targets []string) bool {
	if t.RowCount() < 2 {
		return false
	}
	for _, c := range pk {
		if !t.HasColumn(c) {
			return false
		}
	}
	if !t.HasColumn(intermediate) {
		return false
	}
	if !IsStrictFD(t, pk, intermediate) {
		return false
	}

	for _, target := range targets {
		if !t.HasColumn(target) {
			continue
		}
		if !IsStrictFD(t, []string{intermediate}, target) {
			continue
		}
		if maxKeysPerValue(t, intermediate, pk) > 1 {
			return true
		}
		interUnique := t.DistinctCount(intermediate)
		pkUnique := distinctProjection(t, pk)
		if float64(interUnique) < float64(pkUnique)*0.9 {
			return true
		}
	}
	return false
}

func maxKeysPerValue(t *table.Table, column string, pk []string) int {
	keysPer := make(map[string]map[string]struct{})
	for r := 0; r < t.RowCount(); r++ {
		v := t.Cell(r, column)
		set, ok := keysPer[v]
		if !ok {
			set = make(map[string]struct{}, 1)
			keysPer[v] = set
		}
		set[t.Key(r, pk)] = struct{}{}
	}
	max := 0
	for _, set := range keysPer {
		if len(set) > max {
			max = len(set)
		}
	}
	return max
}

func distinctProjection(t *table.Table, columns []string) int {
	seen := make(map[string]struct{}, t.RowCount())
	for r := 0; r < t.RowCount(); r++ {
		seen[t.Key(r, columns)] = struct{}{}
	}
	return len(seen)
}

// combinations returns all size-k ordered subsets of items, preserving the
// original element order within each subset.
func combinations(items []string, k int) [][]string {
	var out [][]string
	n := len(items)
	if k <= 0 || k > n {
		return out
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		combo := make([]string, k)
		for i, j := range idx {
			combo[i] = items[j]
		}
		out = append(out, combo)

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			break
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
	return out
}

func joinCols(columns []string) string {
	sorted := append([]string(nil), columns...)
	sort.Strings(sorted)
	out := ""
	for i, c := range sorted {
		if i > 0 {
			out += "+"
		}
		out += c
	}
	return out
}

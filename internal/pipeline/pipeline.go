// Package pipeline orchestrates the normalization stages: load, profile,
// dependency analysis, relationship resolution, decomposition, validation,
// and DDL generation.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tabnorm/internal/config"
	"tabnorm/internal/ddl"
	"tabnorm/internal/findings"
	"tabnorm/internal/graph"
	"tabnorm/internal/infer"
	"tabnorm/internal/load"
	"tabnorm/internal/normalize"
	"tabnorm/internal/profile"
	"tabnorm/internal/relation"
	"tabnorm/internal/table"
	"tabnorm/internal/validate"
)

// Result carries the artifacts of a pipeline run. Analyze stops after
// relationship resolution; Run fills in the normalized schema, validation
// report, and DDL script as well.
type Result struct {
	RunID    string
	Tables   map[string]*table.Table
	Profiles map[string]*profile.TableProfile
	Analyses map[string]*infer.Analysis
	Graph    *graph.Graph
	Schema   *normalize.Schema
	Report   *validate.Report
	Script   *ddl.Script
	Findings []findings.Finding
}

// Pipeline wires the stages together with a shared findings log.
type Pipeline struct {
	cfg    *config.Config
	logger *zap.Logger
	log    *findings.Log
}

func New(cfg *config.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger, log: findings.NewLog()}
}

func (p *Pipeline) inferConfig() infer.Config {
	return infer.Config{
		FDTolerance:      p.cfg.Thresholds.FDTolerance,
		MaxKeyArity:      p.cfg.Thresholds.MaxKeyArity,
		EntityConfidence: p.cfg.Thresholds.EntityConfidence,
	}
}

// Analyze loads the input tables and runs profiling, dependency analysis,
// and FK resolution. Per-table profiling and analysis run concurrently;
// resolution is single-threaded since it owns the graph.
func (p *Pipeline) Analyze(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))

	loader := load.New(logger)
	tables, err := loader.LoadDir(p.cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}
	for name := range p.cfg.ExcludeSet() {
		delete(tables, name)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables found in %s", p.cfg.Input)
	}

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	res := &Result{
		RunID:    runID,
		Tables:   tables,
		Profiles: make(map[string]*profile.TableProfile, len(tables)),
		Analyses: make(map[string]*infer.Analysis, len(tables)),
	}

	analyzer := infer.NewAnalyzer(p.inferConfig(), logger, p.log)

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		t := tables[name]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			prof := profile.BuildSampled(t, p.cfg.Thresholds.SampleSize)
			an := analyzer.Analyze(t)
			mu.Lock()
			res.Profiles[t.Name] = prof
			res.Analyses[t.Name] = an
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	keys := make(map[string][]string, len(tables))
	for name, an := range res.Analyses {
		keys[name] = an.PrimaryKey
	}
	res.Graph = relation.NewResolver(logger, p.log).Resolve(tables, keys)

	res.Findings = p.log.Items()
	return res, nil
}

// Run executes the full pipeline: Analyze, then decomposition, validation,
// and DDL generation.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res, err := p.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	logger := p.logger.With(zap.String("run_id", res.RunID))

	decomposer := normalize.NewDecomposer(p.inferConfig(), logger, p.log)
	schema, err := decomposer.Decompose(res.Tables, res.Profiles, res.Analyses, res.Graph)
	if err != nil {
		return nil, err
	}
	res.Schema = schema

	validator := validate.New(logger, p.log, p.cfg.Thresholds.FKCoverage)
	res.Report = validator.Validate(schema)

	dialect, err := ddl.ForName(p.cfg.Dialect)
	if err != nil {
		return nil, err
	}
	res.Script = ddl.NewGenerator(dialect, logger).Generate(schema)

	res.Findings = p.log.Items()
	return res, nil
}

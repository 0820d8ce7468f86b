// Package generator runs the batch pipeline: design documents are loaded and
// checked against their schema, synthesized, written as Verilog modules that
// keep their hand-written implementation, and the combined netlist facts are
// evaluated against the policy rules.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/hdlgen/internal/config"
	"github.com/robert-at-pretension-io/hdlgen/internal/design"
	"github.com/robert-at-pretension-io/hdlgen/internal/errors"
	"github.com/robert-at-pretension-io/hdlgen/internal/facts"
	"github.com/robert-at-pretension-io/hdlgen/internal/policy"
	"github.com/robert-at-pretension-io/hdlgen/internal/synth"
	"github.com/robert-at-pretension-io/hdlgen/internal/validator"
	"github.com/robert-at-pretension-io/hdlgen/internal/writer"
)

// Design statuses
const (
	StatusGenerated = "generated"
	StatusUnchanged = "unchanged"
	StatusCached    = "cached"
	StatusFailed    = "failed"
)

// Generator turns design documents into Verilog files
type Generator struct {
	// Configuration loaded from hdlgen.json / hdlgen.toml
	Config *config.Config

	// PolicyDirs hold extra .rego modules evaluated with the built-in rules
	PolicyDirs []string

	// Timing output (JSONL)
	Timing     bool
	TimingPath string

	// Now stamps file headers when output.timestamp is set
	Now func() time.Time
}

// DesignResult is the outcome for one design document
type DesignResult struct {
	Source    string `json:"source"`
	Design    string `json:"design,omitempty"`
	Output    string `json:"output,omitempty"`
	Status    string `json:"status"`
	Preserved bool   `json:"preserved"`
	Signals   int    `json:"signals"`
	Instances int    `json:"instances"`
	Error     string `json:"error,omitempty"`
}

// Result is the structured result of a run.
// This can be serialized to JSON for programmatic consumption.
type Result struct {
	Designs    []DesignResult     `json:"designs"`
	Violations []policy.Violation `json:"violations"`
	Summary    Summary            `json:"summary"`

	// Tables are the fact tables the policies were evaluated on
	Tables facts.Tables `json:"-"`
}

// Summary provides aggregate counts
type Summary struct {
	Designs         int `json:"designs"`
	Generated       int `json:"generated"`
	Unchanged       int `json:"unchanged"`
	Cached          int `json:"cached"`
	Failed          int `json:"failed"`
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// New creates a generator that loads its config on Run
func New() *Generator {
	return &Generator{Now: time.Now}
}

// NewWithConfig creates a generator with a preloaded config
func NewWithConfig(cfg *config.Config) *Generator {
	g := New()
	g.Config = cfg
	return g
}

// job carries one design through the pipeline
type job struct {
	res        DesignResult
	tables     facts.Tables
	content    []byte
	designHash string
	err        error
}

// Run generates every design document under rootPath, or only files when
// given. Design failures do not stop the batch; they are returned together
// after the remaining designs were written and checked.
func (g *Generator) Run(ctx context.Context, rootPath string, files ...string) (*Result, error) {
	runStart := time.Now()
	pipelineErrs := make([]error, 0)
	recordPipelineErr := func(err error) {
		pipelineErrs = append(pipelineErrs, err)
	}
	timing := newTimingRecorder(runStart, g.resolveTimingPath(rootPath))
	if err := timing.Err(); err != nil {
		recordPipelineErr(fmt.Errorf("timing output disabled: %w", err))
	}
	defer timing.Close()

	if g.Config == nil {
		cfg, err := config.Load(rootPath)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "load config")
		}
		g.Config = cfg
	}
	cfg := g.Config

	// 1. Find design documents
	stepStart := time.Now()
	if len(files) == 0 {
		found, err := cfg.ResolveSources(rootPath)
		if err != nil {
			return nil, fmt.Errorf("scanning designs: %w", err)
		}
		files = found
	}
	var filtered []string
	for _, f := range files {
		if !cfg.ShouldIgnoreFile(f) {
			filtered = append(filtered, f)
		}
	}
	files = filtered
	Logger().Debug("designs found", zap.Int("count", len(files)))
	timing.RecordStage("scan", stepStart, "")

	// 2. Cache and contracts
	cfgHash, err := configHash(cfg)
	if err != nil {
		return nil, err
	}
	var cache *genCache
	if cfg.CacheEnabled() {
		cache = newGenCache(cfg.CacheDir(rootPath))
		if err := cache.Load(); err != nil {
			recordPipelineErr(fmt.Errorf("cache disabled: %w", err))
			cache = nil
		}
	}
	designValidator, err := validator.New()
	if err != nil {
		return nil, fmt.Errorf("CRITICAL: failed to initialize design validator: %w", err)
	}

	// 3. Load, synthesize and render in parallel
	stepStart = time.Now()
	jobs := make([]job, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.maxParallel())
	for i, file := range files {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			designStart := time.Now()
			j := g.prepare(rootPath, file, designValidator, cache, cfgHash)
			jobs[i] = j
			timing.RecordDesign("prepare", file, j.res.Status, designStart)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	timing.RecordStage("prepare", stepStart, "")

	// 4. Write
	stepStart = time.Now()
	claimed := make(map[string]string)
	for i := range jobs {
		j := &jobs[i]
		if j.err == nil && j.res.Output != "" {
			if other, ok := claimed[j.res.Output]; ok {
				j.err = errors.New(errors.PhaseWrite, errors.KindInvalidInput).Path(j.res.Source).
					Detail("output %s is also generated from %s", j.res.Output, other).Build()
			} else {
				claimed[j.res.Output] = j.res.Source
			}
		}
		if j.err == nil && j.content != nil {
			if err := writeFileAtomic(j.res.Output, j.content); err != nil {
				j.err = errors.New(errors.PhaseWrite, errors.KindIO).Path(j.res.Output).Cause(err).Build()
			}
		}
		if j.err != nil {
			j.res.Status = StatusFailed
			j.res.Error = j.err.Error()
			Logger().Warn("design failed", zap.String("design", j.res.Source), zap.Error(j.err))
			recordPipelineErr(j.err)
			continue
		}
		if cache != nil && j.res.Status != StatusCached {
			g.remember(cache, j, cfgHash, recordPipelineErr)
		}
	}
	if cache != nil {
		if err := cache.Save(); err != nil {
			recordPipelineErr(fmt.Errorf("cache save failed: %w", err))
		}
	}
	timing.RecordStage("write", stepStart, "")

	result := &Result{Designs: make([]DesignResult, 0, len(jobs)), Violations: []policy.Violation{}}
	var parts []facts.Tables
	for _, j := range jobs {
		result.Designs = append(result.Designs, j.res)
		if j.err == nil {
			parts = append(parts, j.tables)
		}
	}
	result.Tables = facts.Merge(parts...)

	// 5. Validate fact tables, then evaluate policies
	stepStart = time.Now()
	factsValidator, err := validator.NewFactsValidator()
	if err != nil {
		return nil, fmt.Errorf("CRITICAL: failed to initialize facts validator: %w", err)
	}
	if err := factsValidator.Validate(result.Tables); err != nil {
		return nil, fmt.Errorf("CRITICAL: fact table contract violation: %w", err)
	}
	timing.RecordStage("facts_validate", stepStart, "")

	stepStart = time.Now()
	engine, err := policy.New(cfg, g.PolicyDirs...)
	if err != nil {
		return nil, errors.Wrap(errors.PhasePolicy, errors.KindInvalidInput, err, "initialize policy engine")
	}
	policyResult, err := engine.Evaluate(ctx, result.Tables)
	if err != nil {
		return nil, errors.Wrap(errors.PhasePolicy, errors.KindInvalidInput, err, "policy evaluation failed")
	}
	result.Violations = policyResult.Violations
	timing.RecordStage("policy", stepStart, "")

	result.Summary = summarize(result.Designs, policyResult.Summary)
	timing.RecordStage("total", runStart, "")
	Logger().Debug("run finished",
		zap.Int("designs", result.Summary.Designs),
		zap.Int("generated", result.Summary.Generated),
		zap.Duration("elapsed", time.Since(runStart)))

	if len(pipelineErrs) > 0 {
		return result, fmt.Errorf("pipeline errors:\n%s", formatPipelineErrors(pipelineErrs))
	}
	return result, nil
}

// prepare loads one design document and renders its module, or picks the
// previous run from the cache
func (g *Generator) prepare(rootPath, file string, v *validator.Validator, cache *genCache, cfgHash string) job {
	j := job{res: DesignResult{Source: file}}

	designHash, err := hashFile(file)
	if err != nil {
		j.err = errors.New(errors.PhaseLoad, errors.KindIO).Path(file).Cause(err).Build()
		return j
	}
	j.designHash = designHash

	if cache != nil {
		entry, tables, ok, err := cache.Get(file, designHash, cfgHash)
		if err != nil {
			Logger().Debug("cache read failed", zap.String("design", file), zap.Error(err))
		}
		if ok {
			j.res.Status = StatusCached
			j.res.Output = entry.OutputPath
			j.tables = tables
			j.res.Signals = len(tables.Signals)
			j.res.Instances = len(tables.Instances)
			if len(tables.Designs) > 0 {
				j.res.Design = tables.Designs[0].Design
			}
			return j
		}
	}

	d, err := g.load(file, v)
	if err != nil {
		j.err = err
		return j
	}

	n := synth.Synthesize(d)
	out := g.outputPath(rootPath, d)
	j.res.Design = facts.DesignKey(n)
	j.res.Output = out
	j.res.Signals = len(n.Signals)
	j.res.Instances = len(n.Instances)
	j.tables = facts.BuildTables(n)

	prior, err := os.ReadFile(out)
	if err != nil && !os.IsNotExist(err) {
		j.err = errors.New(errors.PhaseWrite, errors.KindIO).Path(out).Cause(err).Build()
		return j
	}

	content, preserved := render(n, prior, g.header(rootPath, d, out))
	j.res.Preserved = preserved
	if bytes.Equal(content, prior) {
		j.res.Status = StatusUnchanged
	} else {
		j.res.Status = StatusGenerated
		j.content = content
	}
	Logger().Debug("design rendered",
		zap.String("design", file),
		zap.String("output", out),
		zap.String("status", j.res.Status),
		zap.Bool("preserved", preserved),
		zap.Int("diagnostics", len(n.Diagnostics)))
	return j
}

// load reads a design document and checks it against the #Design contract
// before decoding
func (g *Generator) load(file string, v *validator.Validator) (*design.Design, error) {
	data, err := design.ReadJSON(file)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindIO).Path(file).Cause(err).Build()
	}
	if err := v.ValidateJSON(data); err != nil {
		return nil, errors.New(errors.PhaseValidate, errors.KindSchema).Path(file).Cause(err).Build()
	}
	d, err := design.Decode(data)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).Path(file).Cause(err).Build()
	}
	d.Source = file
	if err := d.Check(); err != nil {
		return nil, err
	}
	return d, nil
}

func (g *Generator) remember(cache *genCache, j *job, cfgHash string, recordPipelineErr func(error)) {
	outputHash, err := hashFile(j.res.Output)
	if err != nil {
		recordPipelineErr(fmt.Errorf("cache write failed for %s: %w", j.res.Source, err))
		return
	}
	entry := cacheEntry{
		DesignHash: j.designHash,
		ConfigHash: cfgHash,
		OutputPath: j.res.Output,
		OutputHash: outputHash,
	}
	if err := cache.Put(j.res.Source, entry, j.tables); err != nil {
		recordPipelineErr(fmt.Errorf("cache write failed for %s: %w", j.res.Source, err))
	}
}

// outputPath is the design's own output path, else <output.dir>/<top>.v;
// relative paths are taken from rootPath
func (g *Generator) outputPath(rootPath string, d *design.Design) string {
	path := d.Output
	if path == "" {
		path = filepath.Join(g.Config.Output.Dir, d.Top.Name+".v")
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootPath, path)
}

func (g *Generator) header(rootPath string, d *design.Design, out string) writer.Header {
	h := writer.Header{
		File:        filepath.Base(out),
		Description: d.Description,
		Author:      g.Config.Output.Author,
		VLNV:        d.Top.VLNV,
		DesignPath:  relPath(rootPath, d.Source),
	}
	if h.Description == "" {
		h.Description = d.Top.Description
	}
	if g.Config.Output.Timestamp && g.Now != nil {
		h.Time = g.Now()
	}
	return h
}

func (g *Generator) maxParallel() int {
	if g.Config.Analysis.MaxParallel > 0 {
		return g.Config.Analysis.MaxParallel
	}
	return runtime.NumCPU()
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

func summarize(designs []DesignResult, ps policy.Summary) Summary {
	s := Summary{
		Designs:         len(designs),
		TotalViolations: ps.TotalViolations,
		Errors:          ps.Errors,
		Warnings:        ps.Warnings,
		Info:            ps.Info,
	}
	for _, d := range designs {
		switch d.Status {
		case StatusGenerated:
			s.Generated++
		case StatusUnchanged:
			s.Unchanged++
		case StatusCached:
			s.Cached++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

func formatPipelineErrors(errs []error) string {
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(err.Error())
	}
	return b.String()
}

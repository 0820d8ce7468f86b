package policy

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/rego"
	"go.uber.org/zap"

	"github.com/robert-at-pretension-io/hdlgen/internal/config"
	"github.com/robert-at-pretension-io/hdlgen/internal/facts"
)

//go:embed netlist.rego
var netlistRego string

const (
	queryViolations = "data.hdlgen.netlist.all_violations"
	querySummary    = "data.hdlgen.netlist.summary"
)

// DefaultSeverities is the severity of every built-in rule
var DefaultSeverities = map[string]string{
	"missing_physical_port": "error",
	"width_mismatch":        "warning",
	"multiple_bindings":     "warning",
	"unconnected_input":     "warning",
	"undriven_signal":       "warning",
	"multiple_drivers":      "error",
	"dangling_endpoint":     "info",
	"unknown_interface":     "warning",
}

// Engine evaluates OPA policies against netlist facts
type Engine struct {
	queries    map[string]rego.PreparedEvalQuery
	severities map[string]string
}

// Violation represents a policy violation
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Design   string `json:"design"`
	Instance string `json:"instance,omitempty"`
	Port     string `json:"port,omitempty"`
	Signal   string `json:"signal,omitempty"`
	Message  string `json:"message"`
}

// Result contains the evaluation results
type Result struct {
	Violations []Violation `json:"violations"`
	Summary    Summary     `json:"summary"`
}

// Summary provides aggregate counts
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// Input is the data structure passed to OPA
type Input struct {
	facts.Tables
	Severities map[string]string `json:"severities"`
}

// New creates a policy engine from the embedded netlist rules plus every
// .rego file in policyDirs. Extra modules join the rule set by adding to
// data.hdlgen.netlist.violations. Severities come from cfg, falling back to
// DefaultSeverities; cfg may be nil.
func New(cfg *config.Config, policyDirs ...string) (*Engine, error) {
	engine := &Engine{
		queries:    make(map[string]rego.PreparedEvalQuery),
		severities: make(map[string]string, len(DefaultSeverities)),
	}

	for rule, sev := range DefaultSeverities {
		if cfg != nil {
			sev = cfg.GetRuleSeverity(rule, sev)
		}
		engine.severities[rule] = sev
	}
	if cfg != nil {
		for rule, sev := range cfg.Policy.Rules {
			if _, ok := engine.severities[rule]; !ok {
				engine.severities[rule] = sev
			}
		}
	}

	modules := []func(*rego.Rego){rego.Module("netlist.rego", netlistRego)}
	for _, dir := range policyDirs {
		files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
		if err != nil {
			return nil, fmt.Errorf("finding policy files: %w", err)
		}
		for _, f := range files {
			content, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", f, err)
			}
			modules = append(modules, rego.Module(f, string(content)))
			Logger().Debug("loaded policy module", zap.String("file", f))
		}
	}

	for name, q := range map[string]string{"violations": queryViolations, "summary": querySummary} {
		opts := append(append([]func(*rego.Rego){}, modules...), rego.Query(q))
		query, err := rego.New(opts...).PrepareForEval(context.Background())
		if err != nil {
			return nil, fmt.Errorf("preparing %s query: %w", name, err)
		}
		engine.queries[name] = query
	}

	return engine, nil
}

// Severities returns the effective severity of every known rule
func (e *Engine) Severities() map[string]string {
	out := make(map[string]string, len(e.severities))
	for k, v := range e.severities {
		out[k] = v
	}
	return out
}

// Evaluate runs the policies against the fact tables
func (e *Engine) Evaluate(ctx context.Context, tables facts.Tables) (*Result, error) {
	inputMap, err := structToMap(Input{Tables: tables, Severities: e.severities})
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	result := &Result{Violations: []Violation{}}

	rs, err := e.queries["violations"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}

	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if violations, ok := rs[0].Expressions[0].Value.([]interface{}); ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				result.Violations = append(result.Violations, Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					Design:   getString(vmap, "design"),
					Instance: getString(vmap, "instance"),
					Port:     getString(vmap, "port"),
					Signal:   getString(vmap, "signal"),
					Message:  getString(vmap, "message"),
				})
			}
		}
	}
	sortViolations(result.Violations)

	rs, err = e.queries["summary"].Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating summary: %w", err)
	}

	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		if smap, ok := rs[0].Expressions[0].Value.(map[string]interface{}); ok {
			result.Summary = Summary{
				TotalViolations: getInt(smap, "total_violations"),
				Errors:          getInt(smap, "errors"),
				Warnings:        getInt(smap, "warnings"),
				Info:            getInt(smap, "info"),
			}
		}
	}

	Logger().Debug("policy evaluated",
		zap.Int("violations", result.Summary.TotalViolations),
		zap.Int("errors", result.Summary.Errors))

	return result, nil
}

func sortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.Design != b.Design {
			return a.Design < b.Design
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.Instance != b.Instance {
			return a.Instance < b.Instance
		}
		if a.Port != b.Port {
			return a.Port < b.Port
		}
		return a.Signal < b.Signal
	})
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	switch n := m[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}

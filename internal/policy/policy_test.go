package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/robert-at-pretension-io/hdlgen/internal/config"
	"github.com/robert-at-pretension-io/hdlgen/internal/design"
	"github.com/robert-at-pretension-io/hdlgen/internal/facts"
	"github.com/robert-at-pretension-io/hdlgen/internal/synth"
)

func tablesFor(t *testing.T, d *design.Design) facts.Tables {
	t.Helper()
	return facts.BuildTables(synth.Synthesize(d))
}

func evaluate(t *testing.T, cfg *config.Config, tables facts.Tables, dirs ...string) *Result {
	t.Helper()
	engine, err := New(cfg, dirs...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := engine.Evaluate(context.Background(), tables)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return result
}

func rules(result *Result) map[string]int {
	out := make(map[string]int)
	for _, v := range result.Violations {
		out[v.Rule]++
	}
	return out
}

// driverDesign connects two outputs and one input on the same ad-hoc net and
// leaves an input and a two-input net undriven
func driverDesign() *design.Design {
	src := design.Component{
		Name:  "src",
		Ports: []design.Port{{Name: "q", Direction: design.DirOut}, {Name: "en", Direction: design.DirIn}},
	}
	dst := design.Component{
		Name:  "dst",
		Ports: []design.Port{{Name: "d", Direction: design.DirIn}, {Name: "e", Direction: design.DirIn}},
	}
	return &design.Design{
		Name:       "drivers",
		Top:        design.Component{Name: "top"},
		Components: []design.Component{src, dst},
		Instances: []design.Instance{
			{Name: "s1", Component: "src"},
			{Name: "s2", Component: "src"},
			{Name: "d1", Component: "dst"},
		},
		Connections: []design.Connection{
			{Type: design.TypeAdHoc, Name: "bus", Endpoints: []design.Endpoint{
				{Instance: "s1", Port: "q"}, {Instance: "s2", Port: "q"}, {Instance: "d1", Port: "d"},
			}},
			{Type: design.TypeAdHoc, Name: "floating", Endpoints: []design.Endpoint{
				{Instance: "d1", Port: "e"}, {Instance: "s1", Port: "en"},
			}},
			{Type: design.TypeAdHoc, Name: "ghost", Endpoints: []design.Endpoint{
				{Instance: "nobody", Port: "x"}, {Instance: "s2", Port: "en"},
			}},
		},
	}
}

func TestNetlistRules(t *testing.T) {
	result := evaluate(t, nil, tablesFor(t, driverDesign()))
	got := rules(result)

	want := map[string]int{
		"multiple_drivers":  1, // bus
		"undriven_signal":   1, // floating
		"unconnected_input": 1, // s2.en
		"dangling_endpoint": 1, // nobody
	}
	for rule, n := range want {
		if got[rule] != n {
			t.Errorf("rule %s fired %d times, want %d (all: %v)", rule, got[rule], n, got)
		}
	}

	for _, v := range result.Violations {
		if v.Rule == "multiple_drivers" && v.Message != "signal bus is driven by s1.q, s2.q" {
			t.Errorf("multiple_drivers message = %q", v.Message)
		}
		if v.Design != "drivers" {
			t.Errorf("violation design = %q", v.Design)
		}
	}

	if result.Summary.TotalViolations != len(result.Violations) {
		t.Errorf("summary total %d, violations %d", result.Summary.TotalViolations, len(result.Violations))
	}
	if result.Summary.Errors != 1 || result.Summary.Info != 1 || result.Summary.Warnings != 2 {
		t.Errorf("summary = %+v", result.Summary)
	}
}

func TestDiagnosticRules(t *testing.T) {
	comp := design.Component{
		Name:  "ip",
		Ports: []design.Port{{Name: "d", Direction: design.DirIn, Left: "7", Right: "0"}},
		Interfaces: []design.Interface{{Name: "bus", PortMaps: []design.PortMap{
			{Logical: design.LogicalPort{Name: "DATA", Range: &design.Range{Left: "3", Right: "0"}}, Physical: design.PhysicalPort{Name: "d"}},
			{Logical: design.LogicalPort{Name: "VALID"}, Physical: design.PhysicalPort{Name: "valid"}},
		}}},
	}
	d := &design.Design{
		Top:        design.Component{Name: "top"},
		Components: []design.Component{comp},
		Instances:  []design.Instance{{Name: "u", Component: "ip"}, {Name: "v", Component: "ip"}},
		Connections: []design.Connection{
			{Type: design.TypeInterface, Endpoints: []design.Endpoint{{Instance: "u", Interface: "nope"}, {Instance: "v", Interface: "bus"}}},
		},
	}

	got := rules(evaluate(t, nil, tablesFor(t, d)))
	for _, rule := range []string{"width_mismatch", "missing_physical_port", "unknown_interface"} {
		if got[rule] == 0 {
			t.Errorf("expected %s, got %v", rule, got)
		}
	}
}

func TestSeverityOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Policy.Rules["multiple_drivers"] = "warning"
	cfg.Policy.Rules["unconnected_input"] = "off"

	engine, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if sev := engine.Severities()["multiple_drivers"]; sev != "warning" {
		t.Errorf("multiple_drivers severity = %q", sev)
	}

	result, err := engine.Evaluate(context.Background(), tablesFor(t, driverDesign()))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	got := rules(result)
	if got["unconnected_input"] != 0 {
		t.Errorf("unconnected_input is off but fired: %v", got)
	}
	for _, v := range result.Violations {
		if v.Rule == "multiple_drivers" && v.Severity != "warning" {
			t.Errorf("multiple_drivers severity = %q", v.Severity)
		}
	}
}

func TestCleanNetlist(t *testing.T) {
	comp := design.Component{
		Name:  "pass",
		Ports: []design.Port{{Name: "i", Direction: design.DirIn}, {Name: "o", Direction: design.DirOut}},
	}
	d := &design.Design{
		Top:        design.Component{Name: "top"},
		Components: []design.Component{comp},
		Instances:  []design.Instance{{Name: "a", Component: "pass"}, {Name: "b", Component: "pass"}},
		Connections: []design.Connection{
			{Type: design.TypeAdHoc, Name: "ab", Endpoints: []design.Endpoint{{Instance: "a", Port: "o"}, {Instance: "b", Port: "i"}}},
			{Type: design.TypeAdHoc, Name: "ba", Endpoints: []design.Endpoint{{Instance: "b", Port: "o"}, {Instance: "a", Port: "i"}}},
		},
	}

	result := evaluate(t, nil, tablesFor(t, d))
	if len(result.Violations) != 0 {
		t.Errorf("expected no violations, got %+v", result.Violations)
	}
}

func TestExtraPolicyDir(t *testing.T) {
	dir := t.TempDir()
	custom := `package hdlgen.netlist

import rego.v1

violations contains v if {
	some i in input.instances
	startswith(i.name, "tmp_")
	v := violation("temporary_instance", i.design, i.name, "", "", "temporary instance left in design")
}
`
	if err := os.WriteFile(filepath.Join(dir, "custom.rego"), []byte(custom), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Policy.Rules["temporary_instance"] = "error"

	d := &design.Design{
		Top:        design.Component{Name: "top"},
		Components: []design.Component{{Name: "c"}},
		Instances:  []design.Instance{{Name: "tmp_probe", Component: "c"}},
	}
	got := rules(evaluate(t, cfg, tablesFor(t, d), dir))
	if got["temporary_instance"] != 1 {
		t.Errorf("custom rule did not fire: %v", got)
	}
}

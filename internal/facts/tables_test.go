package facts

import (
	"testing"

	"github.com/robert-at-pretension-io/hdlgen/internal/design"
	"github.com/robert-at-pretension-io/hdlgen/internal/synth"
)

func pairDesign(name string) *design.Design {
	comp := func(cname string, dir design.Direction, port string) design.Component {
		return design.Component{
			Name:  cname,
			VLNV:  "acme:ip:" + cname + ":1.0",
			Ports: []design.Port{{Name: port, Direction: dir, Left: "7", Right: "0"}, {Name: "clk", Direction: design.DirIn}},
			Interfaces: []design.Interface{{Name: "bus", PortMaps: []design.PortMap{
				{Logical: design.LogicalPort{Name: "DATA"}, Physical: design.PhysicalPort{Name: port}},
			}}},
		}
	}
	return &design.Design{
		Name:       name,
		Source:     name + ".design.yaml",
		Top:        design.Component{Name: "top", Ports: []design.Port{{Name: "ready", Direction: design.DirOut}}},
		Components: []design.Component{comp("src", design.DirOut, "q"), comp("dst", design.DirIn, "d")},
		Instances:  []design.Instance{{Name: "a", Component: "src"}, {Name: "b", Component: "dst"}},
		Connections: []design.Connection{
			{Type: design.TypeInterface, Endpoints: []design.Endpoint{{Instance: "a", Interface: "bus"}, {Instance: "b", Interface: "bus"}}},
			{Type: design.TypeAdHoc, Name: "tie", TiedValue: "1", Endpoints: []design.Endpoint{{Port: "ready"}}},
		},
	}
}

func TestBuildTablesPopulatesCoreRelations(t *testing.T) {
	tables := BuildTables(synth.Synthesize(pairDesign("pair")))

	if len(tables.Designs) != 1 || tables.Designs[0].Source != "pair.design.yaml" {
		t.Fatalf("designs = %+v", tables.Designs)
	}
	if len(tables.Instances) != 2 {
		t.Fatalf("expected 2 instance rows, got %d", len(tables.Instances))
	}
	// 1 top port plus 2 ports on each instance
	if len(tables.Ports) != 5 {
		t.Fatalf("expected 5 port rows, got %d", len(tables.Ports))
	}
	if len(tables.Signals) != 1 || tables.Signals[0].Name != "a_to_b_DATA" || tables.Signals[0].Width != 8 {
		t.Fatalf("signals = %+v", tables.Signals)
	}
	if len(tables.TieOffs) != 1 || tables.TieOffs[0].Port != "ready" {
		t.Fatalf("tie-offs = %+v", tables.TieOffs)
	}

	kinds := make(map[string]string)
	for _, b := range tables.Bindings {
		kinds[b.Instance+"."+b.Port] = b.Kind
	}
	want := map[string]string{
		"a.q":   "wire",
		"a.clk": "unconnected",
		"b.d":   "wire",
		"b.clk": "unconnected",
	}
	for port, kind := range want {
		if kinds[port] != kind {
			t.Errorf("binding %s kind = %q, want %q", port, kinds[port], kind)
		}
	}
}

func TestDesignKeyFallsBackToTop(t *testing.T) {
	n := synth.Synthesize(pairDesign(""))
	if got := DesignKey(n); got != "top" {
		t.Errorf("DesignKey() = %q, want top", got)
	}
}

func TestMergeKeepsEveryDesign(t *testing.T) {
	b := BuildTables(synth.Synthesize(pairDesign("beta")))
	a := BuildTables(synth.Synthesize(pairDesign("alpha")))

	merged := Merge(b, a)
	if len(merged.Designs) != 2 || merged.Designs[0].Design != "alpha" {
		t.Fatalf("designs = %+v", merged.Designs)
	}
	if merged.Len() != a.Len()+b.Len() {
		t.Errorf("Len() = %d, want %d", merged.Len(), a.Len()+b.Len())
	}
	if Merge().Bindings == nil {
		t.Error("empty merge has nil relations")
	}
}

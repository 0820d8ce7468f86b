package facts

import (
	"sort"

	"github.com/robert-at-pretension-io/hdlgen/internal/ranges"
	"github.com/robert-at-pretension-io/hdlgen/internal/synth"
)

// Tables is the relational fact model of one or more synthesized netlists.
// Each slice is a relation (table) with flat rows keyed by design.
type Tables struct {
	Designs     []DesignRow     `json:"designs"`
	Instances   []InstanceRow   `json:"instances"`
	Ports       []PortRow       `json:"ports"`
	Signals     []SignalRow     `json:"signals"`
	Bindings    []BindingRow    `json:"bindings"`
	TieOffs     []TieOffRow     `json:"tie_offs"`
	Diagnostics []DiagnosticRow `json:"diagnostics"`
}

type DesignRow struct {
	Design string `json:"design"`
	Top    string `json:"top"`
	Source string `json:"source"`
}

type InstanceRow struct {
	Design    string `json:"design"`
	Name      string `json:"name"`
	Component string `json:"component"`
	VLNV      string `json:"vlnv"`
}

// PortRow is a port of the top component (empty Instance) or of an instance.
// Width is 0 when the range is symbolic.
type PortRow struct {
	Design    string `json:"design"`
	Instance  string `json:"instance"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Range     string `json:"range"`
	Width     int    `json:"width"`
}

type SignalRow struct {
	Design     string `json:"design"`
	Name       string `json:"name"`
	Range      string `json:"range"`
	Width      int    `json:"width"`
	Kind       string `json:"kind"`
	Connection string `json:"connection"`
}

// BindingRow is one instance port and what it is connected to. Unconnected
// ports have a row too.
type BindingRow struct {
	Design    string `json:"design"`
	Instance  string `json:"instance"`
	Port      string `json:"port"`
	Direction string `json:"direction"`
	Kind      string `json:"kind"`
	Signal    string `json:"signal"`
	Range     string `json:"range"`
	Value     string `json:"value"`
}

type TieOffRow struct {
	Design string `json:"design"`
	Port   string `json:"port"`
	Value  string `json:"value"`
}

type DiagnosticRow struct {
	Design     string `json:"design"`
	Rule       string `json:"rule"`
	Connection string `json:"connection"`
	Instance   string `json:"instance"`
	Interface  string `json:"interface"`
	Port       string `json:"port"`
	Message    string `json:"message"`
}

// DesignKey is the name rows of a netlist are keyed by: the design name, or
// the top component name for unnamed designs.
func DesignKey(n *synth.Netlist) string {
	if n.Design.Name != "" {
		return n.Design.Name
	}
	return n.Design.Top.Name
}

func width(r ranges.Range) int {
	if w, ok := r.Width(); ok {
		return int(w)
	}
	return 0
}

// BuildTables converts synthesized netlists into the relational model.
func BuildTables(netlists ...*synth.Netlist) Tables {
	tables := NewTables()

	for _, n := range netlists {
		key := DesignKey(n)
		d := n.Design
		topScope := ranges.ComponentScope(&d.Top, nil, nil)

		tables.Designs = append(tables.Designs, DesignRow{
			Design: key,
			Top:    d.Top.Name,
			Source: d.Source,
		})

		for _, p := range d.Top.Ports {
			r := ranges.PortRange(p, topScope)
			tables.Ports = append(tables.Ports, PortRow{
				Design:    key,
				Name:      p.Name,
				Direction: string(p.Direction),
				Range:     r.String(),
				Width:     width(r),
			})
		}

		for _, inst := range n.Instances {
			tables.Instances = append(tables.Instances, InstanceRow{
				Design:    key,
				Name:      inst.Name(),
				Component: inst.Component.Name,
				VLNV:      inst.Component.VLNV,
			})
			scope := ranges.ComponentScope(inst.Component, inst.Instance.Overrides, &d.Top)
			for _, p := range inst.Component.Ports {
				r := ranges.PortRange(p, scope)
				tables.Ports = append(tables.Ports, PortRow{
					Design:    key,
					Instance:  inst.Name(),
					Name:      p.Name,
					Direction: string(p.Direction),
					Range:     r.String(),
					Width:     width(r),
				})

				b := inst.Binding(p.Name)
				row := BindingRow{
					Design:    key,
					Instance:  inst.Name(),
					Port:      p.Name,
					Direction: string(p.Direction),
					Kind:      b.Kind.String(),
					Signal:    b.Signal,
					Value:     b.Value,
				}
				if b.Kind == synth.Wire || b.Kind == synth.Hierarchical {
					row.Range = b.Range.String()
				}
				tables.Bindings = append(tables.Bindings, row)
			}
		}

		for _, s := range n.Signals {
			tables.Signals = append(tables.Signals, SignalRow{
				Design:     key,
				Name:       s.Name,
				Range:      s.Range.String(),
				Width:      width(s.Range),
				Kind:       s.Kind.String(),
				Connection: s.Connection,
			})
		}

		for _, a := range n.TieOffs {
			tables.TieOffs = append(tables.TieOffs, TieOffRow{Design: key, Port: a.Port, Value: a.Value})
		}

		for _, diag := range n.Diagnostics {
			tables.Diagnostics = append(tables.Diagnostics, DiagnosticRow{
				Design:     key,
				Rule:       diag.Rule,
				Connection: diag.Connection,
				Instance:   diag.Instance,
				Interface:  diag.Interface,
				Port:       diag.Port,
				Message:    diag.Message,
			})
		}
	}

	sort.SliceStable(tables.Designs, func(i, j int) bool { return tables.Designs[i].Design < tables.Designs[j].Design })

	return tables
}

// Merge concatenates fact tables of separate designs
func Merge(parts ...Tables) Tables {
	out := NewTables()
	for _, t := range parts {
		out.Designs = append(out.Designs, t.Designs...)
		out.Instances = append(out.Instances, t.Instances...)
		out.Ports = append(out.Ports, t.Ports...)
		out.Signals = append(out.Signals, t.Signals...)
		out.Bindings = append(out.Bindings, t.Bindings...)
		out.TieOffs = append(out.TieOffs, t.TieOffs...)
		out.Diagnostics = append(out.Diagnostics, t.Diagnostics...)
	}
	sort.SliceStable(out.Designs, func(i, j int) bool { return out.Designs[i].Design < out.Designs[j].Design })
	return out
}

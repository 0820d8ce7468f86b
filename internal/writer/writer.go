// Package writer emits a synthesized netlist as a structural Verilog module.
package writer

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/hdlgen/internal/design"
	"github.com/robert-at-pretension-io/hdlgen/internal/preserve"
	"github.com/robert-at-pretension-io/hdlgen/internal/ranges"
	"github.com/robert-at-pretension-io/hdlgen/internal/synth"
)

// UngroupedComment heads the ports that belong to no interface
const UngroupedComment = "// These ports are not in any interface"

// TieOffComment heads the top-level tie-off assignments
const TieOffComment = "// Tie off values for the ports of the encompassing component"

// Write renders the module to w
func Write(w io.Writer, n *synth.Netlist, impl preserve.Implementation, h Header) error {
	_, err := io.WriteString(w, Render(n, impl, h))
	return err
}

// Render returns the complete file text: header comment, generated module
// region, marker, preserved body and post-module text.
func Render(n *synth.Netlist, impl preserve.Implementation, h Header) string {
	top := &n.Design.Top
	scope := ranges.ComponentScope(top, nil, nil)

	var b strings.Builder
	b.WriteString(h.String())
	b.WriteString("\n")
	writeModuleHeader(&b, top, scope)

	if len(n.Signals) > 0 {
		b.WriteString("\n")
		for _, sig := range n.Signals {
			rng := ""
			if !sig.Scalar() {
				rng = sig.Range.String()
			}
			fmt.Fprintf(&b, "    wire %-6s %s;\n", rng, sig.Name)
		}
	}

	for _, inst := range n.Instances {
		b.WriteString("\n")
		writeInstance(&b, inst)
	}

	if len(n.TieOffs) > 0 {
		b.WriteString("\n    " + TieOffComment + "\n")
		for _, a := range n.TieOffs {
			fmt.Fprintf(&b, "    assign %s = %s;\n", a.Port, a.Value)
		}
	}

	b.WriteString("\n")
	b.WriteString(preserve.Marker + "\n")
	if impl.Body != "" {
		b.WriteString(impl.Body + "\n")
	}
	b.WriteString("endmodule\n")
	b.WriteString(impl.PostModule)
	return b.String()
}

func writeModuleHeader(b *strings.Builder, top *design.Component, scope *ranges.Scope) {
	params := moduleParameters(top)
	groups := GroupPorts(top)

	b.WriteString("module " + top.Name)
	if len(params) > 0 {
		b.WriteString(" #(\n")
		for i, p := range params {
			fmt.Fprintf(b, "    parameter%30s%-16s = %s", "", p.Name, scope.Substitute(p.Value))
			if i < len(params)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString(") ")
	}
	if len(groups) == 0 {
		b.WriteString("();\n")
		return
	}

	b.WriteString("(\n")
	for gi, g := range groups {
		if gi > 0 {
			b.WriteString("\n")
		}
		b.WriteString("    " + g.comment() + "\n")
		for pi, p := range g.Ports {
			rng := ""
			if !p.IsScalar() {
				rng = ranges.PortRange(*p, scope).String()
			}
			fmt.Fprintf(b, "    %-14s %-20s %s", p.Direction.Keyword(), rng, p.Name)
			if gi < len(groups)-1 || pi < len(g.Ports)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
	}
	b.WriteString(");\n")
}

// moduleParameters merges component and module parameters of the top, first
// declaration of a name wins, sorted by name
func moduleParameters(c *design.Component) []design.Parameter {
	seen := make(map[string]bool)
	var out []design.Parameter
	for _, list := range [][]design.Parameter{c.Parameters, c.ModuleParameters} {
		for _, p := range list {
			if seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func writeInstance(b *strings.Builder, inst *synth.Instance) {
	if desc := strings.TrimSpace(inst.Instance.Description); desc != "" {
		for _, line := range strings.Split(desc, "\n") {
			b.WriteString("    // " + strings.TrimRight(line, " \t\r") + "\n")
		}
	}
	if inst.Component.VLNV != "" {
		b.WriteString("    // IP-XACT VLNV: " + inst.Component.VLNV + "\n")
	}

	b.WriteString("    " + inst.Component.Name)
	if len(inst.Parameters) > 0 {
		b.WriteString(" #(\n")
		for i, p := range inst.Parameters {
			fmt.Fprintf(b, "        .%-20s(%s)", p.Name, p.Value)
			if i < len(inst.Parameters)-1 {
				b.WriteString(",\n")
			}
		}
		b.WriteString(")\n    ")
	} else {
		b.WriteString(" ")
	}

	groups := GroupPorts(inst.Component)
	if len(groups) == 0 {
		b.WriteString(inst.Name() + "();\n")
		return
	}

	b.WriteString(inst.Name() + "(\n")
	first := true
	for _, g := range groups {
		for pi, p := range g.Ports {
			if !first {
				b.WriteString(",\n")
			}
			first = false
			if pi == 0 {
				b.WriteString("        " + g.comment() + "\n")
			}
			fmt.Fprintf(b, "        .%-20s(%s)", p.Name, inst.Binding(p.Name).Expr())
		}
	}
	b.WriteString(");\n")
}

// PortGroup is the ports of one interface, or the ungrouped ports when
// Interface is empty
type PortGroup struct {
	Interface string
	Ports     []*design.Port
}

func (g PortGroup) comment() string {
	if g.Interface == "" {
		return UngroupedComment
	}
	return "// Interface: " + g.Interface
}

// GroupPorts orders the ports of a component for emission: interface groups
// by interface name, ungrouped ports last, and within a group inputs, outputs
// and inouts, each alphabetical.
func GroupPorts(c *design.Component) []PortGroup {
	byIface := make(map[string]*PortGroup)
	var names []string
	var ungrouped PortGroup
	for i := range c.Ports {
		p := &c.Ports[i]
		name := c.InterfaceOf(p.Name)
		if name == "" {
			ungrouped.Ports = append(ungrouped.Ports, p)
			continue
		}
		g, ok := byIface[name]
		if !ok {
			g = &PortGroup{Interface: name}
			byIface[name] = g
			names = append(names, name)
		}
		g.Ports = append(g.Ports, p)
	}
	sort.Strings(names)

	var out []PortGroup
	for _, name := range names {
		out = append(out, *byIface[name])
	}
	if len(ungrouped.Ports) > 0 {
		out = append(out, ungrouped)
	}
	for _, g := range out {
		sort.SliceStable(g.Ports, func(i, j int) bool {
			a, b := g.Ports[i], g.Ports[j]
			if a.Direction.Rank() != b.Direction.Rank() {
				return a.Direction.Rank() < b.Direction.Rank()
			}
			return a.Name < b.Name
		})
	}
	return out
}

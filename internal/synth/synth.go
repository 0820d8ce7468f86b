package synth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/hdlgen/internal/design"
	"github.com/robert-at-pretension-io/hdlgen/internal/ranges"
)

// Tie-off keywords
const (
	TieOpen    = "open"
	TieDefault = "default"
)

type synthesizer struct {
	d        *design.Design
	n        *Netlist
	topScope *ranges.Scope
	scopes   map[string]*ranges.Scope
}

// Synthesize turns the connections of a design into signals, per-instance
// port bindings and top-level tie-off assignments. The design is not
// modified.
func Synthesize(d *design.Design) *Netlist {
	s := &synthesizer{
		d:        d,
		n:        &Netlist{Design: d},
		topScope: ranges.ComponentScope(&d.Top, nil, nil),
		scopes:   make(map[string]*ranges.Scope),
	}

	for i := range d.Instances {
		inst := &d.Instances[i]
		comp, ok := d.Component(inst.Component)
		if !ok {
			continue
		}
		s.scopes[inst.Name] = ranges.ComponentScope(comp, inst.Overrides, &d.Top)
		s.n.Instances = append(s.n.Instances, &Instance{
			Instance:   inst,
			Component:  comp,
			Parameters: s.parameterValues(inst, comp),
			Bindings:   make(map[string]Binding),
		})
	}
	sort.Slice(s.n.Instances, func(i, j int) bool {
		return s.n.Instances[i].Name() < s.n.Instances[j].Name()
	})

	s.checkPortMaps()

	var ifaceConns []design.Connection
	var adhoc []*adhocGroup
	adhocByName := make(map[string]*adhocGroup)
	var tieOffs []design.Connection

	for _, conn := range d.Connections {
		switch conn.Kind() {
		case design.KindInterface:
			ifaceConns = append(ifaceConns, conn)
		case design.KindHierInterface:
			s.hierarchicalInterface(conn)
		case design.KindAdHoc, design.KindHierAdHoc:
			g, ok := adhocByName[conn.Name]
			if !ok {
				g = &adhocGroup{name: conn.Name}
				adhocByName[conn.Name] = g
				adhoc = append(adhoc, g)
			}
			g.add(conn.Endpoints)
		case design.KindTieOff:
			tieOffs = append(tieOffs, conn)
		}
	}

	s.interfaceNets(ifaceConns)
	for _, g := range adhoc {
		s.adhocNet(g)
	}
	for _, conn := range tieOffs {
		s.tieOff(conn)
	}

	sort.Slice(s.n.Signals, func(i, j int) bool {
		return s.n.Signals[i].Name < s.n.Signals[j].Name
	})
	sort.Slice(s.n.TieOffs, func(i, j int) bool {
		return s.n.TieOffs[i].Port < s.n.TieOffs[j].Port
	})
	return s.n
}

func (s *synthesizer) parameterValues(inst *design.Instance, comp *design.Component) []ParameterValue {
	var out []ParameterValue
	for _, p := range comp.ModuleParameters {
		v, ok := "", false
		if p.ID != "" {
			v, ok = inst.Overrides[p.ID]
		}
		if !ok {
			v, ok = inst.Overrides[p.Name]
		}
		if !ok {
			continue
		}
		out = append(out, ParameterValue{Name: p.Name, Value: s.topScope.Substitute(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *synthesizer) diag(d Diagnostic) {
	s.n.Diagnostics = append(s.n.Diagnostics, d)
}

// checkPortMaps records the advisory validity of every port map
func (s *synthesizer) checkPortMaps() {
	check := func(instance string, comp *design.Component, scope *ranges.Scope) {
		for _, iface := range comp.Interfaces {
			for _, pm := range iface.PortMaps {
				v := ranges.CheckPortMap(pm, comp, scope)
				if v.Valid {
					continue
				}
				msg := fmt.Sprintf("physical port %q does not exist on %s", pm.Physical.Name, comp.Name)
				if v.Reason == ranges.ReasonWidthMismatch {
					msg = fmt.Sprintf("logical %s is %d bits but physical %s is %d bits",
						pm.Logical.Name, v.LogicalWidth, pm.Physical.Name, v.PhysicalWidth)
				}
				s.diag(Diagnostic{
					Rule:      v.Reason,
					Instance:  instance,
					Interface: iface.Name,
					Port:      pm.Physical.Name,
					Message:   msg,
				})
			}
		}
	}
	check("", &s.d.Top, s.topScope)
	for _, inst := range s.n.Instances {
		check(inst.Name(), inst.Component, s.scopes[inst.Name()])
	}
}

// instance resolves an endpoint's instance, recording dangling references
func (s *synthesizer) instance(conn string, ep design.Endpoint) (*Instance, bool) {
	inst, ok := s.n.Instance(ep.Instance)
	if !ok {
		s.diag(Diagnostic{
			Rule:       RuleDanglingEndpoint,
			Connection: conn,
			Instance:   ep.Instance,
			Message:    fmt.Sprintf("instance %q is not part of the design", ep.Instance),
		})
	}
	return inst, ok
}

func (s *synthesizer) bind(inst *Instance, port string, b Binding) {
	if prev, ok := inst.Bindings[port]; ok && prev.Kind != Unconnected {
		s.diag(Diagnostic{
			Rule:       RuleMultipleBindings,
			Connection: b.Connection,
			Instance:   inst.Name(),
			Port:       port,
			Message:    fmt.Sprintf("port already bound by %s", describe(prev)),
		})
		return
	}
	inst.Bindings[port] = b
}

func describe(b Binding) string {
	if b.Connection != "" {
		return b.Connection
	}
	return b.Kind.String()
}

// endpointRange is the range an ad-hoc endpoint occupies: its part-select or
// the port's declared bounds
func endpointRange(ep design.Endpoint, port *design.Port, scope *ranges.Scope) ranges.Range {
	if ps := ep.PartSelect; ps != nil {
		return ranges.Resolve(ps.Left, ps.Right, scope)
	}
	return ranges.PortRange(*port, scope)
}

// resolveTieOff applies the tie-off value policy. open reports that the port
// is left unconnected.
func resolveTieOff(value string, port *design.Port, scope *ranges.Scope) (expr string, open bool) {
	v := strings.TrimSpace(value)
	switch strings.ToLower(v) {
	case TieOpen:
		return "", true
	case TieDefault:
		if strings.TrimSpace(port.Default) == "" {
			return "", true
		}
		return scope.Substitute(strings.TrimSpace(port.Default)), false
	}
	if ranges.IsNumericLiteral(v) {
		return v, false
	}
	return scope.Substitute(v), false
}

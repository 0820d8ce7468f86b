package synth

import (
	"fmt"
	"sort"

	"github.com/robert-at-pretension-io/hdlgen/internal/design"
	"github.com/robert-at-pretension-io/hdlgen/internal/ranges"
)

type ifaceEndpoint struct {
	inst  *Instance
	iface *design.Interface
	key   string
}

type ifaceNet struct {
	first          design.Connection
	firstEndpoints []ifaceEndpoint
	endpoints      []ifaceEndpoint
	seen           map[string]bool
}

// interfaceNets merges interface connections that share an endpoint and
// allocates one signal per logical port of each merged net
func (s *synthesizer) interfaceNets(conns []design.Connection) {
	parent := make(map[string]string)
	var find func(string) string
	find = func(k string) string {
		for parent[k] != k {
			parent[k] = parent[parent[k]]
			k = parent[k]
		}
		return k
	}

	valid := make([][]ifaceEndpoint, len(conns))
	for i, conn := range conns {
		for _, ep := range conn.Endpoints {
			inst, ok := s.instance(conn.Name, ep)
			if !ok {
				continue
			}
			iface, ok := inst.Component.Interface(ep.Interface)
			if !ok {
				s.diag(Diagnostic{
					Rule:       RuleUnknownInterface,
					Connection: conn.Name,
					Instance:   ep.Instance,
					Interface:  ep.Interface,
					Message:    fmt.Sprintf("component %s has no interface %q", inst.Component.Name, ep.Interface),
				})
				continue
			}
			key := ep.Instance + "." + ep.Interface
			if _, ok := parent[key]; !ok {
				parent[key] = key
			}
			valid[i] = append(valid[i], ifaceEndpoint{inst: inst, iface: iface, key: key})
		}
		for j := 1; j < len(valid[i]); j++ {
			a, b := find(valid[i][0].key), find(valid[i][j].key)
			if a != b {
				parent[b] = a
			}
		}
	}

	nets := make(map[string]*ifaceNet)
	var order []*ifaceNet
	for i, conn := range conns {
		if len(valid[i]) == 0 {
			continue
		}
		root := find(valid[i][0].key)
		net, ok := nets[root]
		if !ok {
			net = &ifaceNet{first: conn, firstEndpoints: valid[i], seen: make(map[string]bool)}
			nets[root] = net
			order = append(order, net)
		}
		for _, ep := range valid[i] {
			if !net.seen[ep.key] {
				net.seen[ep.key] = true
				net.endpoints = append(net.endpoints, ep)
			}
		}
	}

	for _, net := range order {
		s.interfaceNet(net)
	}
}

// baseName names a net after its first connection: the connection name,
// else <first>_to_<second> for a point-to-point connection, else
// <first>_<interface>
func (net *ifaceNet) baseName() string {
	if net.first.Name != "" {
		return net.first.Name
	}
	if eps := net.firstEndpoints; len(eps) == 2 {
		return eps[0].inst.Name() + "_to_" + eps[1].inst.Name()
	}
	first := net.endpoints[0]
	return first.inst.Name() + "_" + first.iface.Name
}

type ifaceMember struct {
	ep ifaceEndpoint
	pm design.PortMap
}

func (s *synthesizer) interfaceNet(net *ifaceNet) {
	if len(net.endpoints) < 2 {
		return
	}
	base := net.baseName()

	logicalSet := make(map[string]bool)
	for _, ep := range net.endpoints {
		for _, pm := range ep.iface.PortMaps {
			logicalSet[pm.Logical.Name] = true
		}
	}
	logicals := make([]string, 0, len(logicalSet))
	for l := range logicalSet {
		logicals = append(logicals, l)
	}
	sort.Strings(logicals)

	for _, logical := range logicals {
		var members []ifaceMember
		distinct := make(map[string]bool)
		for _, ep := range net.endpoints {
			for _, pm := range ep.iface.PortMapsFor(logical) {
				members = append(members, ifaceMember{ep: ep, pm: pm})
				distinct[ep.key] = true
			}
		}
		if len(distinct) < 2 {
			continue
		}

		sig := Signal{
			Name:       base + "_" + logical,
			Range:      s.signalRange(members),
			Kind:       design.KindInterface,
			Connection: base,
		}
		s.n.Signals = append(s.n.Signals, sig)

		for _, m := range members {
			scope := s.scopes[m.ep.inst.Name()]
			phys, ok := ranges.Physical(m.pm, m.ep.inst.Component, scope)
			if !ok {
				continue
			}
			s.bind(m.ep.inst, m.pm.Physical.Name, Binding{
				Kind:       Wire,
				Signal:     sig.Name,
				Range:      phys,
				Connection: base,
				Whole:      sig.Scalar(),
			})
		}
	}
}

// signalRange picks the declared logical range of the group, concrete before
// symbolic and narrowest first, falling back to the first physical range
func (s *synthesizer) signalRange(members []ifaceMember) ranges.Range {
	var best, symbolic *ranges.Range
	var bestWidth int64
	for _, m := range members {
		if !ranges.LogicalDeclared(m.pm) {
			continue
		}
		r := ranges.Logical(m.pm, s.scopes[m.ep.inst.Name()])
		if w, ok := r.Width(); ok {
			if best == nil || w < bestWidth {
				best, bestWidth = &r, w
			}
		} else if symbolic == nil {
			symbolic = &r
		}
	}
	if best != nil {
		return *best
	}
	if symbolic != nil {
		return *symbolic
	}
	for _, m := range members {
		if phys, ok := ranges.Physical(m.pm, m.ep.inst.Component, s.scopes[m.ep.inst.Name()]); ok {
			return phys
		}
	}
	return ranges.Scalar
}

// hierarchicalInterface binds instance ports straight to the top ports mapped
// to the same logical ports in the top interface
func (s *synthesizer) hierarchicalInterface(conn design.Connection) {
	var top *design.Interface
	var eps []ifaceEndpoint
	for _, ep := range conn.Endpoints {
		if ep.IsExternal() {
			iface, ok := s.d.Top.Interface(ep.Interface)
			if !ok {
				s.diag(Diagnostic{
					Rule:       RuleUnknownInterface,
					Connection: conn.Name,
					Interface:  ep.Interface,
					Message:    fmt.Sprintf("top component %s has no interface %q", s.d.Top.Name, ep.Interface),
				})
				continue
			}
			if top == nil {
				top = iface
			}
			continue
		}
		inst, ok := s.instance(conn.Name, ep)
		if !ok {
			continue
		}
		iface, ok := inst.Component.Interface(ep.Interface)
		if !ok {
			s.diag(Diagnostic{
				Rule:       RuleUnknownInterface,
				Connection: conn.Name,
				Instance:   ep.Instance,
				Interface:  ep.Interface,
				Message:    fmt.Sprintf("component %s has no interface %q", inst.Component.Name, ep.Interface),
			})
			continue
		}
		eps = append(eps, ifaceEndpoint{inst: inst, iface: iface})
	}
	if top == nil {
		return
	}

	label := conn.Name
	if label == "" {
		label = top.Name
	}
	for _, ep := range eps {
		for _, pm := range ep.iface.PortMaps {
			topMaps := top.PortMapsFor(pm.Logical.Name)
			if len(topMaps) == 0 {
				continue
			}
			topPort, ok := s.d.Top.Port(topMaps[0].Physical.Name)
			if !ok {
				continue
			}
			if _, ok := ep.inst.Component.Port(pm.Physical.Name); !ok {
				continue
			}
			s.bind(ep.inst, pm.Physical.Name, Binding{
				Kind:       Hierarchical,
				Signal:     topPort.Name,
				Range:      ranges.PortRange(*topPort, s.topScope),
				Connection: label,
				Whole:      topPort.IsScalar(),
			})
		}
	}
}

type adhocGroup struct {
	name      string
	endpoints []design.Endpoint
	seen      map[string]bool
}

func (g *adhocGroup) add(eps []design.Endpoint) {
	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	for _, ep := range eps {
		key := ep.Instance + "." + ep.Port
		if g.seen[key] {
			continue
		}
		g.seen[key] = true
		g.endpoints = append(g.endpoints, ep)
	}
}

type adhocEndpoint struct {
	inst *Instance
	port *design.Port
	rng  ranges.Range
}

func (s *synthesizer) missingPort(conn, instance, port string) {
	owner := "top component"
	if instance != "" {
		owner = "instance " + instance
	}
	s.diag(Diagnostic{
		Rule:       RuleMissingPhysicalPort,
		Connection: conn,
		Instance:   instance,
		Port:       port,
		Message:    fmt.Sprintf("%s has no port %q", owner, port),
	})
}

// adhocNet wires the endpoints of a named ad-hoc connection. With a top port
// among the endpoints the top port is the wire; otherwise one signal named
// after the connection is allocated at the widest endpoint range.
func (s *synthesizer) adhocNet(g *adhocGroup) {
	var internal []adhocEndpoint
	var external *design.Port
	for _, ep := range g.endpoints {
		if ep.IsExternal() {
			p, ok := s.d.Top.Port(ep.Port)
			if !ok {
				s.missingPort(g.name, "", ep.Port)
				continue
			}
			if external == nil {
				external = p
			}
			continue
		}
		inst, ok := s.instance(g.name, ep)
		if !ok {
			continue
		}
		p, ok := inst.Component.Port(ep.Port)
		if !ok {
			s.missingPort(g.name, ep.Instance, ep.Port)
			continue
		}
		internal = append(internal, adhocEndpoint{
			inst: inst,
			port: p,
			rng:  endpointRange(ep, p, s.scopes[inst.Name()]),
		})
	}

	if external != nil {
		r := ranges.PortRange(*external, s.topScope)
		for _, e := range internal {
			s.bind(e.inst, e.port.Name, Binding{
				Kind:       Hierarchical,
				Signal:     external.Name,
				Range:      r,
				Connection: g.name,
				Whole:      external.IsScalar(),
			})
		}
		return
	}
	if len(internal) < 2 {
		return
	}

	wide := internal[0].rng
	var wideWidth int64
	found := false
	for _, e := range internal {
		if w, ok := e.rng.Width(); ok && (!found || w > wideWidth) {
			wide, wideWidth, found = e.rng, w, true
		}
	}
	sig := Signal{
		Name:       g.name,
		Range:      wide,
		Kind:       design.KindAdHoc,
		Connection: g.name,
	}
	s.n.Signals = append(s.n.Signals, sig)
	for _, e := range internal {
		s.bind(e.inst, e.port.Name, Binding{
			Kind:       Wire,
			Signal:     g.name,
			Range:      e.rng,
			Connection: g.name,
			Whole:      sig.Scalar(),
		})
	}
}

// tieOff applies a tied value to instance ports and top ports. Instance
// outputs and top inputs cannot be driven by a constant and are skipped.
func (s *synthesizer) tieOff(conn design.Connection) {
	for _, ep := range conn.Endpoints {
		if ep.IsExternal() {
			p, ok := s.d.Top.Port(ep.Port)
			if !ok {
				s.missingPort(conn.Name, "", ep.Port)
				continue
			}
			if p.Direction == design.DirIn {
				continue
			}
			expr, open := resolveTieOff(conn.TiedValue, p, s.topScope)
			if open {
				continue
			}
			if s.hasTieOff(p.Name) {
				s.diag(Diagnostic{
					Rule:       RuleMultipleBindings,
					Connection: conn.Name,
					Port:       p.Name,
					Message:    "top port is tied off more than once",
				})
				continue
			}
			s.n.TieOffs = append(s.n.TieOffs, Assignment{Port: p.Name, Value: expr})
			continue
		}

		inst, ok := s.instance(conn.Name, ep)
		if !ok {
			continue
		}
		p, ok := inst.Component.Port(ep.Port)
		if !ok {
			s.missingPort(conn.Name, ep.Instance, ep.Port)
			continue
		}
		if p.Direction == design.DirOut {
			s.bind(inst, p.Name, Binding{Kind: Open, Connection: conn.Name})
			continue
		}
		expr, open := resolveTieOff(conn.TiedValue, p, s.scopes[inst.Name()])
		if open {
			s.bind(inst, p.Name, Binding{Kind: Open, Connection: conn.Name})
			continue
		}
		s.bind(inst, p.Name, Binding{Kind: TieOff, Value: expr, Connection: conn.Name})
	}
}

func (s *synthesizer) hasTieOff(port string) bool {
	for _, a := range s.n.TieOffs {
		if a.Port == port {
			return true
		}
	}
	return false
}

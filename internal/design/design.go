package design

import (
	"sort"
)

// Direction of a component port
type Direction string

const (
	DirIn    Direction = "in"
	DirOut   Direction = "out"
	DirInOut Direction = "inout"
)

// Keyword returns the Verilog keyword for the direction
func (d Direction) Keyword() string {
	switch d {
	case DirIn:
		return "input"
	case DirOut:
		return "output"
	case DirInOut:
		return "inout"
	}
	return string(d)
}

// Rank orders directions as inputs, outputs, then bidirectional ports
func (d Direction) Rank() int {
	switch d {
	case DirIn:
		return 0
	case DirOut:
		return 1
	case DirInOut:
		return 2
	}
	return 3
}

// Range is a left/right bound pair, each a literal or an expression
type Range struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Port is a physical port of a component
type Port struct {
	Name        string    `json:"name"`
	Direction   Direction `json:"direction"`
	Left        string    `json:"left,omitempty"`
	Right       string    `json:"right,omitempty"`
	Default     string    `json:"default,omitempty"`
	Description string    `json:"description,omitempty"`
}

// IsScalar reports whether the port declares no bounds
func (p Port) IsScalar() bool {
	return p.Left == "" && p.Right == ""
}

// Parameter is a component parameter or module parameter.
// ID is the identifier other expressions use to refer to it.
type Parameter struct {
	Name  string `json:"name"`
	ID    string `json:"id,omitempty"`
	Value string `json:"value"`
}

// LogicalPort is the interface-side half of a port map
type LogicalPort struct {
	Name  string `json:"name"`
	Range *Range `json:"range,omitempty"`
}

// PhysicalPort is the component-side half of a port map
type PhysicalPort struct {
	Name       string `json:"name"`
	PartSelect *Range `json:"partSelect,omitempty"`
}

// PortMap binds one logical port to one physical port
type PortMap struct {
	Logical  LogicalPort  `json:"logical"`
	Physical PhysicalPort `json:"physical"`
}

// Interface is a bus interface of a component
type Interface struct {
	Name     string    `json:"name"`
	Mode     string    `json:"mode,omitempty"`
	PortMaps []PortMap `json:"portMaps"`
}

// PortMapsFor returns the port maps of the interface for a logical port
func (i Interface) PortMapsFor(logical string) []PortMap {
	var out []PortMap
	for _, pm := range i.PortMaps {
		if pm.Logical.Name == logical {
			out = append(out, pm)
		}
	}
	return out
}

// Component is the generation view of a component
type Component struct {
	Name             string      `json:"name"`
	VLNV             string      `json:"vlnv,omitempty"`
	Description      string      `json:"description,omitempty"`
	Ports            []Port      `json:"ports,omitempty"`
	Parameters       []Parameter `json:"parameters,omitempty"`
	ModuleParameters []Parameter `json:"moduleParameters,omitempty"`
	Interfaces       []Interface `json:"interfaces,omitempty"`
}

// Port looks up a port by name
func (c *Component) Port(name string) (*Port, bool) {
	for i := range c.Ports {
		if c.Ports[i].Name == name {
			return &c.Ports[i], true
		}
	}
	return nil, false
}

// Interface looks up a bus interface by name
func (c *Component) Interface(name string) (*Interface, bool) {
	for i := range c.Interfaces {
		if c.Interfaces[i].Name == name {
			return &c.Interfaces[i], true
		}
	}
	return nil, false
}

// InterfaceOf returns the name of the interface a physical port is mapped in.
// Ports mapped in several interfaces belong to the alphabetically first one.
func (c *Component) InterfaceOf(port string) string {
	var names []string
	for _, iface := range c.Interfaces {
		for _, pm := range iface.PortMaps {
			if pm.Physical.Name == port {
				names = append(names, iface.Name)
				break
			}
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}

// Instance is a placement of a component inside the design
type Instance struct {
	Name        string            `json:"name"`
	Component   string            `json:"component"`
	Description string            `json:"description,omitempty"`
	Overrides   map[string]string `json:"overrides,omitempty"`
}

// Endpoint is one side of a connection. An empty Instance refers to the top
// component. Interface connections set Interface, ad-hoc connections set Port.
type Endpoint struct {
	Instance   string `json:"instance,omitempty"`
	Interface  string `json:"interface,omitempty"`
	Port       string `json:"port,omitempty"`
	PartSelect *Range `json:"partSelect,omitempty"`
}

// IsExternal reports whether the endpoint refers to the top component
func (e Endpoint) IsExternal() bool {
	return e.Instance == ""
}

// Connection types as written in design documents
const (
	TypeInterface = "interface"
	TypeAdHoc     = "adhoc"
)

// ConnectionKind is the closed set of connection variants
type ConnectionKind int

const (
	KindInvalid ConnectionKind = iota
	KindInterface
	KindHierInterface
	KindAdHoc
	KindHierAdHoc
	KindTieOff
)

func (k ConnectionKind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindHierInterface:
		return "hierarchical-interface"
	case KindAdHoc:
		return "adhoc"
	case KindHierAdHoc:
		return "hierarchical-adhoc"
	case KindTieOff:
		return "tie-off"
	}
	return "invalid"
}

// Connection is an interconnection between endpoints
type Connection struct {
	Type      string     `json:"type"`
	Name      string     `json:"name,omitempty"`
	Endpoints []Endpoint `json:"endpoints"`
	TiedValue string     `json:"tiedValue,omitempty"`
}

// Kind classifies the connection into one of its variants
func (c Connection) Kind() ConnectionKind {
	external := false
	for _, ep := range c.Endpoints {
		if ep.IsExternal() {
			external = true
			break
		}
	}
	switch c.Type {
	case TypeInterface:
		if external {
			return KindHierInterface
		}
		return KindInterface
	case TypeAdHoc:
		if c.TiedValue != "" {
			return KindTieOff
		}
		if external {
			return KindHierAdHoc
		}
		return KindAdHoc
	}
	return KindInvalid
}

// Design is a fully resolved generation design
type Design struct {
	Name        string       `json:"name,omitempty"`
	Description string       `json:"description,omitempty"`
	Output      string       `json:"output,omitempty"`
	Top         Component    `json:"top"`
	Components  []Component  `json:"components,omitempty"`
	Instances   []Instance   `json:"instances,omitempty"`
	Connections []Connection `json:"connections,omitempty"`

	// Source is the path the design was loaded from
	Source string `json:"-"`
}

// Component looks up a library component by name
func (d *Design) Component(name string) (*Component, bool) {
	for i := range d.Components {
		if d.Components[i].Name == name {
			return &d.Components[i], true
		}
	}
	return nil, false
}

// Instance looks up an instance by name
func (d *Design) Instance(name string) (*Instance, bool) {
	for i := range d.Instances {
		if d.Instances[i].Name == name {
			return &d.Instances[i], true
		}
	}
	return nil, false
}

// InstanceComponent returns an instance together with its component
func (d *Design) InstanceComponent(name string) (*Instance, *Component, bool) {
	inst, ok := d.Instance(name)
	if !ok {
		return nil, nil, false
	}
	comp, ok := d.Component(inst.Component)
	if !ok {
		return nil, nil, false
	}
	return inst, comp, true
}

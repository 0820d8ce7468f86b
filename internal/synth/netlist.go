package synth

import (
	"github.com/robert-at-pretension-io/hdlgen/internal/design"
	"github.com/robert-at-pretension-io/hdlgen/internal/ranges"
)

// BindingKind describes what an instance port is connected to
type BindingKind int

const (
	Unconnected BindingKind = iota
	Wire
	Hierarchical
	TieOff
	Open
)

func (k BindingKind) String() string {
	switch k {
	case Wire:
		return "wire"
	case Hierarchical:
		return "hierarchical"
	case TieOff:
		return "tie_off"
	case Open:
		return "open"
	}
	return "unconnected"
}

// Binding is the connection of one instance port
type Binding struct {
	Kind       BindingKind
	Signal     string
	Range      ranges.Range
	Value      string
	Connection string
	// Whole marks a binding to a scalar net, referenced without a select
	Whole bool
}

// Expr returns the text placed inside the binding parentheses
func (b Binding) Expr() string {
	switch b.Kind {
	case Wire, Hierarchical:
		if b.Whole {
			return b.Signal
		}
		return b.Signal + b.Range.String()
	case TieOff:
		return b.Value
	case Open:
		return " "
	}
	return ""
}

// Signal is an internal wire allocated for a connection
type Signal struct {
	Name       string
	Range      ranges.Range
	Kind       design.ConnectionKind
	Connection string
}

// Scalar reports whether the signal is a single bit, declared without a range
func (s Signal) Scalar() bool {
	w, ok := s.Range.Width()
	return ok && w == 1
}

// ParameterValue is a module parameter override on an instance
type ParameterValue struct {
	Name  string
	Value string
}

// Instance is an instance with its resolved port bindings
type Instance struct {
	Instance   *design.Instance
	Component  *design.Component
	Parameters []ParameterValue
	Bindings   map[string]Binding
}

// Name returns the instance name
func (i *Instance) Name() string {
	return i.Instance.Name
}

// Binding returns the binding of a port, Unconnected when none was made
func (i *Instance) Binding(port string) Binding {
	return i.Bindings[port]
}

// Assignment is a tie-off assignment to a port of the top component
type Assignment struct {
	Port  string
	Value string
}

// Diagnostic rules
const (
	RuleDanglingEndpoint    = "dangling_endpoint"
	RuleUnknownInterface    = "unknown_interface"
	RuleMissingPhysicalPort = ranges.ReasonMissingPhysical
	RuleWidthMismatch       = ranges.ReasonWidthMismatch
	RuleMultipleBindings    = "multiple_bindings"
)

// Diagnostic is an advisory finding recorded during synthesis.
// Diagnostics never stop generation.
type Diagnostic struct {
	Rule       string `json:"rule"`
	Connection string `json:"connection,omitempty"`
	Instance   string `json:"instance,omitempty"`
	Interface  string `json:"interface,omitempty"`
	Port       string `json:"port,omitempty"`
	Message    string `json:"message"`
}

// Netlist is the flat result of connection synthesis
type Netlist struct {
	Design      *design.Design
	Signals     []Signal
	Instances   []*Instance
	TieOffs     []Assignment
	Diagnostics []Diagnostic
}

// Instance looks up a synthesized instance by name
func (n *Netlist) Instance(name string) (*Instance, bool) {
	for _, inst := range n.Instances {
		if inst.Name() == name {
			return inst, true
		}
	}
	return nil, false
}

// Signal looks up an allocated signal by name
func (n *Netlist) Signal(name string) (Signal, bool) {
	for _, s := range n.Signals {
		if s.Name == name {
			return s, true
		}
	}
	return Signal{}, false
}

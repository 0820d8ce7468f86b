package ranges

import (
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/hdlgen/internal/design"
)

// Bound is one end of a bit range. Known bounds carry an evaluated value;
// symbolic bounds carry the expression text with identifiers replaced by
// parameter names.
type Bound struct {
	Text  string
	Value int64
	Known bool
}

// Int returns a known bound with value v
func Int(v int64) Bound {
	return Bound{Text: strconv.FormatInt(v, 10), Value: v, Known: true}
}

func (b Bound) String() string {
	if b.Known {
		return strconv.FormatInt(b.Value, 10)
	}
	return b.Text
}

// ResolveBound evaluates expr in scope, keeping the substituted text when the
// expression has a symbolic operand
func ResolveBound(expr string, scope *Scope) Bound {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Int(0)
	}
	if v, ok := Evaluate(expr, scope); ok {
		return Int(v)
	}
	return Bound{Text: scope.Substitute(expr)}
}

// Range is a resolved [High:Low] pair
type Range struct {
	High Bound
	Low  Bound
}

// Scalar is the range of a single-bit port
var Scalar = Range{High: Int(0), Low: Int(0)}

// Concrete reports whether both bounds are known integers
func (r Range) Concrete() bool {
	return r.High.Known && r.Low.Known
}

// Width returns the bit width when both bounds are known
func (r Range) Width() (int64, bool) {
	if !r.Concrete() {
		return 0, false
	}
	w := r.High.Value - r.Low.Value
	if w < 0 {
		w = -w
	}
	return w + 1, true
}

func (r Range) String() string {
	return "[" + r.High.String() + ":" + r.Low.String() + "]"
}

// Resolve resolves a declared left/right pair. A missing side defaults to 0
// and a fully missing pair is a scalar.
func Resolve(left, right string, scope *Scope) Range {
	if strings.TrimSpace(left) == "" && strings.TrimSpace(right) == "" {
		return Scalar
	}
	return Range{High: ResolveBound(left, scope), Low: ResolveBound(right, scope)}
}

// PortRange resolves the declared bounds of a physical port
func PortRange(p design.Port, scope *Scope) Range {
	return Resolve(p.Left, p.Right, scope)
}

// Physical resolves the physical range of a port map: the part-select when
// given, otherwise the bounds declared on the physical port. ok is false when
// the physical port does not exist on comp.
func Physical(pm design.PortMap, comp *design.Component, scope *Scope) (Range, bool) {
	var port *design.Port
	found := false
	if comp != nil {
		port, found = comp.Port(pm.Physical.Name)
	}
	if ps := pm.Physical.PartSelect; ps != nil {
		return Resolve(ps.Left, ps.Right, scope), found
	}
	if !found {
		return Scalar, false
	}
	return PortRange(*port, scope), true
}

// LogicalDeclared reports whether the port map restricts its logical range
func LogicalDeclared(pm design.PortMap) bool {
	r := pm.Logical.Range
	return r != nil && (strings.TrimSpace(r.Left) != "" || strings.TrimSpace(r.Right) != "")
}

// Logical resolves the logical range of a port map, width 1 when undeclared
func Logical(pm design.PortMap, scope *Scope) Range {
	if !LogicalDeclared(pm) {
		return Scalar
	}
	return Resolve(pm.Logical.Range.Left, pm.Logical.Range.Right, scope)
}

// Validity reasons
const (
	ReasonMissingPhysical = "missing_physical_port"
	ReasonWidthMismatch   = "width_mismatch"
)

// Validity is the advisory state of a port map
type Validity struct {
	Valid         bool
	Reason        string
	PhysicalWidth int64
	LogicalWidth  int64
}

// CheckPortMap flags a port map whose physical port is missing, or whose
// declared logical and physical widths differ. Symbolic widths are not
// compared.
func CheckPortMap(pm design.PortMap, comp *design.Component, scope *Scope) Validity {
	phys, ok := Physical(pm, comp, scope)
	if !ok {
		return Validity{Reason: ReasonMissingPhysical}
	}
	v := Validity{Valid: true}
	pw, pok := phys.Width()
	v.PhysicalWidth = pw
	if !LogicalDeclared(pm) {
		return v
	}
	lw, lok := Logical(pm, scope).Width()
	v.LogicalWidth = lw
	if pok && lok && pw != lw {
		v.Valid = false
		v.Reason = ReasonWidthMismatch
	}
	return v
}

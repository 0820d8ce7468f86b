package ranges

import (
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/hdlgen/internal/design"
)

// Scope is the ordered set of parameters visible to an expression.
// Earlier parameters shadow later ones with the same name or identifier.
type Scope struct {
	params []design.Parameter
	ids    []string
}

// NewScope builds a scope from parameter lists, innermost first
func NewScope(layers ...[]design.Parameter) *Scope {
	s := &Scope{}
	for _, layer := range layers {
		s.params = append(s.params, layer...)
	}
	seen := make(map[string]bool)
	for _, p := range s.params {
		if p.ID != "" && !seen[p.ID] {
			seen[p.ID] = true
			s.ids = append(s.ids, p.ID)
		}
	}
	sort.SliceStable(s.ids, func(i, j int) bool {
		return len(s.ids[i]) > len(s.ids[j])
	})
	return s
}

// ComponentScope returns the scope for expressions owned by comp.
// Instance overrides replace parameter values by identifier or name, and the
// top component's parameters are visible behind the component's own.
func ComponentScope(comp *design.Component, overrides map[string]string, top *design.Component) *Scope {
	if comp == nil {
		return NewScope()
	}
	own := make([]design.Parameter, 0, len(comp.Parameters)+len(comp.ModuleParameters))
	for _, list := range [][]design.Parameter{comp.Parameters, comp.ModuleParameters} {
		for _, p := range list {
			own = append(own, applyOverride(p, overrides))
		}
	}
	if top == nil || top == comp {
		return NewScope(own)
	}
	return NewScope(own, top.Parameters, top.ModuleParameters)
}

func applyOverride(p design.Parameter, overrides map[string]string) design.Parameter {
	if len(overrides) == 0 {
		return p
	}
	if p.ID != "" {
		if v, ok := overrides[p.ID]; ok {
			p.Value = v
			return p
		}
	}
	if v, ok := overrides[p.Name]; ok {
		p.Value = v
	}
	return p
}

// Lookup finds a parameter by name, then by identifier
func (s *Scope) Lookup(ref string) (design.Parameter, bool) {
	if s == nil {
		return design.Parameter{}, false
	}
	for _, p := range s.params {
		if p.Name == ref {
			return p, true
		}
	}
	return s.ByID(ref)
}

// ByID finds a parameter by identifier
func (s *Scope) ByID(id string) (design.Parameter, bool) {
	if s == nil || id == "" {
		return design.Parameter{}, false
	}
	for _, p := range s.params {
		if p.ID == id {
			return p, true
		}
	}
	return design.Parameter{}, false
}

// Substitute replaces every parameter identifier in expr with the
// parameter's name. The rest of the text is left untouched.
func (s *Scope) Substitute(expr string) string {
	if s == nil || len(s.ids) == 0 {
		return expr
	}
	var b strings.Builder
	i := 0
	for i < len(expr) {
		if i == 0 || !isIdentChar(expr[i-1]) {
			if id, ok := s.matchID(expr, i); ok {
				p, _ := s.ByID(id)
				b.WriteString(p.Name)
				i += len(id)
				continue
			}
		}
		b.WriteByte(expr[i])
		i++
	}
	return b.String()
}

func (s *Scope) matchID(expr string, at int) (string, bool) {
	for _, id := range s.ids {
		if !strings.HasPrefix(expr[at:], id) {
			continue
		}
		end := at + len(id)
		if end < len(expr) && isIdentChar(expr[end]) {
			continue
		}
		return id, true
	}
	return "", false
}

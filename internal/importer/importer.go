// Package importer reads ANSI-style Verilog module headers back into
// component descriptions that design documents can list.
package importer

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/robert-at-pretension-io/hdlgen/internal/design"
	"github.com/robert-at-pretension-io/hdlgen/internal/errors"
	"github.com/robert-at-pretension-io/hdlgen/internal/preserve"
)

// Document is the importer output: a components list ready to paste into a
// design document
type Document struct {
	Components []design.Component `json:"components"`
}

// ParseFile imports every module header of a Verilog file
func ParseFile(path string) ([]design.Component, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseImport, errors.KindIO).Path(path).Cause(err).Build()
	}
	comps, err := Parse(string(content))
	if err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) {
			e.Path = path
		}
		return nil, err
	}
	return comps, nil
}

// Parse imports every module header in Verilog source text. Comments are
// ignored; module bodies are skipped up to their endmodule.
func Parse(src string) ([]design.Component, error) {
	text := preserve.MaskComments(src)

	var comps []design.Component
	pos := 0
	for {
		loc := modulePattern.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		comp := design.Component{Name: text[pos+loc[2] : pos+loc[3]]}

		i := skipSpace(text, pos+loc[1])
		if i < len(text) && text[i] == '#' {
			i = skipSpace(text, i+1)
			if i >= len(text) || text[i] != '(' {
				return nil, fail(errors.KindInvalidInput, i, "module %s: expected '(' after '#'", comp.Name)
			}
			body, end, ok := balanced(text, i)
			if !ok {
				return nil, fail(errors.KindNoHeaderEnd, i, "module %s: unterminated parameter list", comp.Name)
			}
			params, err := parseParameters(comp.Name, body, i+1)
			if err != nil {
				return nil, err
			}
			comp.ModuleParameters = params
			i = skipSpace(text, end)
		}

		if i < len(text) && text[i] == '(' {
			body, end, ok := balanced(text, i)
			if !ok {
				return nil, fail(errors.KindNoHeaderEnd, i, "module %s: unterminated port list", comp.Name)
			}
			ports, err := parsePorts(comp.Name, body, i+1)
			if err != nil {
				return nil, err
			}
			comp.Ports = ports
			i = skipSpace(text, end)
		}

		if i >= len(text) || text[i] != ';' {
			return nil, fail(errors.KindNoHeaderEnd, start, "module %s: header is not terminated by ';'", comp.Name)
		}

		endLoc := endmodulePattern.FindStringIndex(text[i:])
		if endLoc == nil {
			return nil, fail(errors.KindNoModuleEnd, start, "module %s has no endmodule", comp.Name)
		}
		pos = i + endLoc[1]
		comps = append(comps, comp)
	}

	if len(comps) == 0 {
		return nil, fail(errors.KindNoModule, 0, "no module declaration found")
	}
	return comps, nil
}

// Marshal renders imported components as a YAML document
func Marshal(comps []design.Component) ([]byte, error) {
	return design.MarshalYAML(Document{Components: comps})
}

func fail(kind errors.Kind, offset int, format string, args ...any) error {
	return errors.New(errors.PhaseImport, kind).Offset(offset).Detail(format, args...).Build()
}

func parseParameters(module, body string, offset int) ([]design.Parameter, error) {
	var params []design.Parameter
	for _, item := range splitTopLevel(body) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		m := parameterPattern.FindStringSubmatch(item)
		if m == nil {
			return nil, fail(errors.KindUnsupported, offset, "module %s: cannot read parameter %q", module, squeeze(item))
		}
		params = append(params, design.Parameter{Name: m[1], Value: squeeze(m[2])})
	}
	return params, nil
}

// parsePorts reads an ANSI port list. A bare name continues the previous
// declaration's direction and range.
func parsePorts(module, body string, offset int) ([]design.Port, error) {
	var ports []design.Port
	var prev *design.Port
	for _, item := range splitTopLevel(body) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		if m := portPattern.FindStringSubmatch(item); m != nil {
			p := design.Port{Name: m[3], Direction: direction(m[1])}
			if m[2] != "" {
				left, right, ok := strings.Cut(m[2], ":")
				if !ok {
					return nil, fail(errors.KindUnsupported, offset, "module %s: port %s has range [%s]", module, p.Name, m[2])
				}
				p.Left, p.Right = squeeze(left), squeeze(right)
			}
			ports = append(ports, p)
			prev = &ports[len(ports)-1]
			continue
		}

		if namePattern.MatchString(item) {
			if prev == nil {
				return nil, fail(errors.KindUnsupported, offset, "module %s: non-ANSI port list", module)
			}
			p := *prev
			p.Name = item
			ports = append(ports, p)
			prev = &ports[len(ports)-1]
			continue
		}

		return nil, fail(errors.KindUnsupported, offset, "module %s: cannot read port %q", module, squeeze(item))
	}

	seen := make(map[string]bool)
	for _, p := range ports {
		if seen[p.Name] {
			return nil, fail(errors.KindInvalidInput, offset, "module %s: duplicate port %s", module, p.Name)
		}
		seen[p.Name] = true
	}
	return ports, nil
}

func direction(keyword string) design.Direction {
	switch keyword {
	case "input":
		return design.DirIn
	case "output":
		return design.DirOut
	}
	return design.DirInOut
}

// Summary is a one-line description of an imported component
func Summary(c design.Component) string {
	return fmt.Sprintf("%s: %d parameters, %d ports", c.Name, len(c.ModuleParameters), len(c.Ports))
}

package design

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"sigs.k8s.io/yaml"

	"github.com/robert-at-pretension-io/hdlgen/internal/errors"
)

// Extensions lists the file suffixes recognised as design documents
var Extensions = []string{".design.yaml", ".design.yml", ".design.json", ".design.toml"}

// IsDesignFile reports whether a path names a design document
func IsDesignFile(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ReadJSON reads a design document and normalises it to JSON.
// YAML and TOML documents are converted so every format shares the JSON field names.
func ReadJSON(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading design file: %w", err)
	}
	return ToJSON(path, data)
}

// ToJSON converts design document bytes to JSON based on the file extension
func ToJSON(path string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return data, nil
	case ".yaml", ".yml":
		out, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing YAML design: %w", err)
		}
		return out, nil
	case ".toml":
		var doc map[string]interface{}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing TOML design: %w", err)
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("converting TOML design: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported design format %q", filepath.Ext(path))
}

// Decode builds a Design from normalised JSON
func Decode(data []byte) (*Design, error) {
	var d Design
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding design: %w", err)
	}
	return &d, nil
}

// LoadFile reads, decodes and checks a design document
func LoadFile(path string) (*Design, error) {
	data, err := ReadJSON(path)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindIO).Path(path).Cause(err).Build()
	}
	d, err := Decode(data)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).Path(path).Cause(err).Build()
	}
	d.Source = path
	if err := d.Check(); err != nil {
		return nil, err
	}
	return d, nil
}

// MarshalYAML renders a value as a YAML document
func MarshalYAML(v interface{}) ([]byte, error) {
	return yaml.Marshal(v)
}

// Check verifies the structural invariants a resolved design must hold.
// Connections may still reference unknown instances; those endpoints are
// dropped during synthesis.
func (d *Design) Check() error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.PhaseLoad, errors.KindInvalidInput).Path(d.Source).Detail(format, args...).Build()
	}

	if d.Top.Name == "" {
		return invalid("top component has no name")
	}
	if err := checkComponent(&d.Top); err != "" {
		return invalid("top component %s: %s", d.Top.Name, err)
	}

	components := make(map[string]bool)
	for i := range d.Components {
		comp := &d.Components[i]
		if comp.Name == "" {
			return invalid("component #%d has no name", i)
		}
		if components[comp.Name] {
			return invalid("duplicate component %q", comp.Name)
		}
		components[comp.Name] = true
		if err := checkComponent(comp); err != "" {
			return invalid("component %s: %s", comp.Name, err)
		}
	}

	instances := make(map[string]bool)
	for _, inst := range d.Instances {
		if inst.Name == "" {
			return invalid("instance with empty name")
		}
		if instances[inst.Name] {
			return invalid("duplicate instance %q", inst.Name)
		}
		instances[inst.Name] = true
		if !components[inst.Component] {
			return invalid("instance %q references unknown component %q", inst.Name, inst.Component)
		}
	}

	for i, conn := range d.Connections {
		if conn.Kind() == KindInvalid {
			return invalid("connection #%d (%s) has unknown type %q", i, conn.Name, conn.Type)
		}
		if conn.Type == TypeAdHoc && conn.Name == "" {
			return invalid("ad-hoc connection #%d has no name", i)
		}
	}
	return nil
}

func checkComponent(c *Component) string {
	seen := make(map[string]bool)
	for _, p := range c.Ports {
		if p.Name == "" {
			return "port with empty name"
		}
		if seen[p.Name] {
			return fmt.Sprintf("duplicate port %q", p.Name)
		}
		seen[p.Name] = true
		switch p.Direction {
		case DirIn, DirOut, DirInOut:
		default:
			return fmt.Sprintf("port %q has invalid direction %q", p.Name, p.Direction)
		}
	}
	return ""
}

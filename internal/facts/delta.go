package facts

import "strconv"

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

// Empty reports whether the delta has no rows
func (d Delta) Empty() bool {
	return d.Added.Len() == 0 && d.Removed.Len() == 0
}

// Len returns the total number of rows across all relations
func (t Tables) Len() int {
	return len(t.Designs) + len(t.Instances) + len(t.Ports) + len(t.Signals) +
		len(t.Bindings) + len(t.TieOffs) + len(t.Diagnostics)
}

func diffTables(from, to Tables) Tables {
	out := NewTables()

	out.Designs = diffRows(from.Designs, to.Designs, func(r DesignRow) string {
		return key(r.Design, r.Top, r.Source)
	})
	out.Instances = diffRows(from.Instances, to.Instances, func(r InstanceRow) string {
		return key(r.Design, r.Name, r.Component, r.VLNV)
	})
	out.Ports = diffRows(from.Ports, to.Ports, func(r PortRow) string {
		return key(r.Design, r.Instance, r.Name, r.Direction, r.Range, strconv.Itoa(r.Width))
	})
	out.Signals = diffRows(from.Signals, to.Signals, func(r SignalRow) string {
		return key(r.Design, r.Name, r.Range, strconv.Itoa(r.Width), r.Kind, r.Connection)
	})
	out.Bindings = diffRows(from.Bindings, to.Bindings, func(r BindingRow) string {
		return key(r.Design, r.Instance, r.Port, r.Direction, r.Kind, r.Signal, r.Range, r.Value)
	})
	out.TieOffs = diffRows(from.TieOffs, to.TieOffs, func(r TieOffRow) string {
		return key(r.Design, r.Port, r.Value)
	})
	out.Diagnostics = diffRows(from.Diagnostics, to.Diagnostics, func(r DiagnosticRow) string {
		return key(r.Design, r.Rule, r.Connection, r.Instance, r.Interface, r.Port, r.Message)
	})

	return out
}

// NewTables returns tables with every relation empty and non-nil
func NewTables() Tables {
	return Tables{
		Designs:     []DesignRow{},
		Instances:   []InstanceRow{},
		Ports:       []PortRow{},
		Signals:     []SignalRow{},
		Bindings:    []BindingRow{},
		TieOffs:     []TieOffRow{},
		Diagnostics: []DiagnosticRow{},
	}
}

func key(fields ...string) string {
	n := 0
	for _, f := range fields {
		n += len(f) + 1
	}
	b := make([]byte, 0, n)
	for i, f := range fields {
		if i > 0 {
			b = append(b, '|')
		}
		b = append(b, f...)
	}
	return string(b)
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]struct{}, len(from))
	for _, row := range from {
		fromSet[key(row)] = struct{}{}
	}
	diff := []T{}
	for _, row := range to {
		if _, ok := fromSet[key(row)]; !ok {
			diff = append(diff, row)
		}
	}
	return diff
}

package facts

// FilterTablesByDesigns returns a new Tables object containing only rows of
// the given designs.
func FilterTablesByDesigns(tables Tables, designs map[string]bool) Tables {
	out := NewTables()
	if len(designs) == 0 {
		return out
	}

	out.Designs = filterRows(tables.Designs, designs, func(r DesignRow) string { return r.Design })
	out.Instances = filterRows(tables.Instances, designs, func(r InstanceRow) string { return r.Design })
	out.Ports = filterRows(tables.Ports, designs, func(r PortRow) string { return r.Design })
	out.Signals = filterRows(tables.Signals, designs, func(r SignalRow) string { return r.Design })
	out.Bindings = filterRows(tables.Bindings, designs, func(r BindingRow) string { return r.Design })
	out.TieOffs = filterRows(tables.TieOffs, designs, func(r TieOffRow) string { return r.Design })
	out.Diagnostics = filterRows(tables.Diagnostics, designs, func(r DiagnosticRow) string { return r.Design })

	return out
}

// FilterDeltaByDesigns returns a new Delta containing only rows of the given
// designs.
func FilterDeltaByDesigns(delta Delta, designs map[string]bool) Delta {
	return Delta{
		Added:   FilterTablesByDesigns(delta.Added, designs),
		Removed: FilterTablesByDesigns(delta.Removed, designs),
	}
}

func filterRows[T any](rows []T, designs map[string]bool, design func(T) string) []T {
	out := []T{}
	for _, row := range rows {
		if designs[design(row)] {
			out = append(out, row)
		}
	}
	return out
}

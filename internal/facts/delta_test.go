package facts

import "testing"

func TestComputeDeltaAddsAndRemoves(t *testing.T) {
	prev := Tables{
		Signals: []SignalRow{
			{Design: "soc", Name: "a_to_b_DATA", Range: "[7:0]", Width: 8, Kind: "interface"},
		},
		Bindings: []BindingRow{
			{Design: "soc", Instance: "b", Port: "d", Direction: "in", Kind: "unconnected"},
		},
	}
	next := Tables{
		Signals: []SignalRow{
			{Design: "soc", Name: "a_to_b_DATA", Range: "[15:0]", Width: 16, Kind: "interface"},
		},
		Bindings: []BindingRow{
			{Design: "soc", Instance: "b", Port: "d", Direction: "in", Kind: "unconnected"},
		},
	}

	delta := ComputeDelta(prev, next)

	if len(delta.Added.Signals) != 1 || delta.Added.Signals[0].Width != 16 {
		t.Fatalf("expected widened signal added, got %+v", delta.Added.Signals)
	}
	if len(delta.Removed.Signals) != 1 || delta.Removed.Signals[0].Width != 8 {
		t.Fatalf("expected narrow signal removed, got %+v", delta.Removed.Signals)
	}
	if len(delta.Added.Bindings) != 0 || len(delta.Removed.Bindings) != 0 {
		t.Fatalf("unchanged binding should not appear in delta: %+v", delta)
	}
	if delta.Empty() {
		t.Fatal("delta should not be empty")
	}
}

func TestComputeDeltaIdentical(t *testing.T) {
	tables := Tables{TieOffs: []TieOffRow{{Design: "soc", Port: "p", Value: "0"}}}
	if delta := ComputeDelta(tables, tables); !delta.Empty() {
		t.Fatalf("expected empty delta, got %+v", delta)
	}
}

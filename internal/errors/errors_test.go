package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "phase and kind only",
			err:  New(PhasePreserve, KindNoModule).Build(),
			want: "[preserve] no_module",
		},
		{
			name: "with path and detail",
			err:  New(PhaseLoad, KindInvalidInput).Path("top.design.yaml").Detail("bad %s", "port").Build(),
			want: "[load] invalid_input at top.design.yaml: bad port",
		},
		{
			name: "with offset",
			err:  New(PhasePreserve, KindMultipleModules).Path("out.v").Offset(120).Build(),
			want: "[preserve] multiple_modules at out.v:120",
		},
		{
			name: "with cause",
			err:  Wrap(PhaseWrite, KindIO, fmt.Errorf("disk full"), "rename output"),
			want: "[write] io: rename output (caused by: disk full)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorIsMatchesPhaseAndKind(t *testing.T) {
	err := New(PhasePreserve, KindMultipleModules).Path("a.v").Build()
	wrapped := fmt.Errorf("select implementation: %w", err)

	if !stderrors.Is(wrapped, ErrMultipleModules) {
		t.Fatalf("expected wrapped error to match ErrMultipleModules")
	}
	if stderrors.Is(wrapped, ErrNoModule) {
		t.Fatalf("did not expect wrapped error to match ErrNoModule")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("root")
	err := Wrap(PhaseLoad, KindIO, cause, "read design")
	if stderrors.Unwrap(err) != cause {
		t.Fatalf("Unwrap() did not return the cause")
	}
}

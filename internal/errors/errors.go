package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which generation stage produced the error
type Phase string

const (
	PhaseConfig   Phase = "config"   // configuration loading
	PhaseLoad     Phase = "load"     // design document loading
	PhaseValidate Phase = "validate" // schema validation
	PhaseSynth    Phase = "synth"    // connection synthesis
	PhasePreserve Phase = "preserve" // prior file boundary detection
	PhaseWrite    Phase = "write"    // output file writing
	PhasePolicy   Phase = "policy"   // netlist policy evaluation
	PhaseImport   Phase = "import"   // Verilog header import
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindInvalidInput    Kind = "invalid_input"
	KindUnsupported     Kind = "unsupported"
	KindSchema          Kind = "schema"
	KindIO              Kind = "io"
	KindNoModule        Kind = "no_module"
	KindNoHeaderEnd     Kind = "no_header_end"
	KindNoModuleEnd     Kind = "no_module_end"
	KindMultipleModules Kind = "multiple_modules"
)

// Error is the structured error type used by the generator pipeline
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   string
	Offset int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
		if e.Offset > 0 {
			fmt.Fprintf(&b, ":%d", e.Offset)
		}
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the file or element the error refers to
func (b *Builder) Path(path string) *Builder {
	b.err.Path = path
	return b
}

// Offset sets the byte offset inside Path
func (b *Builder) Offset(offset int) *Builder {
	b.err.Offset = offset
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Wrap creates an error around an underlying cause
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Cause:  cause,
		Detail: detail,
	}
}

// NotFound creates a not found error for a named element
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Path:   name,
		Detail: what + " not found",
	}
}

// Sentinel values for errors.Is checks against preserver failures.
var (
	ErrNoModule        = &Error{Phase: PhasePreserve, Kind: KindNoModule}
	ErrNoHeaderEnd     = &Error{Phase: PhasePreserve, Kind: KindNoHeaderEnd}
	ErrNoModuleEnd     = &Error{Phase: PhasePreserve, Kind: KindNoModuleEnd}
	ErrMultipleModules = &Error{Phase: PhasePreserve, Kind: KindMultipleModules}
)

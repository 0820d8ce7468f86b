// Package errors provides structured errors for the generator pipeline.
//
// Every error carries the Phase it was raised in and a Kind that classifies
// it, so callers can branch on the failure without parsing messages:
//
//	err := errors.New(errors.PhaseLoad, errors.KindInvalidInput).
//		Path("soc.design.yaml").
//		Detail("instance %q references unknown component %q", "u0", "fifo").
//		Build()
//
// Two errors match under errors.Is when their phase and kind match, which is
// how the generator recognises a preserver failure:
//
//	if stderrors.Is(err, errors.ErrMultipleModules) { ... }
//
// Error strings follow the form "[phase] kind at path: detail (caused by: ...)".
package errors

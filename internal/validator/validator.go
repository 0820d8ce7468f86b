// Package validator checks design documents and netlist facts against
// embedded CUE contracts.
//
// A document that fails its contract is rejected before it reaches the
// synthesizer or the policy engine, with the CUE error naming the offending
// field. Fix the document or the producer; do not loosen the schema to make
// an error go away.
package validator

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed design_schema.cue facts_schema.cue
var schemaFS embed.FS

// contract is safe for concurrent use; evaluation on its context is
// serialised
type contract struct {
	mu   sync.Mutex
	ctx  *cue.Context
	def  cue.Value
	name string
}

func loadContract(file, definition string) (*contract, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema %s: %w", file, err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", file, schema.Err())
	}

	def := schema.LookupPath(cue.ParsePath(definition))
	if def.Err() != nil {
		return nil, fmt.Errorf("looking up %s definition: %w", definition, def.Err())
	}

	return &contract{ctx: ctx, def: def, name: definition}, nil
}

func (c *contract) check(jsonBytes []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dataValue := c.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling JSON as CUE: %w", dataValue.Err())
	}
	return c.def.Unify(dataValue).Validate(cue.Concrete(true))
}

func (c *contract) validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}
	return c.validateJSON(jsonBytes)
}

func (c *contract) validateJSON(jsonBytes []byte) error {
	if err := c.check(jsonBytes); err != nil {
		return fmt.Errorf("%s validation failed: %w", c.name, err)
	}
	return nil
}

func (c *contract) messages(jsonBytes []byte) []string {
	err := c.check(jsonBytes)
	if err == nil {
		return nil
	}
	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

// Validator validates design documents against the #Design contract
type Validator struct {
	c *contract
}

// New creates a design Validator with the embedded CUE schema
func New() (*Validator, error) {
	c, err := loadContract("design_schema.cue", "#Design")
	if err != nil {
		return nil, err
	}
	return &Validator{c: c}, nil
}

// Validate checks a design value. Returns nil if valid, or an error naming
// every field that failed.
func (v *Validator) Validate(data interface{}) error {
	return v.c.validate(data)
}

// ValidateJSON validates a design document already converted to JSON
func (v *Validator) ValidateJSON(jsonBytes []byte) error {
	return v.c.validateJSON(jsonBytes)
}

// ValidationErrors returns one message per contract violation in a JSON
// design document
func (v *Validator) ValidationErrors(jsonBytes []byte) []string {
	return v.c.messages(jsonBytes)
}

// FactsValidator validates netlist fact tables against the #Facts contract.
type FactsValidator struct {
	c *contract
}

// NewFactsValidator creates a validator for netlist fact tables.
func NewFactsValidator() (*FactsValidator, error) {
	c, err := loadContract("facts_schema.cue", "#Facts")
	if err != nil {
		return nil, err
	}
	return &FactsValidator{c: c}, nil
}

// Validate checks that the fact tables conform to the facts schema.
func (v *FactsValidator) Validate(data interface{}) error {
	return v.c.validate(data)
}

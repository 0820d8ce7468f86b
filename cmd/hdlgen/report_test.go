package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/hdlgen/internal/generator"
	"github.com/robert-at-pretension-io/hdlgen/internal/policy"
)

func TestPrintReportPlain(t *testing.T) {
	r := &generator.Result{
		Designs: []generator.DesignResult{
			{Source: "soc.design.yaml", Design: "soc", Output: "rtl/soc.v", Status: generator.StatusGenerated, Preserved: true},
			{Source: "designs/bad.design.yaml", Status: generator.StatusFailed, Error: "validate/schema: bad direction"},
		},
		Violations: []policy.Violation{
			{Rule: "multiple_drivers", Severity: "error", Design: "soc", Message: "signal bus is driven by a.q, b.q"},
		},
		Summary: generator.Summary{Designs: 2, Generated: 1, Failed: 1, TotalViolations: 1, Errors: 1},
	}

	var buf bytes.Buffer
	printReport(&buf, r, newStyles(false))
	out := buf.String()

	for _, want := range []string{
		"=== Designs ===",
		"  soc                      generated -> rtl/soc.v (implementation kept)\n",
		"  bad.design.yaml          failed\n    validate/schema: bad direction\n",
		"✗ [multiple_drivers] soc - signal bus is driven by a.q, b.q\n",
		"  Designs:   2 (1 generated, 0 unchanged, 0 cached, 1 failed)\n",
		"  Errors:    1\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

package generator

import (
	"go.uber.org/zap"

	"github.com/robert-at-pretension-io/hdlgen/internal/design"
	"github.com/robert-at-pretension-io/hdlgen/internal/preserve"
	"github.com/robert-at-pretension-io/hdlgen/internal/synth"
	"github.com/robert-at-pretension-io/hdlgen/internal/writer"
)

// Render produces the new contents of a design's Verilog file. The
// implementation found in prior, the previous contents of that file, is
// carried over; a prior file the preserver cannot read is regenerated from
// scratch.
func Render(d *design.Design, prior []byte, h writer.Header) []byte {
	out, _ := render(synth.Synthesize(d), prior, h)
	return out
}

// render reports whether an implementation was carried over from prior
func render(n *synth.Netlist, prior []byte, h writer.Header) ([]byte, bool) {
	var impl preserve.Implementation
	preserved := false
	if len(prior) > 0 {
		selected, err := preserve.Select(string(prior))
		if err != nil {
			Logger().Debug("prior file not preserved",
				zap.String("design", n.Design.Source),
				zap.Error(err))
		} else {
			impl, preserved = selected, true
		}
	}
	return []byte(writer.Render(n, impl, h)), preserved
}

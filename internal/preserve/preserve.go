// Package preserve recovers the hand-written implementation from a
// previously generated Verilog file.
package preserve

import (
	"regexp"
	"strings"

	"github.com/robert-at-pretension-io/hdlgen/internal/errors"
)

// MarkerTag separates the generated region from the user's implementation
const MarkerTag = "WARNING: EVERYTHING ON AND ABOVE THIS LINE MAY BE OVERWRITTEN BY HDLGEN!!!"

// Marker is the comment line carrying MarkerTag
const Marker = "// " + MarkerTag

var (
	moduleRe    = regexp.MustCompile(`\bmodule\b`)
	endmoduleRe = regexp.MustCompile(`\bendmodule\b`)
)

// Implementation is the user-owned text of a prior file
type Implementation struct {
	Body       string
	PostModule string
}

// Select finds the module body and the text after endmodule in a prior file.
// Keywords inside comments and string literals are ignored. The returned error is an
// *errors.Error matching one of ErrNoModule, ErrNoHeaderEnd, ErrNoModuleEnd
// or ErrMultipleModules.
func Select(text string) (Implementation, error) {
	masked := MaskLiterals(text)

	loc := moduleRe.FindStringIndex(masked)
	if loc == nil {
		return Implementation{}, fail(errors.KindNoModule, 0, "no module declaration")
	}

	rel := strings.Index(masked[loc[1]:], ");")
	if rel < 0 {
		return Implementation{}, fail(errors.KindNoHeaderEnd, loc[0], "module header is not closed")
	}
	bodyStart := loc[1] + rel + len(");")

	end := endmoduleRe.FindStringIndex(masked[bodyStart:])
	if end == nil {
		return Implementation{}, fail(errors.KindNoModuleEnd, bodyStart, "no endmodule")
	}
	bodyEnd := bodyStart + end[0]
	postStart := bodyStart + end[1]

	// text above the marker is generated and not scanned
	userStart := bodyStart
	if i := strings.Index(text[bodyStart:bodyEnd], Marker); i >= 0 {
		userStart = bodyStart + i + len(Marker)
		if nl := strings.IndexByte(text[userStart:bodyEnd], '\n'); nl >= 0 {
			userStart += nl + 1
		} else {
			userStart = bodyEnd
		}
	}

	if extra := moduleRe.FindStringIndex(masked[userStart:]); extra != nil {
		return Implementation{}, fail(errors.KindMultipleModules, userStart+extra[0], "more than one module declaration")
	}

	body := text[userStart:bodyEnd]
	return Implementation{
		Body:       trimBlankLines(body),
		PostModule: trimLeadingBreak(text[postStart:]),
	}, nil
}

func fail(kind errors.Kind, offset int, detail string) error {
	return errors.New(errors.PhasePreserve, kind).Offset(offset).Detail("%s", detail).Build()
}

// MaskComments blanks out comment text, keeping offsets and line breaks. An
// unterminated block comment ends at the end of its line. Comment markers
// inside string literals are not comments.
func MaskComments(text string) string {
	return mask(text, false)
}

// MaskLiterals blanks out comments and the contents of string literals. The
// quotes stay in place.
func MaskLiterals(text string) string {
	return mask(text, true)
}

func mask(text string, literals bool) string {
	b := []byte(text)
	blank := func(i int) {
		if literals {
			b[i] = ' '
		}
	}
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == '"':
			j := i + 1
			for ; j < len(b) && b[j] != '"' && b[j] != '\n'; j++ {
				if b[j] == '\\' && j+1 < len(b) && b[j+1] != '\n' {
					blank(j)
					j++
				}
				blank(j)
			}
			i = j
		case b[i] != '/' || i+1 >= len(b):
		case b[i+1] == '/':
			for ; i < len(b) && b[i] != '\n'; i++ {
				b[i] = ' '
			}
		case b[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			nl := strings.IndexByte(text[i+2:], '\n')
			stop := len(b)
			switch {
			case end >= 0:
				stop = i + 2 + end + 2
			case nl >= 0:
				stop = i + 2 + nl
			}
			for ; i < stop; i++ {
				if b[i] != '\n' {
					b[i] = ' '
				}
			}
			i--
		}
	}
	return string(b)
}

// trimBlankLines drops leading blank lines and trailing whitespace
func trimBlankLines(s string) string {
	first := strings.IndexFunc(s, func(r rune) bool {
		return r != ' ' && r != '\t' && r != '\r' && r != '\n'
	})
	if first < 0 {
		return ""
	}
	start := strings.LastIndexByte(s[:first], '\n') + 1
	return strings.TrimRight(s[start:], " \t\r\n")
}

func trimLeadingBreak(s string) string {
	if strings.HasPrefix(s, "\r\n") {
		return s[2:]
	}
	return strings.TrimPrefix(s, "\n")
}

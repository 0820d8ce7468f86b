package importer

import (
	"regexp"
	"strings"
)

var (
	// Pattern: module <name>
	modulePattern = regexp.MustCompile(`\bmodule\s+([A-Za-z_][A-Za-z0-9_$]*)`)

	// Pattern: endmodule
	endmodulePattern = regexp.MustCompile(`\bendmodule\b`)

	// Pattern: [parameter] [type] [range] <name> = <value>
	parameterPattern = regexp.MustCompile(`(?s)^(?:(?:parameter|localparam)\s+)?(?:(?:integer|real|realtime|time|string|signed|unsigned|bit|logic)\s+)*(?:\[[^\]]*\]\s*)?([A-Za-z_][A-Za-z0-9_$]*)\s*=\s*(.+)$`)

	// Pattern: <direction> [net type] [range] <name>
	portPattern = regexp.MustCompile(`(?s)^(input|output|inout)\b\s*(?:(?:wire|reg|logic|tri|var|signed|unsigned)\b\s*)*(?:\[([^\]]*)\]\s*)?([A-Za-z_][A-Za-z0-9_$]*)$`)

	// Pattern: <name> continuing the previous declaration
	namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)
)

// splitTopLevel splits a list on commas outside brackets
func splitTopLevel(s string) []string {
	var items []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				items = append(items, s[start:i])
				start = i + 1
			}
		}
	}
	return append(items, s[start:])
}

// balanced returns the text inside the parenthesis opening at s[open] and
// the offset just past its closing parenthesis
func balanced(s string, open int) (string, int, bool) {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[open+1 : i], i + 1, true
			}
		}
	}
	return "", len(s), false
}

func skipSpace(s string, i int) int {
	for i < len(s) && strings.ContainsRune(" \t\r\n", rune(s[i])) {
		i++
	}
	return i
}

// squeeze collapses runs of whitespace into single spaces
func squeeze(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

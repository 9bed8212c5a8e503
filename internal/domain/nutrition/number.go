package nutrition

import (
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`)

// LeadingNumber parses the numeric prefix of s, ignoring surrounding
// whitespace, so "7 jam", "55%" and "42.5g" read as 7, 55 and 42.5. It
// reports false when s does not start with a number.
func LeadingNumber(s string) (float64, bool) {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

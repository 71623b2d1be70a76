package common

import "regexp"

// CompilePattern compiles a condition's regex pattern, prepending the
// case-insensitive flag unless caseSensitive is set.
func CompilePattern(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

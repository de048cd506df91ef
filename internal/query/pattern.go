package query

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrEmptyRegex is returned when regex mode is requested with no pattern
var ErrEmptyRegex = errors.New("regex pattern is empty")

// InvalidPatternError reports a pattern that failed to compile
type InvalidPatternError struct {
	Pattern string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid regex %q: %v", e.Pattern, e.Err)
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}

// CompilePattern compiles pattern, case-insensitively unless caseSensitive is set
func CompilePattern(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, ErrEmptyRegex
	}
	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + pattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &InvalidPatternError{Pattern: pattern, Err: err}
	}
	return re, nil
}

// ValidateRegex reports whether pattern compiles
func ValidateRegex(pattern string) error {
	_, err := CompilePattern(pattern, true)
	return err
}

package model

import "strings"

// ValidationError lists every rule a request broke. It is returned by value
// checks before any store or gateway is touched.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

func (e *ValidationError) Add(violation string) {
	e.Violations = append(e.Violations, violation)
}

// OrNil returns nil when nothing was added.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Violations) == 0 {
		return nil
	}
	return e
}

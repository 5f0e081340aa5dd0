package errors

import (
	"fmt"
	"strings"
)

// Policy decides how unresolvable references and malformed associations are
// reported. Either way the offending reference is left out of the schema.
type Policy string

const (
	// PolicyLenient tolerates partially authored metamodels: findings are
	// reported as warnings and compilation succeeds.
	PolicyLenient Policy = "lenient"
	// PolicyStrict reports findings as errors and fails the compilation.
	PolicyStrict Policy = "strict"
)

// ParsePolicy parses a policy name. The empty string selects PolicyLenient.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyLenient:
		return PolicyLenient, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown policy %q (want %q or %q)", s, PolicyLenient, PolicyStrict)
	}
}

// Apply adjusts the severity of each diagnostic to the policy. Under the
// lenient policy errors become warnings; warnings and info are untouched.
func (p Policy) Apply(el ErrorList) ErrorList {
	if p == PolicyStrict {
		return el
	}
	for _, err := range el {
		if err.Severity == SeverityError {
			err.Severity = SeverityWarning
		}
	}
	return el
}

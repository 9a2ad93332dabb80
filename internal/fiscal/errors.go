package fiscal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRuleNotFound is returned when a rule id does not exist in the caller's scope.
	ErrRuleNotFound = errors.New("fiscal rule not found")
	// ErrInvalidRuleID is returned for ids that are not UUIDs.
	ErrInvalidRuleID = errors.New("invalid fiscal rule id")
)

// NoApplicableRuleError means no rule is configured for the UF/regime pair in
// the caller's scope. It is an operator configuration gap, not a fault.
type NoApplicableRuleError struct {
	UF     string
	Regime Regime
}

func (e *NoApplicableRuleError) Error() string {
	return fmt.Sprintf("no fiscal rule configured for UF %s and regime %s", e.UF, e.Regime)
}

// IsNoApplicableRule reports whether err carries a NoApplicableRuleError.
func IsNoApplicableRule(err error) bool {
	var target *NoApplicableRuleError
	return errors.As(err, &target)
}

// Violation is a single field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates the violations of a rejected draft.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "invalid fiscal rule: " + strings.Join(msgs, "; ")
}

// AsValidationError extracts a ValidationError from err.
func AsValidationError(err error) (*ValidationError, bool) {
	var target *ValidationError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

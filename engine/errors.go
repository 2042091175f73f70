package engine

import (
	"fmt"
	"strings"
)

// DanglingFieldError reports a rule referencing a field that is not part of
// the form schema. It is a compile-time error and blocks publishing.
type DanglingFieldError struct {
	Rule  string
	Field string
}

func (e DanglingFieldError) Error() string {
	return fmt.Sprintf("rule %s references unknown field %q", e.Rule, e.Field)
}

// EmptyGroupError reports a condition group without any conditions.
type EmptyGroupError struct {
	Rule  string
	Group string
}

func (e EmptyGroupError) Error() string {
	return fmt.Sprintf("rule %s: condition group %s has no conditions", e.Rule, e.Group)
}

// CycleError reports a dependency cycle between rules. The engine refuses to
// compile such a rule set instead of attempting a partial ordering.
type CycleError struct {
	Rules []string
}

func (e CycleError) Error() string {
	return fmt.Sprintf("rule dependency cycle involving %s", strings.Join(e.Rules, ", "))
}

// ExpressionError reports a calculation expression that failed to compile.
type ExpressionError struct {
	Rule   string
	Action string
	Err    error
}

func (e ExpressionError) Error() string {
	return fmt.Sprintf("rule %s: action %s: invalid expression: %v", e.Rule, e.Action, e.Err)
}

func (e ExpressionError) Unwrap() error { return e.Err }

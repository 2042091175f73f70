package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
)

// compiledExpression is a side-effect-free arithmetic expression over other
// field values, used by calculate actions.
type compiledExpression struct {
	source   string
	program  *vm.Program
	operands []string
}

type identifierCollector struct {
	idents map[string]struct{}
}

func (c *identifierCollector) Visit(node *ast.Node) {
	if ident, ok := (*node).(*ast.IdentifierNode); ok {
		c.idents[ident.Value] = struct{}{}
	}
}

// compileExpression compiles the expression and extracts the field ids it
// references. Referenced ids become part of the owning rule's read set.
func compileExpression(source string) (*compiledExpression, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}

	tree, err := parser.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	collector := &identifierCollector{idents: make(map[string]struct{})}
	ast.Walk(&tree.Node, collector)

	// Builtins are disabled so that field ids like "count" or "max" always
	// resolve to the snapshot value, never to a function.
	program, err := expr.Compile(trimmed, expr.Env(map[string]interface{}{}), expr.AllowUndefinedVariables(), expr.DisableAllBuiltins())
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	operands := make([]string, 0, len(collector.idents))
	for ident := range collector.idents {
		operands = append(operands, ident)
	}
	sort.Strings(operands)

	return &compiledExpression{source: trimmed, program: program, operands: operands}, nil
}

// run evaluates the expression against the snapshot. A missing or empty
// operand, a non-numeric operand, or a division by zero leaves the target
// unset: the returned code is non-empty and the result is nil.
func (e *compiledExpression) run(snapshot Snapshot) (result interface{}, code, message string) {
	env := make(map[string]interface{}, len(e.operands))
	for _, operand := range e.operands {
		raw, ok := snapshot[operand]
		if !ok || isEmptyValue(raw) {
			return nil, warnCalcMissingOperand, fmt.Sprintf("operand %q has no value", operand)
		}
		num, err := coerceFloat(raw)
		if err != nil {
			return nil, warnCalcMissingOperand, fmt.Sprintf("operand %q: %v", operand, err)
		}
		env[operand] = num
	}

	out, err := vm.Run(e.program, env)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "division by zero") {
			return nil, warnCalcDivideByZero, msg
		}
		return nil, warnCalcFailed, msg
	}

	if f, ok := out.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return nil, warnCalcDivideByZero, fmt.Sprintf("expression %q produced %v", e.source, f)
	}
	return out, "", ""
}

// Package eligibility provides syntactic validation for disturbance
// eligibility filter expressions: the pool-state and stand-state filters
// referenced from disturbance events.
//
// An expression is a boolean combination of comparisons between simulation
// variables and numeric literals, e.g.
//
//	total_merch >= 50 and age > 40
//	landclass = 0 or (delay <> 0 and softwood_merch > 12.5)
//
// Only syntax is checked. Evaluating an expression against live
// carbon-pool state is the simulation runner's concern.
package eligibility

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Expression is the parsed form of a filter expression: or-terms of
// and-terms of comparisons, with parenthesized sub-expressions.
type Expression struct {
	First *AndExpression   `parser:"@@"`
	Rest  []*AndExpression `parser:"( 'or' @@ )*"`
}

// AndExpression is a conjunction of conditions.
type AndExpression struct {
	First *Condition   `parser:"@@"`
	Rest  []*Condition `parser:"( 'and' @@ )*"`
}

// Condition is either a parenthesized sub-expression or a comparison.
type Condition struct {
	Sub        *Expression `parser:"'(' @@ ')'"`
	Comparison *Comparison `parser:"| @@"`
}

// Comparison relates two operands with a relational operator.
type Comparison struct {
	Left  *Operand `parser:"@@"`
	Op    string   `parser:"@Op"`
	Right *Operand `parser:"@@"`
}

// Operand is a simulation variable name or a numeric literal.
type Operand struct {
	Variable *string  `parser:"@Ident"`
	Number   *float64 `parser:"| @Float | @Int"`
}

var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "whitespace", Pattern: `\s+`},
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Op", Pattern: `<=|>=|<>|<|>|=`},
	{Name: "Punct", Pattern: `[()]`},
})

var parser = participle.MustBuild[Expression](
	participle.Lexer(filterLexer),
	participle.CaseInsensitive("Ident"),
)

// Parse parses a filter expression.
func Parse(input string) (*Expression, error) {
	expr, err := parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse filter expression: %w", err)
	}
	return expr, nil
}

// Validate reports whether input is a syntactically well-formed filter
// expression. An empty or all-whitespace expression is well-formed: an
// absent filter means no constraint.
func Validate(input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	_, err := Parse(input)
	return err
}

// Variables returns the distinct simulation variable names referenced by
// the expression, in first-appearance order.
func (e *Expression) Variables() []string {
	seen := make(map[string]bool)
	var names []string
	collect := func(op *Operand) {
		if op != nil && op.Variable != nil && !seen[*op.Variable] {
			seen[*op.Variable] = true
			names = append(names, *op.Variable)
		}
	}
	var walkExpr func(*Expression)
	walkCond := func(c *Condition) {
		if c == nil {
			return
		}
		if c.Sub != nil {
			walkExpr(c.Sub)
		}
		if c.Comparison != nil {
			collect(c.Comparison.Left)
			collect(c.Comparison.Right)
		}
	}
	walkAnd := func(a *AndExpression) {
		if a == nil {
			return
		}
		walkCond(a.First)
		for _, c := range a.Rest {
			walkCond(c)
		}
	}
	walkExpr = func(e *Expression) {
		if e == nil {
			return
		}
		walkAnd(e.First)
		for _, a := range e.Rest {
			walkAnd(a)
		}
	}
	walkExpr(e)
	return names
}

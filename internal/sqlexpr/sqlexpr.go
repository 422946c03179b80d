// Package sqlexpr is the compiled boolean expression form sitting
// between the Filter DSL AST and the emitted SQL text.
//
// The SQL compiler lowers each field's condition tree into an Expr
// with the column already resolved (and alias-qualified for cross
// filters); the optimizer rewrites Exprs; the Renderer turns them
// into SQL fragments.
//
// Expr is a sealed interface using the marker method pattern - only
// types in this package implement it, keeping the renderer's type
// switch exhaustive.
package sqlexpr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/filterlang/filterlang/internal/ast"
)

// Expr is a node in a compiled boolean expression.
//
// Expr kinds:
//   - Compare: column <op> value
//   - InSet: column [NOT] IN (...)
//   - NullCheck: column IS [NOT] NULL
//   - Logical: AND/OR/NOT combination of children
type Expr interface {
	exprNode() // sealed
}

// Compare is a single column comparison. Column may be alias-qualified
// ("joined_table_1.status").
type Compare struct {
	Column string
	Op     ast.CompareOp
	Value  ast.Value
}

func (Compare) exprNode() {}

// InSet is a set membership test over the column.
type InSet struct {
	Column  string
	Negated bool
	Values  []ast.Value
}

func (InSet) exprNode() {}

// NullCheck is IS NULL / IS NOT NULL on the column.
type NullCheck struct {
	Column  string
	Negated bool
}

func (NullCheck) exprNode() {}

// Logical combines child expressions. And/Or are n-ary; Not has
// exactly one operand.
type Logical struct {
	Op       ast.LogicalOp
	Operands []Expr
}

func (Logical) exprNode() {}

// Renderer turns an Expr into a SQL fragment.
//
// In the default inline mode, string and date values are emitted as
// single-quoted literals for readability. With Placeholders set,
// every bound value becomes a sequential $n placeholder and is
// collected into Args instead. Special values are substituted as SQL
// expressions in both modes - they are keywords, not data, and are
// never parameterized.
//
// A Renderer is single-use per statement: placeholder numbering and
// Args accumulate across Render calls.
type Renderer struct {
	Placeholders bool

	args []any
}

// Args returns the bound values collected so far, in placeholder
// order. Nil in inline mode.
func (r *Renderer) Args() []any { return r.args }

// Render emits the SQL fragment for e.
func (r *Renderer) Render(e Expr) (string, error) {
	switch node := e.(type) {
	case Compare:
		return r.renderCompare(node)
	case InSet:
		return r.renderInSet(node)
	case NullCheck:
		if node.Negated {
			return QuoteColumn(node.Column) + " IS NOT NULL", nil
		}
		return QuoteColumn(node.Column) + " IS NULL", nil
	case Logical:
		return r.renderLogical(node)
	default:
		return "", fmt.Errorf("unsupported expression type: %T", e)
	}
}

func (r *Renderer) renderCompare(c Compare) (string, error) {
	val, err := r.renderValue(c.Value)
	if err != nil {
		return "", err
	}
	return QuoteColumn(c.Column) + " " + sqlCompareOp(c.Op) + " " + val, nil
}

func (r *Renderer) renderInSet(in InSet) (string, error) {
	// An empty IN list can never match (and NOT IN always does);
	// emit the constant the list degenerates to.
	if len(in.Values) == 0 {
		if in.Negated {
			return "1 = 1", nil
		}
		return "1 = 2", nil
	}

	parts := make([]string, len(in.Values))
	for i, v := range in.Values {
		rendered, err := r.renderValue(v)
		if err != nil {
			return "", err
		}
		parts[i] = rendered
	}
	op := "IN"
	if in.Negated {
		op = "NOT IN"
	}
	return QuoteColumn(in.Column) + " " + op + " (" + strings.Join(parts, ", ") + ")", nil
}

func (r *Renderer) renderLogical(l Logical) (string, error) {
	if l.Op == ast.LogicalNot {
		if len(l.Operands) != 1 {
			return "", fmt.Errorf("NOT expression must have exactly one operand, got %d", len(l.Operands))
		}
		inner, err := r.Render(l.Operands[0])
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	}

	if len(l.Operands) == 0 {
		return "1 = 1", nil
	}
	parts := make([]string, len(l.Operands))
	for i, operand := range l.Operands {
		rendered, err := r.Render(operand)
		if err != nil {
			return "", err
		}
		// Parenthesize nested combinations so the emitted text keeps
		// the tree's precedence.
		if _, nested := operand.(Logical); nested {
			rendered = "(" + rendered + ")"
		}
		parts[i] = rendered
	}
	return strings.Join(parts, " "+l.Op.String()+" "), nil
}

// renderValue emits a bound value: inline literal or placeholder,
// except for special values which are always substituted as SQL text.
func (r *Renderer) renderValue(v ast.Value) (string, error) {
	if s, ok := v.(ast.Special); ok {
		return SpecialSQL(s)
	}

	if r.Placeholders {
		switch val := v.(type) {
		case ast.Str:
			r.args = append(r.args, string(val))
		case ast.Number:
			r.args = append(r.args, int64(val))
		case ast.Date:
			r.args = append(r.args, string(val))
		default:
			return "", fmt.Errorf("unsupported value type: %T", v)
		}
		return "$" + strconv.Itoa(len(r.args)), nil
	}

	switch val := v.(type) {
	case ast.Str:
		return quoteLiteral(string(val)), nil
	case ast.Number:
		return strconv.FormatInt(int64(val), 10), nil
	case ast.Date:
		return quoteLiteral(string(val)), nil
	default:
		return "", fmt.Errorf("unsupported value type: %T", v)
	}
}

// SpecialSQL returns the SQL substitution for a special value.
func SpecialSQL(s ast.Special) (string, error) {
	switch s {
	case ast.SpecialToday:
		return "CURRENT_DATE", nil
	case ast.SpecialYesterday:
		return "CURRENT_DATE - INTERVAL '1 day'", nil
	case ast.SpecialTomorrow:
		return "CURRENT_DATE + INTERVAL '1 day'", nil
	case ast.SpecialCurrentUser:
		return "CURRENT_USER", nil
	default:
		return "", fmt.Errorf("unsupported special value: %v", s)
	}
}

// QuoteColumn double-quotes a possibly alias-qualified column name:
// `status` becomes `"status"`, `joined_table_1.status` becomes
// `"joined_table_1"."status"`.
func QuoteColumn(column string) string {
	parts := strings.Split(column, ".")
	for i, part := range parts {
		parts[i] = QuoteIdent(part)
	}
	return strings.Join(parts, ".")
}

// QuoteIdent double-quotes a single SQL identifier.
func QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func sqlCompareOp(op ast.CompareOp) string {
	switch op {
	case ast.OpEq:
		return "="
	case ast.OpNe:
		return "<>"
	case ast.OpGt:
		return ">"
	case ast.OpLt:
		return "<"
	case ast.OpGe:
		return ">="
	default:
		return "<="
	}
}
